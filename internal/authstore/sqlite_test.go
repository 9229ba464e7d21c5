package authstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/bloodlaac/fabricat/internal/api"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fabricat.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadEmptyStore(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("empty store reported stored credentials")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := openTestStore(t)
	in := api.Credentials{
		Token: api.AuthToken{AccessToken: "tok123"},
		User:  api.User{Nickname: "alice", Icon: "factory"},
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, ok, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatal("saved credentials not found")
	}
	if out != in {
		t.Fatalf("loaded %+v, want %+v", out, in)
	}
}

func TestSaveTokenKeepsUser(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(api.Credentials{
		Token: api.AuthToken{AccessToken: "stale"},
		User:  api.User{Nickname: "alice"},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.SaveToken("fresh"); err != nil {
		t.Fatalf("save token: %v", err)
	}
	out, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if out.Token.AccessToken != "fresh" || out.User.Nickname != "alice" {
		t.Fatalf("loaded %+v", out)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(api.Credentials{Token: api.AuthToken{AccessToken: "tok"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.Load(); ok {
		t.Fatal("credentials survived clear")
	}
}

func TestGameHistoryCache(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	games := []api.GameStats{
		{SessionCode: "AB12", FinishedAt: now.Add(-time.Hour), Capital: 12000, Place: 2},
		{SessionCode: "CD34", FinishedAt: now, Capital: -500, Place: 4, IsBankrupt: true, HasDebt: true, TotalDebt: 500},
	}
	if err := s.CacheGames("alice", games); err != nil {
		t.Fatalf("cache: %v", err)
	}

	out, err := s.CachedGames("alice", 10)
	if err != nil {
		t.Fatalf("cached games: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d rows, want 2", len(out))
	}
	if out[0].SessionCode != "CD34" {
		t.Fatalf("newest first expected, got %s", out[0].SessionCode)
	}
	if !out[0].IsBankrupt || !out[0].HasDebt || out[0].TotalDebt != 500 {
		t.Fatalf("row = %+v", out[0])
	}
	if !out[0].FinishedAt.Equal(now) {
		t.Fatalf("finished_at = %s, want %s", out[0].FinishedAt, now)
	}

	if rows, _ := s.CachedGames("bob", 10); len(rows) != 0 {
		t.Fatalf("bob has %d rows, want 0", len(rows))
	}
}

func TestCacheGamesUpserts(t *testing.T) {
	s := openTestStore(t)
	g := api.GameStats{SessionCode: "AB12", FinishedAt: time.Now().UTC(), Capital: 100, Place: 3}
	if err := s.CacheGames("alice", []api.GameStats{g}); err != nil {
		t.Fatalf("cache: %v", err)
	}
	g.Place = 1
	g.IsTop1 = true
	if err := s.CacheGames("alice", []api.GameStats{g}); err != nil {
		t.Fatalf("cache update: %v", err)
	}

	out, err := s.CachedGames("alice", 10)
	if err != nil {
		t.Fatalf("cached games: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d rows, want 1 after upsert", len(out))
	}
	if out[0].Place != 1 || !out[0].IsTop1 {
		t.Fatalf("row = %+v", out[0])
	}
}

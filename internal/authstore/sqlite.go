package authstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bloodlaac/fabricat/internal/api"
)

const authKey = "auth"

// Store persists the auth record and a cache of recent game results across
// application restarts. One record: {token: {access_token}, user: {nickname, icon}}.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS game_history (
			nickname        TEXT NOT NULL,
			session_code    TEXT NOT NULL,
			finished_at     TEXT NOT NULL,
			capital         REAL NOT NULL,
			place           INTEGER NOT NULL,
			is_bankrupt     INTEGER NOT NULL,
			is_top1         INTEGER NOT NULL,
			has_debt        INTEGER NOT NULL,
			total_debt      REAL NOT NULL,
			factories_basic INTEGER NOT NULL,
			factories_auto  INTEGER NOT NULL,
			PRIMARY KEY (nickname, session_code)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_game_history_finished
			ON game_history (nickname, finished_at DESC);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save writes the whole auth record, replacing any previous one.
func (s *Store) Save(creds api.Credentials) error {
	b, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value;`,
		authKey, string(b),
	)
	return err
}

// Load reads the persisted auth record. ok is false when none is stored or
// the stored record carries no token.
func (s *Store) Load() (creds api.Credentials, ok bool, err error) {
	var raw string
	err = s.db.QueryRow(`SELECT value FROM kv WHERE key = ?;`, authKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Credentials{}, false, nil
	}
	if err != nil {
		return api.Credentials{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return api.Credentials{}, false, fmt.Errorf("parse auth record: %w", err)
	}
	if creds.Token.AccessToken == "" {
		return api.Credentials{}, false, nil
	}
	return creds, true, nil
}

// SaveToken replaces the access token of the stored record, keeping the user.
func (s *Store) SaveToken(accessToken string) error {
	creds, _, err := s.Load()
	if err != nil {
		return err
	}
	creds.Token.AccessToken = accessToken
	return s.Save(creds)
}

// Clear erases the auth record (logout, unrecoverable credentials).
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?;`, authKey)
	return err
}

// CacheGames upserts fetched history rows for the given player.
func (s *Store) CacheGames(nickname string, games []api.GameStats) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, g := range games {
		_, err := tx.Exec(
			`INSERT INTO game_history
				(nickname, session_code, finished_at, capital, place,
				 is_bankrupt, is_top1, has_debt, total_debt,
				 factories_basic, factories_auto)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(nickname, session_code) DO UPDATE SET
				finished_at = excluded.finished_at,
				capital = excluded.capital,
				place = excluded.place,
				is_bankrupt = excluded.is_bankrupt,
				is_top1 = excluded.is_top1,
				has_debt = excluded.has_debt,
				total_debt = excluded.total_debt,
				factories_basic = excluded.factories_basic,
				factories_auto = excluded.factories_auto;`,
			nickname, g.SessionCode, g.FinishedAt.UTC().Format(time.RFC3339Nano),
			g.Capital, g.Place,
			boolInt(g.IsBankrupt), boolInt(g.IsTop1), boolInt(g.HasDebt), g.TotalDebt,
			g.FactoriesBasic, g.FactoriesAuto,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CachedGames returns the locally cached history, newest first.
func (s *Store) CachedGames(nickname string, limit int) ([]api.GameStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT session_code, finished_at, capital, place,
			is_bankrupt, is_top1, has_debt, total_debt,
			factories_basic, factories_auto
		 FROM game_history
		 WHERE nickname = ?
		 ORDER BY finished_at DESC
		 LIMIT ?;`,
		nickname, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.GameStats
	for rows.Next() {
		var g api.GameStats
		var finished string
		var bankrupt, top1, debt int
		if err := rows.Scan(
			&g.SessionCode, &finished, &g.Capital, &g.Place,
			&bankrupt, &top1, &debt, &g.TotalDebt,
			&g.FactoriesBasic, &g.FactoriesAuto,
		); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			g.FinishedAt = t
		}
		g.IsBankrupt = bankrupt != 0
		g.IsTop1 = top1 != 0
		g.HasDebt = debt != 0
		out = append(out, g)
	}
	return out, rows.Err()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

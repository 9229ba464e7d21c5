package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Fatalf("api base = %q", cfg.APIBaseURL)
	}
	if cfg.HistoryLimit != 10 || cfg.RejoinWaitSeconds != 15 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabricat.yaml")
	data := []byte("api_base_url: https://play.example.com/\nws_base_url: wss://play.example.com\nhistory_limit: 25\nrejoin_wait_seconds: 30\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://play.example.com" {
		t.Fatalf("api base = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}
	if cfg.WSBaseURL != "wss://play.example.com" {
		t.Fatalf("ws base = %q", cfg.WSBaseURL)
	}
	if cfg.HistoryLimit != 25 {
		t.Fatalf("history limit = %d", cfg.HistoryLimit)
	}
	if cfg.RejoinWait() != 30*time.Second {
		t.Fatalf("rejoin wait = %s", cfg.RejoinWait())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabricat.yaml")
	if err := os.WriteFile(path, []byte("api_base_url: http://from-file:8000\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(envAPIBase, "http://from-env:9000/")
	t.Setenv(envWSBase, "ws://from-env:9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://from-env:9000" {
		t.Fatalf("api base = %q", cfg.APIBaseURL)
	}
	if cfg.WSBaseURL != "ws://from-env:9000" {
		t.Fatalf("ws base = %q", cfg.WSBaseURL)
	}
}

func TestValidateRejectsBadSchemes(t *testing.T) {
	cfg := defaults()
	cfg.APIBaseURL = "localhost:8000"
	if err := cfg.Validate(); err == nil {
		t.Fatal("non-http api base accepted")
	}

	cfg = defaults()
	cfg.WSBaseURL = "http://not-a-ws-url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("non-ws ws base accepted")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabricat.yaml")
	if err := os.WriteFile(path, []byte("api_base_url: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds client endpoints and local paths. The websocket base is
// independent of the request/response origin and may be overridden via
// environment, as may the API base.
type Config struct {
	APIBaseURL string `yaml:"api_base_url"`
	WSBaseURL  string `yaml:"ws_base_url"`

	DataDir      string `yaml:"data_dir"`
	HistoryLimit int    `yaml:"history_limit"`

	// RejoinWaitSeconds bounds the wait for welcome after a token refresh.
	RejoinWaitSeconds int `yaml:"rejoin_wait_seconds"`
}

const (
	envAPIBase = "FABRICAT_API_URL"
	envWSBase  = "FABRICAT_WS_URL"
)

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, err
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("fabricat.yaml: %w", err)
			}
		}
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("fabricat.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		APIBaseURL:        "http://localhost:8000",
		DataDir:           "./data",
		HistoryLimit:      10,
		RejoinWaitSeconds: 15,
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	if v := strings.TrimSpace(os.Getenv(envAPIBase)); v != "" {
		c.APIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envWSBase)); v != "" {
		c.WSBaseURL = v
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.WSBaseURL = strings.TrimRight(strings.TrimSpace(c.WSBaseURL), "/")
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 10
	}
	if c.RejoinWaitSeconds <= 0 {
		c.RejoinWaitSeconds = 15
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./data"
	}
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url must be http(s): %s", c.APIBaseURL)
	}
	if c.WSBaseURL != "" && !strings.HasPrefix(c.WSBaseURL, "ws://") && !strings.HasPrefix(c.WSBaseURL, "wss://") {
		return fmt.Errorf("ws_base_url must be ws(s): %s", c.WSBaseURL)
	}
	return nil
}

// RejoinWait returns the bounded welcome wait as a duration.
func (c Config) RejoinWait() time.Duration {
	return time.Duration(c.RejoinWaitSeconds) * time.Second
}

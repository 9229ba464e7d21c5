package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to the auxiliary request/response endpoints (auth, history).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("empty api base url")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid api base url: %s", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

type AuthToken struct {
	AccessToken string `json:"access_token"`
}

type User struct {
	Nickname string `json:"nickname"`
	Icon     string `json:"icon"`
}

// Credentials is the persisted auth record: one access token plus the user it
// belongs to. Replaced wholesale on refresh.
type Credentials struct {
	Token AuthToken `json:"token"`
	User  User      `json:"user"`
}

// GameStats is one row of the player's game history.
type GameStats struct {
	SessionCode    string    `json:"session_code"`
	FinishedAt     time.Time `json:"finished_at"`
	Capital        float64   `json:"capital"`
	Place          int       `json:"place"`
	IsBankrupt     bool      `json:"is_bankrupt"`
	IsTop1         bool      `json:"is_top1"`
	HasDebt        bool      `json:"has_debt"`
	TotalDebt      float64   `json:"total_debt"`
	FactoriesBasic int       `json:"factories_basic"`
	FactoriesAuto  int       `json:"factories_auto"`
}

// Register creates a new user and returns its credentials.
func (c *Client) Register(ctx context.Context, nickname, password, icon string) (Credentials, error) {
	body := map[string]string{"nickname": nickname, "password": password, "icon": icon}
	var out Credentials
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", body, &out); err != nil {
		return Credentials{}, err
	}
	return out, nil
}

// Login authenticates an existing user.
func (c *Client) Login(ctx context.Context, nickname, password string) (Credentials, error) {
	body := map[string]string{"nickname": nickname, "password": password}
	var out Credentials
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return Credentials{}, err
	}
	return out, nil
}

// Refresh exchanges a valid access token for a fresh one. The user part of
// the credentials is unchanged by this call.
func (c *Client) Refresh(token string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var out AuthToken
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", token, nil, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("refresh returned empty token")
	}
	return out.AccessToken, nil
}

// RecentGames returns the caller's most recent finished games.
func (c *Client) RecentGames(ctx context.Context, token string, limit int) ([]GameStats, error) {
	if limit <= 0 {
		limit = 10
	}
	var out struct {
		Items []GameStats `json:"items"`
	}
	path := "/history/games/me?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(payload)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Error carries the first human-readable message found in an error response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// errorMessage digs the message out of an error payload. The server wraps
// details in a "detail" field that may be a plain string, an object with a
// message, or a list of validation items with "msg" entries.
func errorMessage(payload []byte) string {
	var wrapper struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &wrapper); err == nil && len(wrapper.Detail) > 0 {
		var s string
		if json.Unmarshal(wrapper.Detail, &s) == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(wrapper.Detail, &items) == nil {
			for _, it := range items {
				if it.Msg != "" {
					return it.Msg
				}
			}
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(wrapper.Detail, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	if s := strings.TrimSpace(string(payload)); s != "" && !strings.HasPrefix(s, "{") {
		return s
	}
	return "request failed"
}

// WSBase derives the persistent-connection base from an http(s) API base.
func WSBase(apiBase string) string {
	base := strings.TrimRight(apiBase, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base
}

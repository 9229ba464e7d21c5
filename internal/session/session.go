package session

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bloodlaac/fabricat/internal/protocol"
)

const (
	noticeUnreadable   = "could not read server message"
	noticeNotConnected = "connection is not ready"
)

var errNotConnected = errors.New("not connected")

// Config describes one session attempt.
type Config struct {
	// WSBaseURL is the persistent-connection endpoint base, e.g.
	// ws://localhost:8000. The access token is supplied as a query credential.
	WSBaseURL   string
	AccessToken string

	// SessionCode is the intended session to join; empty asks the server to
	// create a fresh one. Rejoins after a token refresh reuse the code the
	// server assigned.
	SessionCode string

	// Nickname identifies the local player inside analytics pushes.
	Nickname string

	// RejoinWait bounds how long a post-refresh rejoin waits for welcome
	// before the attempt is treated as a transport failure.
	RejoinWait time.Duration
}

// TokenRefresher exchanges a stale access token for a fresh one.
type TokenRefresher interface {
	Refresh(token string) (string, error)
}

// CredentialStore is the injected persistence for the auth record.
type CredentialStore interface {
	SaveToken(accessToken string) error
	Clear() error
}

// ReportJournal receives phase report journal entries as they arrive.
type ReportJournal interface {
	Record(sessionCode string, e protocol.JournalEntry) error
}

// Client keeps the local view of one simulation session synchronized with the
// server over a persistent connection, and gates outgoing decisions by phase.
// Exactly one live connection is canonical at a time; frames from superseded
// connections are discarded by generation.
type Client struct {
	cfg       Config
	refresher TokenRefresher
	store     CredentialStore
	journal   ReportJournal
	logger    *log.Logger

	mu    sync.RWMutex
	state State
	locks map[protocol.Category]bool

	draft           *Draft
	editingSettings bool

	token       string
	refreshing  bool
	authExpired bool
	credInvalid bool

	conn     *websocket.Conn
	gen      uint64
	welcomed chan struct{}
	writeMu  sync.Mutex

	startOnce sync.Once
	closeOnce sync.Once
	started   bool
	stop      chan struct{}
	done      chan struct{}
}

func New(cfg Config, refresher TokenRefresher, store CredentialStore, journal ReportJournal, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[session] ", log.LstdFlags)
	}
	return &Client{
		cfg:       cfg,
		refresher: refresher,
		store:     store,
		journal:   journal,
		logger:    logger,
		state:     State{Status: StatusConnecting, SessionCode: cfg.SessionCode},
		locks:     map[protocol.Category]bool{},
		token:     cfg.AccessToken,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Open establishes the connection and starts the frame loop.
func (c *Client) Open() {
	c.startOnce.Do(func() {
		c.mu.Lock()
		c.started = true
		c.mu.Unlock()
		go c.run()
	})
}

// Close tears the session down. Idempotent; invoked on every exit path so
// sockets are never leaked. A half-open refresh attempt may still complete
// but its result is discarded.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.disconnect()
		c.mu.RLock()
		started := c.started
		c.mu.RUnlock()
		if started {
			<-c.done
		} else {
			close(c.done)
			c.finishClosed()
		}
	})
}

// Done is closed once the session has reached an absorbing state.
func (c *Client) Done() <-chan struct{} { return c.done }

// AuthExpired reports whether the session ended because credentials could not
// be refreshed; the caller should return to the unauthenticated entry point.
func (c *Client) AuthExpired() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authExpired
}

// Start asks the server to start the session. Only meaningful while ready.
func (c *Client) Start() error {
	c.mu.RLock()
	st := c.state.Status
	c.mu.RUnlock()
	if st != StatusReady {
		return errors.New("session cannot start while " + string(st))
	}
	return c.send(protocol.NewStart())
}

func (c *Client) run() {
	defer close(c.done)

	rejoin := false
	for {
		select {
		case <-c.stop:
			c.finishClosed()
			return
		default:
		}

		res := c.connectOnce(rejoin)

		select {
		case <-c.stop:
			c.finishClosed()
			return
		default:
		}

		if res.credRejected {
			if !c.refreshCredentials() {
				return
			}
			rejoin = true
			continue
		}
		if res.err != nil {
			c.logger.Printf("connection lost: %v", res.err)
			c.setStatusError()
		} else {
			c.finishClosed()
		}
		return
	}
}

type connectResult struct {
	credRejected bool
	err          error
}

// connectOnce runs one full connection: dial, join, read frames until the
// transport drops. Inbound frames are applied strictly in receipt order.
func (c *Client) connectOnce(rejoin bool) connectResult {
	c.setStatus(StatusConnecting)

	d := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := d.Dial(c.wsURL(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return connectResult{credRejected: true}
		}
		return connectResult{err: err}
	}

	gen := c.adoptConn(conn)
	c.setStatus(StatusConnected)

	if err := c.writeJSON(protocol.NewJoin(c.joinCode())); err != nil {
		_ = conn.Close()
		c.dropConn(gen)
		return connectResult{err: err}
	}

	welcomed := make(chan struct{}, 1)
	c.mu.Lock()
	c.welcomed = welcomed
	c.credInvalid = false
	c.mu.Unlock()

	// The server defines no timeout for a missing welcome; after a refresh we
	// bound the wait ourselves and treat silence as a failed attempt.
	if rejoin && c.cfg.RejoinWait > 0 {
		go func() {
			select {
			case <-welcomed:
			case <-c.stop:
			case <-time.After(c.cfg.RejoinWait):
				c.logger.Printf("no welcome within %s after rejoin", c.cfg.RejoinWait)
				_ = conn.Close()
			}
		}()
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			c.dropConn(gen)

			if c.takeCredInvalid() {
				return connectResult{credRejected: true}
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				if protocol.IsCredentialRejectedCode(ce.Code) {
					return connectResult{credRejected: true}
				}
				return connectResult{}
			}
			select {
			case <-c.stop:
				return connectResult{}
			default:
			}
			return connectResult{err: err}
		}
		c.handleFrame(gen, raw)
	}
}

func (c *Client) wsURL() string {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	base := strings.TrimRight(c.cfg.WSBaseURL, "/")
	return base + "/ws/game?" + url.Values{"token": {token}}.Encode()
}

func (c *Client) joinCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.SessionCode != "" {
		return c.state.SessionCode
	}
	return c.cfg.SessionCode
}

func (c *Client) adoptConn(conn *websocket.Conn) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.conn = conn
	return c.gen
}

func (c *Client) dropConn(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.conn = nil
	}
}

func (c *Client) disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Client) writeJSON(v any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return errNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(v)
}

// send writes one envelope. If the transport is not open the envelope is not
// queued or retried; a client-visible notice is surfaced instead.
func (c *Client) send(v any) error {
	if err := c.writeJSON(v); err != nil {
		c.setNotice(noticeNotConnected)
	}
	return nil
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return
	}
	c.state.Status = s
}

func (c *Client) setStatusError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		c.state.Status = StatusClosed
		return
	}
	c.state.Status = StatusError
}

func (c *Client) finishClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusError {
		c.state.Status = StatusClosed
	}
}

func (c *Client) setNotice(s string) {
	c.mu.Lock()
	c.state.Notice = s
	c.mu.Unlock()
	c.logger.Printf("%s", s)
}

func (c *Client) takeCredInvalid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.credInvalid
	c.credInvalid = false
	return v
}

package notify

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/medibook/realtime/internal/slogging"
)

// State describes the connection lifecycle
type State string

const (
	// StateDisconnected means no transport is live and none is being established
	StateDisconnected State = "disconnected"
	// StateConnecting means a dial is in flight
	StateConnecting State = "connecting"
	// StateConnected means the transport is live
	StateConnected State = "connected"
)

// DefaultRetryInterval is the fixed reconnection interval while disconnected
const DefaultRetryInterval = 5 * time.Second

// notificationSocketPath is the server's per-user notification endpoint prefix
const notificationSocketPath = "/api/v1/notifications/ws/"

// ConnConfig configures a Conn
type ConnConfig struct {
	// BaseURL is the booking API origin; http(s) schemes are rewritten to ws(s)
	BaseURL string
	// RetryInterval is the fixed reconnect cadence; zero means DefaultRetryInterval
	RetryInterval time.Duration
	// HandshakeTimeout bounds the WebSocket dial; zero means 10s
	HandshakeTimeout time.Duration
	// Credentials supplies the session token and user id per attempt
	Credentials CredentialSource
	// Router receives every raw inbound frame plus connect/disconnect events
	Router *Router
	// Logger defaults to the global logger when nil
	Logger *slogging.Logger
}

// Conn owns the single WebSocket transport to the notification endpoint, its
// lifecycle, and the reconnection policy: fixed-interval retry, no backoff,
// no attempt cap. Transport failures are never fatal; they all collapse into
// the disconnected state followed by a scheduled retry.
type Conn struct {
	cfg ConnConfig

	mu    sync.Mutex
	state State
	ws    *websocket.Conn
	// retryStop is non-nil exactly while the retry timer is armed. Arming an
	// already-armed timer is a no-op, so successive close events never stack timers.
	retryStop chan struct{}
	// gen invalidates read pumps and in-flight dials belonging to torn-down transports
	gen uint64
}

// NewConn creates a connection manager in the disconnected state
func NewConn(cfg ConnConfig) *Conn {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slogging.Get()
	}
	return &Conn{
		cfg:   cfg,
		state: StateDisconnected,
	}
}

// Connect establishes the transport. Missing credentials are reported via log
// and leave the state disconnected; no error reaches the caller. Any prior
// live transport is torn down first, and a pending retry timer is cancelled.
func (c *Conn) Connect() {
	token, userID, ok := c.cfg.Credentials.Credentials()
	if !ok || token == "" || userID == "" {
		c.cfg.Logger.Warn("Notification connect skipped: session token or user id unavailable")
		return
	}

	endpoint, err := c.endpointURL(userID, token)
	if err != nil {
		c.cfg.Logger.Error("Notification connect skipped: %v", err)
		return
	}

	c.mu.Lock()
	c.disarmRetryLocked()
	c.gen++
	gen := c.gen
	if c.ws != nil {
		// At most one live transport per connection
		_ = c.ws.Close()
		c.ws = nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	c.cfg.Logger.Info("Connecting to notification socket %s", slogging.RedactURL(endpoint))
	connectAttempts.Inc()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	ws, resp, err := dialer.Dial(endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.cfg.Logger.Warn("Notification socket dial failed: %v", err)
		c.dropTransport(gen, true)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		// Disconnect or a newer Connect raced this dial; discard the transport
		c.mu.Unlock()
		_ = ws.Close()
		return
	}
	c.ws = ws
	c.state = StateConnected
	c.mu.Unlock()

	connectionUp.Set(1)
	c.cfg.Logger.Info("Notification socket connected for user %s", userID)
	c.cfg.Router.emit(CategoryConnect, Frame{})

	go c.readPump(ws, gen)
}

// Disconnect tears down the transport and disarms the retry timer. Idempotent;
// once called, no automatic reconnection occurs until Connect is invoked again.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	c.disarmRetryLocked()
	c.gen++
	wasConnected := c.state == StateConnected
	if c.ws != nil {
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.ws.Close()
		c.ws = nil
	}
	c.state = StateDisconnected
	c.mu.Unlock()

	connectionUp.Set(0)
	if wasConnected {
		c.cfg.Logger.Info("Notification socket disconnected")
		c.cfg.Router.emit(CategoryDisconnect, Frame{})
	}
}

// State returns the current lifecycle state
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the transport is live
func (c *Conn) Connected() bool {
	return c.State() == StateConnected
}

// readPump delivers inbound frames to the router until the transport fails.
// Every read error, expected or not, takes the same close path.
func (c *Conn) readPump(ws *websocket.Conn, gen uint64) {
	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.cfg.Logger.Warn("Notification socket read failed: %v", err)
			}
			c.dropTransport(gen, true)
			return
		}
		c.cfg.Router.Dispatch(message)
	}
}

// dropTransport moves a specific transport generation to the disconnected
// state, optionally re-arming the retry timer, and emits the disconnect event.
// Stale generations (already superseded by Connect or Disconnect) are ignored.
func (c *Conn) dropTransport(gen uint64, rearm bool) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.ws != nil {
		_ = c.ws.Close()
		c.ws = nil
	}
	c.state = StateDisconnected
	if rearm {
		c.armRetryLocked()
	}
	c.mu.Unlock()

	connectionUp.Set(0)
	c.cfg.Router.emit(CategoryDisconnect, Frame{})
}

// armRetryLocked starts the fixed-interval reconnect timer. No-op while armed.
func (c *Conn) armRetryLocked() {
	if c.retryStop != nil {
		return
	}
	stop := make(chan struct{})
	c.retryStop = stop
	c.cfg.Logger.Info("Reconnect timer armed, interval %s", c.cfg.RetryInterval)
	go c.retryLoop(stop)
}

func (c *Conn) disarmRetryLocked() {
	if c.retryStop != nil {
		close(c.retryStop)
		c.retryStop = nil
	}
}

// retryLoop attempts a connect at every tick while still disconnected.
// Connect disarms the timer on entry, which also terminates this loop.
func (c *Conn) retryLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.State() != StateDisconnected {
				continue
			}
			c.cfg.Logger.Debug("Attempting notification socket reconnect")
			c.Connect()
		}
	}
}

// retryArmed reports whether the reconnect timer is currently armed
func (c *Conn) retryArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryStop != nil
}

// endpointURL builds the per-user WebSocket URL with the bearer token in the
// query string, rewriting http(s) origins to ws(s)
func (c *Conn) endpointURL(userID, token string) (string, error) {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "ws://"), strings.HasPrefix(base, "wss://"):
	default:
		return "", fmt.Errorf("unsupported base URL %q", c.cfg.BaseURL)
	}

	return fmt.Sprintf("%s%s%s?token=%s",
		base, notificationSocketPath, url.PathEscape(userID), url.QueryEscape(token)), nil
}

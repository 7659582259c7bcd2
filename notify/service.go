package notify

import (
	"time"

	"github.com/medibook/realtime/internal/slogging"
)

// ServiceConfig configures the delivery façade
type ServiceConfig struct {
	// BaseURL is the booking API origin
	BaseURL string
	// Credentials supplies the session token and user id
	Credentials CredentialSource
	// RetryInterval overrides the fixed reconnect cadence; zero uses the default
	RetryInterval time.Duration
	// DedupWindow overrides the duplicate-detection window; zero uses the default
	DedupWindow time.Duration
	// HandshakeTimeout bounds the WebSocket dial
	HandshakeTimeout time.Duration
	// Alerter raises local alerts for stored notifications; nil disables them
	Alerter Alerter
	// Logger defaults to the global logger when nil
	Logger *slogging.Logger
}

// Service is the delivery façade: the only surface the rest of the
// application depends on. It wires the connection manager, the message
// router, and the notification store together and re-exports the pieces the
// UI needs. One Service is built per authenticated session and discarded at
// logout via Shutdown.
type Service struct {
	router *Router
	store  *Store
	conn   *Conn
	logger *slogging.Logger

	now func() time.Time
}

// NewService builds a session-scoped delivery service with an empty store
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slogging.Get()
	}

	router := NewRouter(logger)
	store := NewStore(cfg.DedupWindow, cfg.Alerter, logger)
	conn := NewConn(ConnConfig{
		BaseURL:          cfg.BaseURL,
		RetryInterval:    cfg.RetryInterval,
		HandshakeTimeout: cfg.HandshakeTimeout,
		Credentials:      cfg.Credentials,
		Router:           router,
		Logger:           logger,
	})

	s := &Service{
		router: router,
		store:  store,
		conn:   conn,
		logger: logger,
		now:    time.Now,
	}

	for _, category := range []Category{
		CategoryAppointmentCreated,
		CategoryAppointmentCancelled,
		CategoryStatusChanged,
		CategoryGeneric,
	} {
		router.Subscribe(category, s.ingestFor(category))
	}

	return s
}

// ingestFor returns the internal handler that normalizes frames of one
// category into notifications and pushes them into the store
func (s *Service) ingestFor(category Category) Handler {
	return func(frame Frame) {
		s.store.Add(NewNotification(category, frame, s.now()))
	}
}

// Connect establishes the notification socket. Safe to call while already
// connected; the connection manager tears down any prior transport first.
func (s *Service) Connect() {
	s.conn.Connect()
}

// Disconnect tears down the socket and stops automatic reconnection
func (s *Service) Disconnect() {
	s.conn.Disconnect()
}

// Shutdown disconnects and discards the session's notification state.
// Call at logout.
func (s *Service) Shutdown() {
	s.conn.Disconnect()
	s.store.Clear()
}

// Subscribe registers a handler for a notification category or for the
// connect/disconnect lifecycle events
func (s *Service) Subscribe(category Category, handler Handler) int {
	return s.router.Subscribe(category, handler)
}

// Unsubscribe removes a handler registered with Subscribe
func (s *Service) Unsubscribe(category Category, id int) {
	s.router.Unsubscribe(category, id)
}

// Connected reports whether the notification socket is live
func (s *Service) Connected() bool {
	return s.conn.Connected()
}

// State returns the connection lifecycle state
func (s *Service) State() State {
	return s.conn.State()
}

// Store exposes the session's notification store for UI reads and read-state
// transitions. The UI must not mutate history except through Store operations.
func (s *Service) Store() *Store {
	return s.store
}

// SendTestNotification synthesizes a generic notification locally, without a
// transport round-trip, and runs it through the normal dispatch path. It
// declines, with a logged reason, while disconnected. Returns whether the
// notification was injected.
func (s *Service) SendTestNotification() bool {
	if !s.conn.Connected() {
		s.logger.Warn("Test notification declined: notification socket is not connected")
		return false
	}

	s.router.emit(CategoryGeneric, Frame{
		Type:      WireTypeNotification,
		Title:     "Test Notification",
		Message:   "This is a test notification from the booking client.",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
	return true
}

package notify

import (
	"encoding/json"
	"sync"

	"github.com/medibook/realtime/internal/slogging"
)

// Handler receives a classified frame. Lifecycle categories deliver an empty frame.
type Handler func(Frame)

type subscription struct {
	id      int
	handler Handler
}

// Router decodes inbound frames and fans them out to registered listeners by
// category. Unknown type tags degrade to CategoryGeneric so no event is dropped.
type Router struct {
	mu       sync.RWMutex
	handlers map[Category][]subscription
	nextID   int
	logger   *slogging.Logger
}

// NewRouter creates a router. A nil logger falls back to the global one.
func NewRouter(logger *slogging.Logger) *Router {
	if logger == nil {
		logger = slogging.Get()
	}
	return &Router{
		handlers: make(map[Category][]subscription),
		logger:   logger,
	}
}

// Subscribe registers a handler for one category and returns a token for
// Unsubscribe. Handlers for a category run in registration order on every
// matching event. An invalid category registers nothing and returns 0.
func (r *Router) Subscribe(category Category, handler Handler) int {
	if !category.Valid() || handler == nil {
		r.logger.Warn("Ignoring subscription for invalid category %q", category)
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.handlers[category] = append(r.handlers[category], subscription{id: r.nextID, handler: handler})
	return r.nextID
}

// Unsubscribe removes a previously registered handler. Unknown tokens are a no-op.
func (r *Router) Unsubscribe(category Category, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.handlers[category]
	for i, sub := range subs {
		if sub.id == id {
			r.handlers[category] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Dispatch parses a raw frame and invokes the handlers for its category.
// Malformed frames are logged and discarded; processing of later frames is unaffected.
func (r *Router) Dispatch(raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		frameDecodeFailures.Inc()
		r.logger.Warn("Discarding undecodable notification frame: %v", err)
		return
	}

	category := CategoryForType(frame.Type)
	framesReceived.WithLabelValues(string(category)).Inc()
	if category == CategoryGeneric && frame.Type != WireTypeNotification {
		r.logger.Debug("Unrecognized frame type %q routed as generic", frame.Type)
	}

	r.emit(category, frame)
}

// emit invokes the category's handlers in registration order. Handlers run
// outside the router lock so they may subscribe, unsubscribe, or drive the
// connection without deadlocking.
func (r *Router) emit(category Category, frame Frame) {
	r.mu.RLock()
	subs := make([]subscription, len(r.handlers[category]))
	copy(subs, r.handlers[category])
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(frame)
	}
}

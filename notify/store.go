package notify

import (
	"slices"
	"sync"
	"time"

	"github.com/medibook/realtime/internal/slogging"
)

// DefaultDedupWindow is the time window within which two frames carrying the
// same category and appointment id are treated as one business event
const DefaultDedupWindow = 3 * time.Second

// Store owns the deduplicated, ordered notification history and the unread
// counter for one authenticated session. It is not persisted: it starts empty
// at login and is discarded at logout.
//
// History is ordered newest-first by arrival, not by server timestamp, so a
// late-arriving old event still appears at the top.
type Store struct {
	mu      sync.RWMutex
	history []Notification
	unread  int
	window  time.Duration
	alerter Alerter
	logger  *slogging.Logger
}

// NewStore creates an empty store. A zero or negative window falls back to
// DefaultDedupWindow. A nil alerter disables local alerts.
func NewStore(window time.Duration, alerter Alerter, logger *slogging.Logger) *Store {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if logger == nil {
		logger = slogging.Get()
	}
	return &Store{
		window:  window,
		alerter: alerter,
		logger:  logger,
	}
}

// Add inserts a candidate notification unless an existing entry describes the
// same business event. Duplicates cause no mutation. On success the candidate
// is prepended to history, the unread counter is incremented, and a local
// alert is attempted best-effort. Returns true when the candidate was stored.
func (s *Store) Add(candidate Notification) bool {
	s.mu.Lock()
	if s.isDuplicateLocked(candidate) {
		s.mu.Unlock()
		duplicatesDropped.WithLabelValues(string(candidate.Category)).Inc()
		s.logger.Debug("Dropping duplicate notification, key %s", candidate.DedupKey(s.window))
		return false
	}

	s.history = slices.Insert(s.history, 0, candidate)
	s.unread++
	s.mu.Unlock()

	notificationsStored.WithLabelValues(string(candidate.Category)).Inc()

	if s.alerter != nil {
		if err := s.alerter.Alert(candidate); err != nil {
			s.logger.Debug("Local alert skipped: %v", err)
		}
	}

	return true
}

// isDuplicateLocked reports whether an existing entry describes the same
// event: same id, or same category and appointment id with a timestamp within
// the dedup window of the candidate's. The window can merge genuinely distinct
// events that hit the same appointment in quick succession.
func (s *Store) isDuplicateLocked(candidate Notification) bool {
	correlation := candidate.CorrelationID()

	for i := range s.history {
		existing := &s.history[i]

		if candidate.ID != "" && existing.ID == candidate.ID {
			return true
		}

		if correlation != "" &&
			existing.Category == candidate.Category &&
			existing.CorrelationID() == correlation &&
			absDuration(existing.Timestamp.Sub(candidate.Timestamp)) <= s.window {
			return true
		}
	}
	return false
}

// MarkAsRead flags the notification with the given id as read and decrements
// the unread counter, floored at zero. Unknown ids and already-read entries
// are no-ops. Returns true when a transition happened.
func (s *Store) MarkAsRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.history {
		if s.history[i].ID == id {
			if s.history[i].Read {
				return false
			}
			s.history[i].Read = true
			if s.unread > 0 {
				s.unread--
			}
			return true
		}
	}
	return false
}

// MarkAllAsRead flags every notification as read and resets the unread counter
func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.history {
		s.history[i].Read = true
	}
	s.unread = 0
}

// Clear empties the history and resets the unread counter. It does not touch
// the connection.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.unread = 0
}

// Notifications returns a copy of the history, newest first
func (s *Store) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Notification, len(s.history))
	copy(out, s.history)
	return out
}

// UnreadCount returns the number of unread notifications
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// Len returns the history length
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

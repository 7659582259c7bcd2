package notify

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlerter struct {
	alerts []Notification
	err    error
}

func (a *recordingAlerter) Alert(n Notification) error {
	a.alerts = append(a.alerts, n)
	return a.err
}

func createdNotification(id, appointmentID string, ts time.Time) Notification {
	return NewNotification(CategoryAppointmentCreated, Frame{
		Type:          WireTypeAppointmentCreated,
		ID:            id,
		AppointmentID: FlexibleID(appointmentID),
		DoctorName:    "Smith",
		Date:          "2024-06-01",
		Time:          "09:00",
	}, ts)
}

// assertUnreadInvariant checks unreadCount == count(history, read == false)
func assertUnreadInvariant(t *testing.T, s *Store) {
	t.Helper()
	unread := 0
	for _, n := range s.Notifications() {
		if !n.Read {
			unread++
		}
	}
	assert.Equal(t, unread, s.UnreadCount())
}

func TestStoreAdd(t *testing.T) {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("stores distinct notifications newest first", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)

		for i := 0; i < 5; i++ {
			n := createdNotification(fmt.Sprintf("n-%d", i), fmt.Sprintf("appt-%d", i), base.Add(time.Duration(i)*time.Minute))
			assert.True(t, s.Add(n))
			assertUnreadInvariant(t, s)
		}

		history := s.Notifications()
		require.Len(t, history, 5)
		assert.Equal(t, "n-4", history[0].ID, "most recently added entry must be first")
		assert.Equal(t, "n-0", history[4].ID)
		assert.Equal(t, 5, s.UnreadCount())
	})

	t.Run("same id is a duplicate", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)

		require.True(t, s.Add(createdNotification("n-1", "appt-1", base)))
		// Far outside the window, but identity wins
		assert.False(t, s.Add(createdNotification("n-1", "appt-other", base.Add(time.Hour))))

		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 1, s.UnreadCount())
	})

	t.Run("same category and correlation within window is a duplicate", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)

		require.True(t, s.Add(createdNotification("", "42", base)))
		assert.False(t, s.Add(createdNotification("", "42", base.Add(2*time.Second))))

		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 1, s.UnreadCount())
	})

	t.Run("same correlation outside window is distinct", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)

		require.True(t, s.Add(createdNotification("", "42", base)))
		assert.True(t, s.Add(createdNotification("", "42", base.Add(10*time.Second))))

		assert.Equal(t, 2, s.Len())
	})

	t.Run("same correlation different category is distinct", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)

		require.True(t, s.Add(createdNotification("", "42", base)))
		cancelled := NewNotification(CategoryAppointmentCancelled, Frame{
			Type:          WireTypeAppointmentCancelled,
			AppointmentID: "42",
		}, base.Add(time.Second))
		assert.True(t, s.Add(cancelled))

		assert.Equal(t, 2, s.Len())
	})

	t.Run("missing correlation never merges distinct events", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)

		a := NewNotification(CategoryGeneric, Frame{Type: WireTypeNotification, Title: "a"}, base)
		b := NewNotification(CategoryGeneric, Frame{Type: WireTypeNotification, Title: "b"}, base)
		assert.True(t, s.Add(a))
		assert.True(t, s.Add(b))

		assert.Equal(t, 2, s.Len())
	})

	t.Run("duplicate causes no mutation", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)

		require.True(t, s.Add(createdNotification("n-1", "42", base)))
		before := s.Notifications()

		assert.False(t, s.Add(createdNotification("n-1", "42", base.Add(time.Second))))
		assert.Equal(t, before, s.Notifications())
		assert.Equal(t, 1, s.UnreadCount())
	})
}

func TestStoreAlerts(t *testing.T) {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("alert raised for every stored notification", func(t *testing.T) {
		alerter := &recordingAlerter{}
		s := NewStore(3*time.Second, alerter, nil)

		s.Add(createdNotification("n-1", "1", base))
		s.Add(createdNotification("n-2", "2", base))
		s.Add(createdNotification("n-1", "1", base)) // duplicate, no alert

		assert.Len(t, alerter.alerts, 2)
	})

	t.Run("alert failure does not affect the store", func(t *testing.T) {
		alerter := &recordingAlerter{err: errors.New("permission denied")}
		s := NewStore(3*time.Second, alerter, nil)

		assert.True(t, s.Add(createdNotification("n-1", "1", base)))
		assert.Equal(t, 1, s.Len())
		assert.Equal(t, 1, s.UnreadCount())
	})

	t.Run("nil alerter is tolerated", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)
		assert.True(t, s.Add(createdNotification("n-1", "1", base)))
	})
}

func TestStoreMarkAsRead(t *testing.T) {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("marks and decrements", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)
		s.Add(createdNotification("n-1", "1", base))
		s.Add(createdNotification("n-2", "2", base))

		assert.True(t, s.MarkAsRead("n-1"))
		assert.Equal(t, 1, s.UnreadCount())
		assertUnreadInvariant(t, s)

		for _, n := range s.Notifications() {
			if n.ID == "n-1" {
				assert.True(t, n.Read)
			}
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)
		s.Add(createdNotification("n-1", "1", base))

		assert.False(t, s.MarkAsRead("nope"))
		assert.Equal(t, 1, s.UnreadCount())
	})

	t.Run("repeated mark never drives counter below zero", func(t *testing.T) {
		s := NewStore(3*time.Second, nil, nil)
		s.Add(createdNotification("n-1", "1", base))

		assert.True(t, s.MarkAsRead("n-1"))
		assert.False(t, s.MarkAsRead("n-1"))
		assert.False(t, s.MarkAsRead("n-1"))
		assert.Equal(t, 0, s.UnreadCount())
		assertUnreadInvariant(t, s)
	})
}

func TestStoreMarkAllAsRead(t *testing.T) {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s := NewStore(3*time.Second, nil, nil)

	for i := 0; i < 3; i++ {
		s.Add(createdNotification(fmt.Sprintf("n-%d", i), fmt.Sprintf("%d", i), base))
	}
	require.Equal(t, 3, s.UnreadCount())

	s.MarkAllAsRead()

	assert.Equal(t, 0, s.UnreadCount())
	for _, n := range s.Notifications() {
		assert.True(t, n.Read)
	}
	assertUnreadInvariant(t, s)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.UnreadCount())
}

func TestStoreUnreadAccounting(t *testing.T) {
	// Invariant must hold after every operation in a mixed sequence
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s := NewStore(3*time.Second, nil, nil)

	ops := []func(){
		func() { s.Add(createdNotification("a", "1", base)) },
		func() { s.Add(createdNotification("b", "2", base)) },
		func() { s.MarkAsRead("a") },
		func() { s.Add(createdNotification("a", "1", base)) }, // duplicate
		func() { s.Add(createdNotification("c", "3", base)) },
		func() { s.MarkAsRead("missing") },
		func() { s.MarkAllAsRead() },
		func() { s.Add(createdNotification("d", "4", base)) },
		func() { s.Clear() },
		func() { s.Add(createdNotification("e", "5", base)) },
	}

	for i, op := range ops {
		op()
		t.Run(fmt.Sprintf("after op %d", i), func(t *testing.T) {
			assertUnreadInvariant(t, s)
		})
	}
}

func TestStoreRedeliveryScenario(t *testing.T) {
	// connect → appointmentCreated for appointment 42 → identical redelivery
	// two time-units later stays deduplicated
	s := NewStore(3*time.Second, nil, nil)
	arrival := time.Date(2024, 6, 1, 8, 55, 0, 0, time.UTC)

	frame := Frame{
		Type:          WireTypeAppointmentCreated,
		AppointmentID: "42",
		DoctorName:    "Smith",
		Date:          "2024-06-01",
		Time:          "09:00",
	}

	first := NewNotification(CategoryAppointmentCreated, frame, arrival)
	require.True(t, s.Add(first))

	history := s.Notifications()
	require.Len(t, history, 1)
	assert.Equal(t, 1, s.UnreadCount())
	assert.Equal(t, CategoryAppointmentCreated, history[0].Category)
	assert.Contains(t, history[0].Message, "Smith")
	assert.Contains(t, history[0].Message, "2024-06-01")

	redelivery := NewNotification(CategoryAppointmentCreated, frame, arrival.Add(2*time.Second))
	assert.False(t, s.Add(redelivery))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.UnreadCount())
}

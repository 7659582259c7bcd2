package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category classifies a notification for routing and display
type Category string

const (
	// CategoryAppointmentCreated is emitted when the server confirms a new booking
	CategoryAppointmentCreated Category = "appointment_created"
	// CategoryAppointmentCancelled is emitted when a booking is cancelled
	CategoryAppointmentCancelled Category = "appointment_cancelled"
	// CategoryStatusChanged is emitted when an appointment changes status
	CategoryStatusChanged Category = "status_changed"
	// CategoryGeneric covers plain notifications and any unrecognized frame type
	CategoryGeneric Category = "generic"

	// Connection lifecycle pseudo-categories. These never correspond to stored
	// notifications; they let callers observe transport state transitions.
	CategoryConnect    Category = "connect"
	CategoryDisconnect Category = "disconnect"
)

// Wire-level type tags sent by the booking API
const (
	WireTypeAppointmentCreated   = "appointmentCreated"
	WireTypeAppointmentCancelled = "appointmentCancelled"
	WireTypeStatusChanged        = "status_changed"
	WireTypeNotification         = "notification"
)

// Valid reports whether the category is one callers may subscribe to
func (c Category) Valid() bool {
	switch c {
	case CategoryAppointmentCreated, CategoryAppointmentCancelled, CategoryStatusChanged,
		CategoryGeneric, CategoryConnect, CategoryDisconnect:
		return true
	default:
		return false
	}
}

// IsLifecycle reports whether the category describes the transport rather than a notification
func (c Category) IsLifecycle() bool {
	return c == CategoryConnect || c == CategoryDisconnect
}

// CategoryForType maps a wire type tag to a Category. Unrecognized or absent
// tags degrade to CategoryGeneric so the event stays visible instead of being dropped.
func CategoryForType(wireType string) Category {
	switch wireType {
	case WireTypeAppointmentCreated:
		return CategoryAppointmentCreated
	case WireTypeAppointmentCancelled:
		return CategoryAppointmentCancelled
	case WireTypeStatusChanged:
		return CategoryStatusChanged
	default:
		return CategoryGeneric
	}
}

// FlexibleID accepts JSON string or number values. The booking API is not
// consistent about how it encodes appointment ids.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("appointment id must be a string or number: %w", err)
	}
	*f = FlexibleID(n.String())
	return nil
}

// String returns the id as a string
func (f FlexibleID) String() string { return string(f) }

// Frame is one inbound message from the notification socket.
// All fields except Type are optional on the wire.
type Frame struct {
	Type          string     `json:"type"`
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title,omitempty"`
	Message       string     `json:"message,omitempty"`
	DoctorName    string     `json:"doctorName,omitempty"`
	Date          string     `json:"date,omitempty"`
	Time          string     `json:"time,omitempty"`
	AppointmentID FlexibleID `json:"appointmentId,omitempty"`
	OldStatus     string     `json:"oldStatus,omitempty"`
	NewStatus     string     `json:"newStatus,omitempty"`
	Timestamp     string     `json:"timestamp,omitempty"`
}

// appointmentSummary renders the human-readable appointment fragment from
// whichever display fields the frame carries
func (f Frame) appointmentSummary() string {
	summary := "Your appointment"
	if f.DoctorName != "" {
		summary += " with Dr. " + f.DoctorName
	}
	if f.Date != "" {
		summary += " on " + f.Date
	}
	if f.Time != "" {
		summary += " at " + f.Time
	}
	return summary
}

// Notification is the normalized, UI-facing unit derived from one Frame
type Notification struct {
	ID        string    `json:"id"`
	Category  Category  `json:"category"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Data      Frame     `json:"data"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotification normalizes a classified frame into a Notification.
// The server timestamp is used when present and parseable; otherwise the
// supplied arrival time stands in. Frames without an id get a client-generated one.
func NewNotification(category Category, f Frame, arrival time.Time) Notification {
	id := f.ID
	if id == "" {
		id = uuid.New().String()
	}

	ts := arrival
	if f.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, f.Timestamp); err == nil {
			ts = parsed
		}
	}

	return Notification{
		ID:        id,
		Category:  category,
		Title:     titleFor(category, f),
		Message:   messageFor(category, f),
		Data:      f,
		Timestamp: ts,
	}
}

func titleFor(category Category, f Frame) string {
	if f.Title != "" {
		return f.Title
	}
	switch category {
	case CategoryAppointmentCreated:
		return "Appointment Booked"
	case CategoryAppointmentCancelled:
		return "Appointment Cancelled"
	case CategoryStatusChanged:
		return "Appointment Status Updated"
	default:
		return "Notification"
	}
}

func messageFor(category Category, f Frame) string {
	if f.Message != "" {
		return f.Message
	}
	switch category {
	case CategoryAppointmentCreated:
		return f.appointmentSummary() + " has been booked."
	case CategoryAppointmentCancelled:
		return f.appointmentSummary() + " has been cancelled."
	case CategoryStatusChanged:
		if f.OldStatus != "" && f.NewStatus != "" {
			return fmt.Sprintf("Your appointment status changed from %s to %s.", f.OldStatus, f.NewStatus)
		}
		return "Your appointment status has been updated."
	default:
		return "You have a new notification."
	}
}

// CorrelationID returns the business identifier used to recognize that two
// frames describe the same real-world event. Empty when the frame carried none.
func (n Notification) CorrelationID() string {
	return n.Data.AppointmentID.String()
}

// DedupKey derives the identity used for duplicate detection: the explicit
// server id when present, otherwise category, correlation value and a coarse
// time bucket of the given width.
func (n Notification) DedupKey(window time.Duration) string {
	if n.Data.ID != "" {
		return "id:" + n.Data.ID
	}
	bucket := int64(0)
	if window > 0 {
		bucket = n.Timestamp.Truncate(window).Unix()
	}
	return fmt.Sprintf("%s|%s|%d", n.Category, n.CorrelationID(), bucket)
}

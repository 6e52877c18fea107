package audit

import "time"

// Event is an immutable, append-only trail record of orchestration decisions.
//
// Invariants:
// - Events are never updated or deleted.
// - Appending is best-effort; call handling must not block on audit failures.

type Event struct {
	ID     string `json:"id" db:"id"`
	CallID string `json:"call_id" db:"call_id"`

	Type EventType `json:"type" db:"type"`

	Caller     string `json:"caller,omitempty" db:"caller"`
	Importance string `json:"importance,omitempty" db:"importance"`

	// Channels lists the notification channels involved (escalation events).
	Channels []string `json:"channels,omitempty" db:"channels"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeEscalation  EventType = "call_escalated"
	EventTypeTermination EventType = "call_terminated"
)

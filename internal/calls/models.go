package calls

import "time"

// Record summarizes one phone call end-to-end.
//
// Invariants:
// - StartedAt is written once, at the first event for the call, and never overwritten.
// - EndedAt and DurationSeconds are written at most once; the first termination wins.
// - NotifiedChannels only grows (set union), never shrinks.

type Record struct {
	CallID  string `json:"call_id" db:"call_id"`
	Caller  string `json:"caller" db:"caller"`

	Topic      string     `json:"topic" db:"topic"`
	Summary    string     `json:"summary" db:"summary"`
	Importance Importance `json:"importance" db:"importance"`
	State      State      `json:"state" db:"state"`

	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DurationSeconds *int       `json:"duration_seconds,omitempty" db:"duration_seconds"`

	NotifiedChannels ChannelSet `json:"notified_channels" db:"notified_channels"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (r Record) Terminated() bool { return r.EndedAt != nil }

// State is the per-call lifecycle position, computed once per webhook event
// rather than re-derived from field presence checks.

type State string

const (
	StateGreeting   State = "greeting"
	StateListening  State = "listening"
	StateTerminated State = "terminated"
)

// Importance classifies how much a conversation matters. Only set membership
// is meaningful; there is no total order of urgency.

type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceBusiness Importance = "business"
	ImportanceCasual   Importance = "casual"
	ImportanceSpam     Importance = "spam"
)

func (i Importance) Valid() bool {
	switch i {
	case ImportanceCritical, ImportanceBusiness, ImportanceCasual, ImportanceSpam:
		return true
	default:
		return false
	}
}

// EscalationEligible reports whether a call of this importance should be
// brought to a human operator.
func (i Importance) EscalationEligible() bool {
	return i == ImportanceCritical || i == ImportanceBusiness
}

// ParseImportance maps free-form classifier output onto the enumeration,
// falling back to casual for anything unrecognized.
func ParseImportance(s string) Importance {
	i := Importance(s)
	if !i.Valid() {
		return ImportanceCasual
	}
	return i
}

package conversation

import "strings"

// Turn is one utterance in a call, attributed to a speaker.
//
// Invariants:
// - Turns are immutable once appended.
// - A call's turns form an ordered, append-only sequence keyed by call id.

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Role string

const (
	RoleCaller    Role = "caller"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCaller, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

func (t Turn) Valid() bool {
	return t.Role.Valid() && strings.TrimSpace(t.Content) != ""
}

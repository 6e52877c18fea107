package intelligence

import (
	"context"

	"voice-concierge/internal/calls"
	"voice-concierge/internal/conversation"
)

// Gateway is the contract with the language service: generate one assistant
// reply over a turn history, and classify the importance of a (possibly
// extended) history. Classification always reads the entire history; it is
// never incremental.

type Gateway interface {
	GenerateReply(ctx context.Context, turns []conversation.Turn) (Reply, error)
	Classify(ctx context.Context, turns []conversation.Turn) (Classification, error)
}

type Reply struct {
	Text     string `json:"reply"`
	Language string `json:"language"`
}

type Classification struct {
	Importance calls.Importance `json:"importance"`
	Topic      string           `json:"topic"`
	Summary    string           `json:"summary"`
}

package orchestrator

import (
	"context"
	"slices"

	"voice-concierge/internal/calls"
	"voice-concierge/internal/conversation"
	"voice-concierge/internal/intelligence"
)

// SimulationResult mirrors a single live exchange: the generated reply and the
// classification of the extended conversation.
type SimulationResult struct {
	Reply    string                      `json:"reply"`
	Language string                      `json:"language"`
	Analysis intelligence.Classification `json:"analysis"`
}

const fallbackReply = "I'm sorry, I couldn't process that just now. Could you repeat it?"

// Simulate runs the reply and classification steps over a caller-supplied
// conversation without touching the call record or the dispatcher.
//
// This path is demo-facing, so unlike the call path it degrades gracefully:
// any downstream failure yields a safe fallback instead of an error.
func (e *Engine) Simulate(ctx context.Context, turns []conversation.Turn) (SimulationResult, error) {
	reply, err := e.gateway.GenerateReply(ctx, turns)
	if err != nil {
		e.log.Warn("simulation reply failed", "err", err)
		return SimulationResult{
			Reply:    fallbackReply,
			Language: "en-US",
			Analysis: fallbackAnalysis(),
		}, nil
	}

	extended := append(slices.Clone(turns), conversation.Turn{
		Role:    conversation.RoleAssistant,
		Content: reply.Text,
	})
	analysis, err := e.gateway.Classify(ctx, extended)
	if err != nil {
		e.log.Warn("simulation classification failed", "err", err)
		analysis = fallbackAnalysis()
	}

	return SimulationResult{
		Reply:    reply.Text,
		Language: reply.Language,
		Analysis: analysis,
	}, nil
}

func fallbackAnalysis() intelligence.Classification {
	return intelligence.Classification{
		Importance: calls.ImportanceCasual,
		Topic:      "Unclassified",
		Summary:    "Classification unavailable.",
	}
}

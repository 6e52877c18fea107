package intelligence

import (
	"context"

	"voice-concierge/internal/conversation"
)

// MockGateway is a scriptable Gateway for tests.

type MockGateway struct {
	ReplyFunc    func(ctx context.Context, turns []conversation.Turn) (Reply, error)
	ClassifyFunc func(ctx context.Context, turns []conversation.Turn) (Classification, error)

	ReplyCalls    int
	ClassifyCalls int
}

func (m *MockGateway) GenerateReply(ctx context.Context, turns []conversation.Turn) (Reply, error) {
	m.ReplyCalls++
	if m.ReplyFunc != nil {
		return m.ReplyFunc(ctx, turns)
	}
	return Reply{Text: "Understood.", Language: "en-US"}, nil
}

func (m *MockGateway) Classify(ctx context.Context, turns []conversation.Turn) (Classification, error) {
	m.ClassifyCalls++
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, turns)
	}
	return Classification{Importance: "casual", Topic: "General", Summary: "A short chat."}, nil
}

package conversation

import (
	"context"
	"errors"
	"sync"
)

var ErrInvalidTurn = errors.New("conversation: invalid turn")

// Store persists the ordered turn sequence of a call.
//
// Implementations must provide per-key read-your-writes consistency:
// a History immediately following an Append for the same call id must
// observe the appended turn.

type Store interface {
	Append(ctx context.Context, callID string, t Turn) error
	History(ctx context.Context, callID string) ([]Turn, error)
}

// MemoryStore is an in-memory turn store for tests and local development.

type MemoryStore struct {
	mu    sync.Mutex
	turns map[string][]Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: map[string][]Turn{}}
}

func (s *MemoryStore) Append(ctx context.Context, callID string, t Turn) error {
	if callID == "" {
		return errors.New("conversation: call id required")
	}
	if !t.Valid() {
		return ErrInvalidTurn
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[callID] = append(s.turns[callID], t)
	return nil
}

func (s *MemoryStore) History(ctx context.Context, callID string) ([]Turn, error) {
	if callID == "" {
		return nil, errors.New("conversation: call id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns[callID]))
	copy(out, s.turns[callID])
	return out, nil
}

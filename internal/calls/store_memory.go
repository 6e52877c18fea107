package calls

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory record store for tests and local development.

type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}}
}

func (s *MemoryStore) Get(ctx context.Context, callID string) (Record, error) {
	if callID == "" {
		return Record{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[callID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.CallID == "" {
		return Record{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[rec.CallID]
	if !ok {
		if rec.NotifiedChannels == nil {
			rec.NotifiedChannels = NewChannelSet()
		}
		s.records[rec.CallID] = cloneRecord(rec)
		return cloneRecord(rec), nil
	}

	// StartedAt is immutable; channels only grow.
	rec.StartedAt = existing.StartedAt
	rec.EndedAt = existing.EndedAt
	rec.DurationSeconds = existing.DurationSeconds
	rec.NotifiedChannels = existing.NotifiedChannels.Union(rec.NotifiedChannels)
	s.records[rec.CallID] = cloneRecord(rec)
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Apply(ctx context.Context, callID string, u Update) (Record, error) {
	if callID == "" {
		return Record{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[callID]
	var rec Record
	if ok {
		rec = merge(existing, u)
	} else {
		rec = fromUpdate(callID, u)
	}
	s.records[callID] = cloneRecord(rec)
	return cloneRecord(rec), nil
}

func cloneRecord(rec Record) Record {
	out := rec
	out.NotifiedChannels = rec.NotifiedChannels.Union(nil)
	if rec.EndedAt != nil {
		ended := *rec.EndedAt
		out.EndedAt = &ended
	}
	if rec.DurationSeconds != nil {
		dur := *rec.DurationSeconds
		out.DurationSeconds = &dur
	}
	return out
}

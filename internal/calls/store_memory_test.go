package calls

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreUpsertKeepsStartedAt(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	first := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := s.Upsert(ctx, Record{
		CallID:    "CA1",
		Caller:    "+15551234567",
		State:     StateGreeting,
		StartedAt: first,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// A later upsert must not move StartedAt.
	_, err = s.Upsert(ctx, Record{
		CallID:    "CA1",
		Caller:    "+15551234567",
		State:     StateGreeting,
		StartedAt: first.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	rec, err := s.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rec.StartedAt.Equal(first) {
		t.Fatalf("StartedAt overwritten: %v", rec.StartedAt)
	}
}

func TestMemoryStoreApplyChannelsOnlyGrow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	rec, err := s.Apply(ctx, "CA1", Update{
		Caller:   "+1555",
		State:    StateListening,
		Channels: NewChannelSet("slack"),
		Now:      now,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !rec.NotifiedChannels.Has("slack") {
		t.Fatalf("expected slack channel recorded")
	}

	// Update with an empty channel set must not shrink the stored set.
	rec, err = s.Apply(ctx, "CA1", Update{State: StateListening, Now: now.Add(time.Minute)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !rec.NotifiedChannels.Has("slack") {
		t.Fatalf("channels shrank on empty update")
	}

	rec, err = s.Apply(ctx, "CA1", Update{
		State:    StateListening,
		Channels: NewChannelSet("telegram"),
		Now:      now.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !rec.NotifiedChannels.Has("slack") || !rec.NotifiedChannels.Has("telegram") {
		t.Fatalf("expected union, got %v", rec.NotifiedChannels.List())
	}
}

func TestMemoryStoreFirstTerminationWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	first := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	dur := 42

	rec, err := s.Apply(ctx, "CA1", Update{
		State:           StateTerminated,
		EndedAt:         &first,
		DurationSeconds: &dur,
		Now:             first,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if rec.EndedAt == nil || !rec.EndedAt.Equal(first) {
		t.Fatalf("expected EndedAt %v, got %v", first, rec.EndedAt)
	}
	if rec.DurationSeconds == nil || *rec.DurationSeconds != 42 {
		t.Fatalf("expected duration 42, got %v", rec.DurationSeconds)
	}

	// A redelivered termination must not rewrite the finalized fields.
	later := first.Add(time.Minute)
	otherDur := 99
	rec, err = s.Apply(ctx, "CA1", Update{
		State:           StateTerminated,
		EndedAt:         &later,
		DurationSeconds: &otherDur,
		Now:             later,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !rec.EndedAt.Equal(first) {
		t.Fatalf("EndedAt overwritten: %v", rec.EndedAt)
	}
	if *rec.DurationSeconds != 42 {
		t.Fatalf("DurationSeconds overwritten: %v", *rec.DurationSeconds)
	}
}

func TestMemoryStoreApplyCreatesWhenMissing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	rec, err := s.Apply(ctx, "CA9", Update{
		Caller:     "+1555",
		Topic:      "billing",
		Importance: ImportanceBusiness,
		State:      StateListening,
		Now:        now,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !rec.StartedAt.Equal(now) {
		t.Fatalf("expected StartedAt stamped on create, got %v", rec.StartedAt)
	}
	if rec.Terminated() {
		t.Fatalf("fresh record must not be terminated")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

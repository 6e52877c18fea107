package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("calls: record not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

// Store persists call records.
//
// Write-once rules are enforced here, not by callers:
// - Upsert never overwrites StartedAt of an existing record.
// - Apply never overwrites EndedAt or DurationSeconds once set.
// - Notified channels are merged by union on every write.

type Store interface {
	Get(ctx context.Context, callID string) (Record, error)
	List(ctx context.Context) ([]Record, error)

	// Upsert creates the record for a call or refreshes its mutable fields.
	Upsert(ctx context.Context, rec Record) (Record, error)

	// Apply folds a per-event update into the record, creating it if the
	// greeting event was never observed.
	Apply(ctx context.Context, callID string, u Update) (Record, error)
}

// Update carries the outcome of one processed event.
type Update struct {
	Caller     string
	Topic      string
	Summary    string
	Importance Importance
	State      State

	// Channels are unioned into the record's notified set.
	Channels ChannelSet

	// EndedAt / DurationSeconds are applied only if not already set.
	EndedAt         *time.Time
	DurationSeconds *int

	// Now stamps UpdatedAt and, on create, StartedAt.
	Now time.Time
}

// merge folds u into rec respecting the write-once rules.
func merge(rec Record, u Update) Record {
	if u.Caller != "" && rec.Caller == "" {
		rec.Caller = u.Caller
	}
	rec.Topic = u.Topic
	rec.Summary = u.Summary
	rec.Importance = u.Importance
	rec.State = u.State
	rec.NotifiedChannels = rec.NotifiedChannels.Union(u.Channels)
	if rec.EndedAt == nil && u.EndedAt != nil {
		ended := *u.EndedAt
		rec.EndedAt = &ended
	}
	if rec.DurationSeconds == nil && u.DurationSeconds != nil {
		dur := *u.DurationSeconds
		rec.DurationSeconds = &dur
	}
	if rec.EndedAt != nil {
		rec.State = StateTerminated
	}
	rec.UpdatedAt = u.Now
	return rec
}

func fromUpdate(callID string, u Update) Record {
	rec := Record{
		CallID:           callID,
		Caller:           u.Caller,
		StartedAt:        u.Now,
		NotifiedChannels: NewChannelSet(),
	}
	return merge(rec, u)
}

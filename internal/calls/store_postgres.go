package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"voice-concierge/pkg/utils"
)

// PostgresStore persists call records in the call_records table.
//
// Expected schema:
//
//	CREATE TABLE call_records (
//	    call_id          TEXT PRIMARY KEY,
//	    caller           TEXT NOT NULL DEFAULT '',
//	    topic            TEXT NOT NULL DEFAULT '',
//	    summary          TEXT NOT NULL DEFAULT '',
//	    importance       TEXT NOT NULL DEFAULT 'casual',
//	    state            TEXT NOT NULL DEFAULT 'greeting',
//	    started_at       TIMESTAMPTZ NOT NULL,
//	    ended_at         TIMESTAMPTZ,
//	    duration_seconds INT,
//	    notified_channels JSONB NOT NULL DEFAULT '[]',
//	    updated_at       TIMESTAMPTZ NOT NULL
//	);
//
// Read-modify-write sequences run inside a transaction with SELECT ... FOR UPDATE
// so concurrent redeliveries for the same call cannot lose channel merges or
// overwrite the write-once fields.

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `call_id, caller, topic, summary, importance, state, started_at, ended_at, duration_seconds, notified_channels, updated_at`

func (s *PostgresStore) Get(ctx context.Context, callID string) (Record, error) {
	if callID == "" {
		return Record{}, ErrInvalidArgument
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM call_records WHERE call_id = $1`, callID)
	return scanRecord(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM call_records ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.CallID == "" {
		return Record{}, ErrInvalidArgument
	}
	if rec.NotifiedChannels == nil {
		rec.NotifiedChannels = NewChannelSet()
	}

	var out Record
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := lockRecord(ctx, tx, rec.CallID)
		if errors.Is(err, ErrNotFound) {
			out = rec
			return insertRecord(ctx, tx, out)
		}
		if err != nil {
			return err
		}
		rec.StartedAt = existing.StartedAt
		rec.EndedAt = existing.EndedAt
		rec.DurationSeconds = existing.DurationSeconds
		rec.NotifiedChannels = existing.NotifiedChannels.Union(rec.NotifiedChannels)
		out = rec
		return updateRecord(ctx, tx, out)
	})
	if err != nil {
		return Record{}, err
	}
	return out, nil
}

func (s *PostgresStore) Apply(ctx context.Context, callID string, u Update) (Record, error) {
	if callID == "" {
		return Record{}, ErrInvalidArgument
	}

	var out Record
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := lockRecord(ctx, tx, callID)
		if errors.Is(err, ErrNotFound) {
			out = fromUpdate(callID, u)
			return insertRecord(ctx, tx, out)
		}
		if err != nil {
			return err
		}
		out = merge(existing, u)
		return updateRecord(ctx, tx, out)
	})
	if err != nil {
		return Record{}, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var channels []byte
	err := row.Scan(
		&rec.CallID, &rec.Caller, &rec.Topic, &rec.Summary, &rec.Importance,
		&rec.State, &rec.StartedAt, &rec.EndedAt, &rec.DurationSeconds,
		&channels, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(channels, &rec.NotifiedChannels); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func lockRecord(ctx context.Context, tx *sql.Tx, callID string) (Record, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM call_records WHERE call_id = $1 FOR UPDATE`, callID)
	return scanRecord(row)
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec Record) error {
	channels, err := json.Marshal(rec.NotifiedChannels)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO call_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.CallID, rec.Caller, rec.Topic, rec.Summary, rec.Importance,
		rec.State, rec.StartedAt, rec.EndedAt, rec.DurationSeconds,
		channels, rec.UpdatedAt,
	)
	return err
}

func updateRecord(ctx context.Context, tx *sql.Tx, rec Record) error {
	channels, err := json.Marshal(rec.NotifiedChannels)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE call_records
		 SET caller = $2, topic = $3, summary = $4, importance = $5, state = $6,
		     ended_at = $7, duration_seconds = $8, notified_channels = $9, updated_at = $10
		 WHERE call_id = $1`,
		rec.CallID, rec.Caller, rec.Topic, rec.Summary, rec.Importance,
		rec.State, rec.EndedAt, rec.DurationSeconds, channels, rec.UpdatedAt,
	)
	return err
}

package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each call's turns in a Redis list under conv:<call_id>.
// RPUSH preserves append order; single-key operations give us the
// read-your-writes behavior the orchestrator relies on.
//
// TTL bounds retention so abandoned calls do not accumulate forever.

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

const defaultTurnTTL = 24 * time.Hour

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTurnTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func turnsKey(callID string) string { return "conv:" + callID }

func (s *RedisStore) Append(ctx context.Context, callID string, t Turn) error {
	if s.rdb == nil {
		return errors.New("conversation: redis client is nil")
	}
	if callID == "" {
		return errors.New("conversation: call id required")
	}
	if !t.Valid() {
		return ErrInvalidTurn
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	key := turnsKey(callID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.Expire(ctx, key, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) History(ctx context.Context, callID string) ([]Turn, error) {
	if s.rdb == nil {
		return nil, errors.New("conversation: redis client is nil")
	}
	if callID == "" {
		return nil, errors.New("conversation: call id required")
	}
	rows, err := s.rdb.LRange(ctx, turnsKey(callID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Turn, 0, len(rows))
	for _, row := range rows {
		var t Turn
		if err := json.Unmarshal([]byte(row), &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

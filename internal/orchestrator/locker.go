package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"voice-concierge/pkg/utils"
)

// Locker serializes event handling per call id. One phone call produces a
// serial event stream, but the provider delivers at least once; without the
// lock a redelivered event could interleave with the original and lose the
// channel merge.

type Locker interface {
	// Acquire blocks until the call's slot is free or ctx is done.
	// The returned release func must be called exactly once.
	Acquire(ctx context.Context, callID string) (release func(), err error)
}

// MemoryLocker is a per-key mutex table for single-process deployments and tests.

type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: map[string]*lockEntry{}}
}

func (l *MemoryLocker) Acquire(ctx context.Context, callID string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[callID]
	if !ok {
		e = &lockEntry{}
		l.locks[callID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, callID)
		}
		l.mu.Unlock()
	}, nil
}

// RedisLocker coordinates across processes using a TTL'd per-call lock key.

type RedisLocker struct {
	rdb *redis.Client

	// TTL bounds how long a crashed holder can block the call.
	TTL time.Duration
	// RetryInterval is the poll interval while the slot is held elsewhere.
	RetryInterval time.Duration
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, TTL: 30 * time.Second, RetryInterval: 50 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, callID string) (func(), error) {
	key := "calllock:" + callID
	for {
		ok, err := utils.AcquireCallLock(ctx, l.rdb, key, l.TTL)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Release uses a background context so lock cleanup survives
				// request cancellation; TTL covers the failure path.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = utils.ReleaseCallLock(releaseCtx, l.rdb, key)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.RetryInterval):
		}
	}
}

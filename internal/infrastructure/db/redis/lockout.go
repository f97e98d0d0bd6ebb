package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/thamco/customer-identity/internal/core/ports"
)

const (
	lockoutKeyPrefix   = "identity:lockout:"
	fieldFailedCount   = "failed_count"
	fieldLockedUntil   = "locked_until"
	lockoutIdleTimeout = 24 * time.Hour
)

// LockoutStore keeps failed sign-in counters in a Redis hash per user.
// Key format: identity:lockout:<user_id>
type LockoutStore struct {
	client redis.UniversalClient
}

func NewLockoutStore(client redis.UniversalClient) *LockoutStore {
	return &LockoutStore{client: client}
}

func (s *LockoutStore) Get(ctx context.Context, key string) (ports.LockoutState, error) {
	vals, err := s.client.HMGet(ctx, s.key(key), fieldFailedCount, fieldLockedUntil).Result()
	if err != nil {
		return ports.LockoutState{}, fmt.Errorf("lockout get: %w", err)
	}
	return parseState(vals), nil
}

// RecordFailure increments the failure counter. Once the counter reaches
// threshold the user is locked until now+window and the counter starts over.
func (s *LockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (ports.LockoutState, error) {
	k := s.key(key)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.HIncrBy(ctx, k, fieldFailedCount, 1)
		pipe.Expire(ctx, k, lockoutIdleTimeout)
		return nil
	})
	if err != nil {
		return ports.LockoutState{}, fmt.Errorf("lockout record: %w", err)
	}

	state := ports.LockoutState{FailedCount: int(incr.Val())}
	if state.FailedCount < threshold {
		return state, nil
	}

	state.LockedUntil = now.Add(window)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, fieldFailedCount, 0, fieldLockedUntil, state.LockedUntil.Unix())
		pipe.Expire(ctx, k, window)
		return nil
	})
	if err != nil {
		return ports.LockoutState{}, fmt.Errorf("lockout lock: %w", err)
	}
	return state, nil
}

func (s *LockoutStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("lockout clear: %w", err)
	}
	return nil
}

func (s *LockoutStore) key(userID string) string {
	return lockoutKeyPrefix + userID
}

func parseState(vals []interface{}) ports.LockoutState {
	var state ports.LockoutState
	if len(vals) != 2 {
		return state
	}
	if v, ok := vals[0].(string); ok {
		state.FailedCount, _ = strconv.Atoi(v)
	}
	if v, ok := vals[1].(string); ok {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil && unix > 0 {
			state.LockedUntil = time.Unix(unix, 0).UTC()
		}
	}
	return state
}

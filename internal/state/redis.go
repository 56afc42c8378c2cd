package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// stateTTL bounds how long an abandoned flow lingers. A user who walks
// away mid-flow gets a clean slate after an hour instead of having a
// later, unrelated message swallowed by the stale state.
const stateTTL = time.Hour

// RedisStore keeps conversation state in Redis, one JSON value per
// user, with a fixed TTL.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func stateKey(userID int64) string {
	return fmt.Sprintf("state:%d", userID)
}

func (s *RedisStore) Set(ctx context.Context, userID int64, st State) error {
	if st.IsNone() {
		return s.Clear(ctx, userID)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(userID), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("set state for %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID int64) (State, error) {
	data, err := s.rdb.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return None(), nil
	}
	if err != nil {
		return None(), fmt.Errorf("get state for %d: %w", userID, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		// Unreadable state is treated as no state.
		return None(), nil
	}
	return st, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.rdb.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear state for %d: %w", userID, err)
	}
	return nil
}

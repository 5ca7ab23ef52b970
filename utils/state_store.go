package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const statePrefix = "oauth:state:"

// StateStore holds single-use OAuth state tokens to mitigate CSRF.
type StateStore struct {
	rc     *redis.Client
	memory *expiringSet
}

// NewStateStore prefers Redis when rc is non-nil and keeps states in memory otherwise.
func NewStateStore(rc *redis.Client) *StateStore {
	return &StateStore{rc: rc, memory: newExpiringSet()}
}

// Save stores state with a TTL (10 minutes when ttl <= 0).
func (s *StateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return s.rc.Set(ctx, statePrefix+state, "1", ttl).Err()
	}
	s.memory.add(state, time.Now().Add(ttl))
	return nil
}

// Consume validates and removes a state token.
func (s *StateStore) Consume(ctx context.Context, state string) bool {
	if s.rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		v, err := s.rc.GetDel(ctx, statePrefix+state).Result()
		return err == nil && v != ""
	}
	return s.memory.take(state)
}

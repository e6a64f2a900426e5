package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vigil/internal/platform/redis"
	"vigil/internal/policy"
	id "vigil/pkg/domain"
)

// RedisStateStore mirrors per-session state snapshots into Redis so
// dashboards and other processes can read live session state without a
// round trip into the engine. Entries expire on their own; an engine
// crash never leaves stale "live" sessions behind.
type RedisStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStateStore wraps a Redis client as a state mirror.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisStateStore{client: client, ttl: ttl}
}

// SaveState writes the JSON state snapshot under the session's key.
func (s *RedisStateStore) SaveState(sessionID id.SessionID, state policy.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := stateKey(sessionID)
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

// LoadState reads a mirrored state snapshot, for read paths that must not
// touch the engine actor.
func (s *RedisStateStore) LoadState(ctx context.Context, sessionID id.SessionID) (*policy.State, error) {
	raw, err := s.client.Get(ctx, stateKey(sessionID)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("load session state: %w", err)
	}
	var state policy.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func stateKey(sessionID id.SessionID) string {
	return "vigil:session:" + sessionID.String() + ":state"
}

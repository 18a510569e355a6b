package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix namespaces comparison session keys in Redis.
const sessionKeyPrefix = "ranking:session:"

// RedisSessionStore is a Redis-backed implementation of SessionStore.
//
// Sessions are encoded with CBOR and stored without a TTL: abandoned sessions
// linger until replaced by the next Start for the same user, matching the
// in-memory store's behavior. Unlike the in-memory store, sessions survive a
// process restart. Update is read-modify-write with no conflict detection;
// the last writer wins.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a session store backed by the given Redis client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// sessionKey builds the Redis key for a user's session.
func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

// Start stores a fresh session, replacing any existing one for the user.
func (s *RedisSessionStore) Start(ctx context.Context, session *ComparisonSession) error {
	data, err := cbor.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get retrieves the user's live session.
func (s *RedisSessionStore) Get(ctx context.Context, userID string) (*ComparisonSession, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session ComparisonSession
	if err := cbor.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}

// Update overwrites the bounds of a live session.
func (s *RedisSessionStore) Update(ctx context.Context, userID string, low, high, comparisons int) error {
	session, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	session.Low = low
	session.High = high
	session.Comparisons = comparisons
	return s.Start(ctx, session)
}

// End removes the user's session unconditionally.
func (s *RedisSessionStore) End(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

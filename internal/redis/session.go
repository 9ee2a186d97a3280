package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps live login sessions so tokens can be revoked on logout.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

// Create stores a new session for userID and returns its id.
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	if err := s.client.Set(ctx, sessionKey(id), userID.String(), s.ttl).Err(); err != nil {
		return uuid.Nil, fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Lookup returns the user owning session id.
func (s *SessionStore) Lookup(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	val, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrSessionNotFound
		}
		return uuid.Nil, fmt.Errorf("lookup session: %w", err)
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	return userID, nil
}

func (s *SessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

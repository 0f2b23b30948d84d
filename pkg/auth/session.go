package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "giftlink:session:"

// SessionStore tracks live staff sessions by token jti so logout can
// revoke a token before it expires.
type SessionStore interface {
	Create(ctx context.Context, jti, merchantUserID string, ttl time.Duration) error
	Exists(ctx context.Context, jti string) (bool, error)
	Revoke(ctx context.Context, jti string) error
}

type redisCmdable interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSessionStore keeps sessions in Redis with the token lifetime as TTL.
type RedisSessionStore struct {
	client redisCmdable
}

// NewRedisSessionStore wraps an existing redis client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Create records the session for ttl.
func (s *RedisSessionStore) Create(ctx context.Context, jti, merchantUserID string, ttl time.Duration) error {
	if strings.TrimSpace(jti) == "" {
		return errors.New("session id is required")
	}
	if err := s.client.Set(ctx, sessionKey(jti), merchantUserID, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Exists reports whether the session is still live.
func (s *RedisSessionStore) Exists(ctx context.Context, jti string) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}
	if err := s.client.Get(ctx, sessionKey(jti)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get session: %w", err)
	}
	return true, nil
}

// Revoke deletes the session; revoking an unknown session is not an error.
func (s *RedisSessionStore) Revoke(ctx context.Context, jti string) error {
	if err := s.client.Del(ctx, sessionKey(jti)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func sessionKey(jti string) string {
	return sessionKeyPrefix + jti
}

// MemorySessionStore is a process-local SessionStore for single-instance
// deployments and tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time
	now      func() time.Time
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]time.Time), now: time.Now}
}

// Create records the session until now+ttl.
func (s *MemorySessionStore) Create(_ context.Context, jti, _ string, ttl time.Duration) error {
	if strings.TrimSpace(jti) == "" {
		return errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[jti] = s.now().Add(ttl)
	return nil
}

// Exists reports whether the session is recorded and unexpired.
func (s *MemorySessionStore) Exists(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.sessions[jti]
	if !ok {
		return false, nil
	}
	if !s.now().Before(expiresAt) {
		delete(s.sessions, jti)
		return false, nil
	}
	return true, nil
}

// Revoke removes the session.
func (s *MemorySessionStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, jti)
	return nil
}

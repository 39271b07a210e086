package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ResetStore holds single-use password reset tokens
type ResetStore interface {
	Save(ctx context.Context, token, userID string, ttl time.Duration) error
	// Consume returns the user id and deletes the token
	Consume(ctx context.Context, token string) (string, error)
}

type redisResetStore struct {
	client *redis.Client
}

func NewRedisResetStore(client *redis.Client) ResetStore {
	return &redisResetStore{client: client}
}

func resetKey(token string) string {
	return fmt.Sprintf("password_reset:%s", token)
}

func (s *redisResetStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, resetKey(token), userID, ttl).Err()
}

func (s *redisResetStore) Consume(ctx context.Context, token string) (string, error) {
	userID, err := s.client.GetDel(ctx, resetKey(token)).Result()
	if err == redis.Nil {
		return "", ErrInvalidResetToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read reset token: %w", err)
	}
	return userID, nil
}

type resetEntry struct {
	userID    string
	expiresAt time.Time
}

type memoryResetStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]resetEntry
}

func NewMemoryResetStore() ResetStore {
	return &memoryResetStore{now: time.Now, entries: make(map[string]resetEntry)}
}

func (s *memoryResetStore) Save(ctx context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = resetEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memoryResetStore) Consume(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	delete(s.entries, token)
	if !ok || s.now().After(e.expiresAt) {
		return "", ErrInvalidResetToken
	}
	return e.userID, nil
}

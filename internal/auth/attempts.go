package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// AttemptLimiter counts failed sign-in attempts per identifier
type AttemptLimiter interface {
	Blocked(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

type redisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// NewRedisLimiter keeps counters in Redis keys that expire after window
func NewRedisLimiter(client *redis.Client, max int, window time.Duration) AttemptLimiter {
	return &redisLimiter{client: client, max: max, window: window}
}

func attemptKey(identifier string) string {
	return fmt.Sprintf("signin_attempts:%s", strings.ToLower(identifier))
}

func (l *redisLimiter) Blocked(ctx context.Context, identifier string) (bool, error) {
	n, err := l.client.Get(ctx, attemptKey(identifier)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read attempts: %w", err)
	}
	return n >= l.max, nil
}

func (l *redisLimiter) RecordFailure(ctx context.Context, identifier string) error {
	key := attemptKey(identifier)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

func (l *redisLimiter) Reset(ctx context.Context, identifier string) error {
	return l.client.Del(ctx, attemptKey(identifier)).Err()
}

// memoryLimiter is the single-instance fallback when Redis is not configured
type memoryLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	now      func() time.Time
	failures map[string][]time.Time
}

func NewMemoryLimiter(max int, window time.Duration) AttemptLimiter {
	return &memoryLimiter{
		max:      max,
		window:   window,
		now:      time.Now,
		failures: make(map[string][]time.Time),
	}
}

func (l *memoryLimiter) recent(identifier string) []time.Time {
	key := strings.ToLower(identifier)
	cutoff := l.now().Add(-l.window)
	kept := l.failures[key][:0]
	for _, t := range l.failures[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.failures[key] = kept
	return kept
}

func (l *memoryLimiter) Blocked(ctx context.Context, identifier string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.recent(identifier)) >= l.max, nil
}

func (l *memoryLimiter) RecordFailure(ctx context.Context, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := strings.ToLower(identifier)
	l.failures[key] = append(l.recent(identifier), l.now())
	return nil
}

func (l *memoryLimiter) Reset(ctx context.Context, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, strings.ToLower(identifier))
	return nil
}

// Package lock serializes critical sections across API instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained is returned when the lock stays held by someone else past the retry budget.
var ErrNotObtained = errors.New("lock not obtained")

// Locker obtains a named lock. The returned release func must be called exactly once.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

type redisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker builds a Locker on top of bsm/redislock.
func NewRedisLocker(rdb *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 100),
	}
}

func (l *redisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	lk, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return func() {
		_ = lk.Release(context.WithoutCancel(ctx))
	}, nil
}

type noopLocker struct{}

// Noop returns a Locker that never blocks, used when Redis is not configured.
func Noop() Locker {
	return noopLocker{}
}

func (noopLocker) Obtain(context.Context, string) (func(), error) {
	return func() {}, nil
}

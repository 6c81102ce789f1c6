package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/angelmondragon/quotation-engine/pkg/redis"
)

// A cycle that outlives the TTL loses the lock to the next instance.
const defaultLockTTL = 2 * time.Hour

// Lock makes sure one cron-worker replica runs a cycle at a time.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	pkgredis.KV
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

// RedisLock holds a Redis key whose value is a per-acquisition token.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token func() string
	held  string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	case ttl <= 0:
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl, token: uuid.NewString}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := l.token()
	won, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if won {
		l.held = token
	}
	return won, nil
}

// Release deletes the key only while it still carries this instance's token.
// A lock that expired and was re-taken elsewhere is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.held == "" {
		return nil
	}
	current, err := l.store.Get(ctx, l.key)
	switch {
	case pkgredis.IsNil(err):
		l.held = ""
		return nil
	case err != nil:
		return fmt.Errorf("read lock token: %w", err)
	case current != l.held:
		l.held = ""
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.held = ""
	return nil
}

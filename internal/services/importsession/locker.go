package importsession

import (
	"context"
	"time"

	"github.com/Ramsey-B/tulip/pkg/redis"
)

// Lock is a held advisory lock on one table.
type Lock interface {
	Token() string
	Release(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) error
}

type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
	// Resume rebuilds a lock from the token persisted on the sync log.
	Resume(key, token string) Lock
}

type redisLocker struct {
	locker *redis.Locker
}

// NewRedisLocker backs sessions with the redis SET NX lock.
func NewRedisLocker(locker *redis.Locker) Locker {
	return redisLocker{locker: locker}
}

func (l redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.locker.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

func (l redisLocker) Resume(key, token string) Lock {
	return l.locker.Resume(key, token)
}

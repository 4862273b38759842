// Package lock provides short-lived advisory locks used to serialize a
// student's checkout attempts across API instances.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another holder owns the key.
var ErrLocked = errors.New("lock: already held")

// Locker acquires a lock on key for at most ttl.  The returned release
// function is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RedisLocker implements Locker with SET NX PX and a token-checked delete,
// so an expired holder never releases a lock taken over by someone else.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix}
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := l.prefix + ":" + key
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	released := false
	return func() {
		if released {
			return
		}
		released = true
		// the request context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{full}, token).Err()
	}, nil
}

// Nop is used when Redis is not configured.  Checkout then relies on the
// database row lock alone.
type Nop struct{}

func (Nop) Acquire(context.Context, string, time.Duration) (func(), error) { return func() {}, nil }

// New returns a RedisLocker, or Nop when rdb is nil.
func New(rdb *redis.Client, prefix string) Locker {
	if rdb == nil {
		return Nop{}
	}
	return NewRedisLocker(rdb, prefix)
}

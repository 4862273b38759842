package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRedisLocker(rdb, "checkout")
	ctx := context.Background()

	release, err := l.Acquire(ctx, "student:7", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "student:7", time.Minute); !errors.Is(err, ErrLocked) {
		t.Fatalf("second acquire err = %v, want ErrLocked", err)
	}
	release()
	release()

	again, err := l.Acquire(ctx, "student:7", time.Minute)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	again()
}

func TestRedisLockerStaleReleaseKeepsNewHolder(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedisLocker(rdb, "checkout")
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "student:9", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "student:9", time.Minute)
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	defer fresh()

	stale()
	if !mr.Exists("checkout:student:9") {
		t.Fatal("stale release removed the new holder's lock")
	}
}

func TestNewWithoutRedisIsNop(t *testing.T) {
	l := New(nil, "")
	release, err := l.Acquire(context.Background(), "k", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	release()
}

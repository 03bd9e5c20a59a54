package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// scanLockKey guards the scan tick so that only one instance repairs
// and enqueues schedules at a time. The drain path does not need it;
// the queue's atomic remove is its exclusivity boundary.
const scanLockKey = "autopost:lock:scan"

// DistributedLock is a Redis SETNX lock with an owner token so that
// only the acquiring instance can release or extend it.
type DistributedLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// AcquireLock attempts to take the lock. It returns nil (and no error)
// when another instance already holds it.
func AcquireLock(ctx context.Context, client *redis.Client, key string, ttl time.Duration) (*DistributedLock, error) {
	token := uuid.New().String()

	acquired, err := client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return nil, nil
	}

	return &DistributedLock{
		client: client,
		key:    key,
		token:  token,
		ttl:    ttl,
	}, nil
}

// Release deletes the lock only if this instance still owns it. The
// Lua script makes the check-and-delete atomic.
func (l *DistributedLock) Release(ctx context.Context) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.token).Result()
	return err
}

// Extend refreshes the TTL while this instance still owns the lock.
// It errors if ownership was lost, which callers must treat as a stop
// signal for the protected work.
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	script := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`
	result, err := l.client.Eval(ctx, script, []string{l.key}, l.token, ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("lock no longer owned by this instance")
	}

	l.ttl = ttl
	return nil
}

// Token returns the owner token, used by tests to verify ownership.
func (l *DistributedLock) Token() string {
	return l.token
}

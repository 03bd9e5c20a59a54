// Package queue implements the Redis-backed delay queue that smooths
// bursts of due schedules into a trickle. Entries are schedule IDs in a
// sorted set scored by their intended execution time.
package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DelayQueue manages the pending-execution sorted set in Redis.
// At most one entry per schedule ID exists at a time; InsertIfAbsent
// enforces this and Remove is the atomic claim boundary for consumers.
type DelayQueue struct {
	client *redis.Client
	// Pre-computed key (avoid per-call string allocations)
	pendingKey string
}

const keyPrefix = "autopost:"

// NewDelayQueue creates a delay queue and tests the connection
func NewDelayQueue(redisURL string) (*DelayQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &DelayQueue{
		client:     client,
		pendingKey: keyPrefix + "queue:pending",
	}, nil
}

// Client exposes the underlying Redis client so collaborators (the scan
// lock) can share one connection pool.
func (q *DelayQueue) Client() *redis.Client {
	return q.client
}

// InsertIfAbsent adds scheduleID scored by executeAt. It reports true
// when a new entry was created and false when the schedule was already
// pending; an existing entry's score is never changed, so a scan that
// runs again before the queue drains cannot duplicate or reshuffle work.
func (q *DelayQueue) InsertIfAbsent(ctx context.Context, scheduleID string, executeAt time.Time) (bool, error) {
	added, err := q.client.ZAddNX(ctx, q.pendingKey, redis.Z{
		Score:  float64(executeAt.UnixMilli()),
		Member: scheduleID,
	}).Result()
	if err != nil {
		return false, fmt.Errorf("failed to enqueue schedule %s: %w", scheduleID, err)
	}
	return added > 0, nil
}

// ClaimDue returns up to limit schedule IDs whose execution time is at
// or before due. This is only a range query; callers must Remove each
// ID to claim it exclusively.
func (q *DelayQueue) ClaimDue(ctx context.Context, due time.Time, limit int) ([]string, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.pendingKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(due.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	return ids, nil
}

// Remove deletes scheduleID from the pending set. Exactly one of any
// number of concurrent callers observes true; that caller owns the
// entry for this cycle.
func (q *DelayQueue) Remove(ctx context.Context, scheduleID string) (bool, error) {
	removed, err := q.client.ZRem(ctx, q.pendingKey, scheduleID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove schedule %s: %w", scheduleID, err)
	}
	return removed > 0, nil
}

// Pending returns the number of entries currently queued
func (q *DelayQueue) Pending(ctx context.Context) (int64, error) {
	n, err := q.client.ZCard(ctx, q.pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count pending schedules: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection
func (q *DelayQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	return nil
}

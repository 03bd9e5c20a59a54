// Package scheduler drives the two periodic ticks of the auto-post
// pipeline: a slow scan that repairs, processes, and enqueues due
// schedules, and a fast drain that claims queued entries and dispatches
// them to the processor.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/BrunoBianchi/Portyo-sub004/internal/errors"
	"github.com/BrunoBianchi/Portyo-sub004/internal/logger"
	"github.com/BrunoBianchi/Portyo-sub004/internal/metrics"
	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"github.com/redis/go-redis/v9"
)

// ScheduleStore is the persistence surface the scheduler needs.
type ScheduleStore interface {
	FindDue(ctx context.Context, now time.Time) ([]schedule.Schedule, error)
	FindStale(ctx context.Context, cadence schedule.Cadence, cutoff time.Time) ([]schedule.Schedule, error)
	FindByIDs(ctx context.Context, ids []string) ([]schedule.Schedule, error)
	Save(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error)
}

// Queue is the delay queue contract: timestamped membership with
// atomic insert and atomic claim-by-removal.
type Queue interface {
	InsertIfAbsent(ctx context.Context, scheduleID string, executeAt time.Time) (bool, error)
	ClaimDue(ctx context.Context, due time.Time, limit int) ([]string, error)
	Remove(ctx context.Context, scheduleID string) (bool, error)
	Pending(ctx context.Context) (int64, error)
}

// Processor runs the full publishing pipeline for one schedule.
type Processor interface {
	Process(ctx context.Context, s schedule.Schedule) error
}

// Scanner is the slow tick. Each pass repairs stranded next-run times,
// processes overdue schedules inline, and enqueues on-time ones with
// staggered execution timestamps.
type Scanner struct {
	store     ScheduleStore
	queue     Queue
	processor Processor
	client    *redis.Client

	overdueBuffer time.Duration
	staleCutoff   time.Duration
	spacing       time.Duration
	lockTTL       time.Duration

	log     logger.Logger
	metrics *metrics.Collector
}

// ScannerConfig carries the scan-pass tuning knobs.
type ScannerConfig struct {
	// OverdueBuffer is how far past its slot a schedule may be before
	// it is processed inline instead of queued
	OverdueBuffer time.Duration
	// StaleCutoff is how far beyond now a sub-daily schedule's next
	// run may sit before it is considered stranded
	StaleCutoff time.Duration
	// Spacing is the gap between consecutive queued execution slots
	Spacing time.Duration
}

// NewScanner builds a scanner. The Redis client is used only for the
// scan lock; queue traffic goes through the Queue interface.
func NewScanner(store ScheduleStore, queue Queue, processor Processor, client *redis.Client, cfg ScannerConfig) *Scanner {
	return &Scanner{
		store:         store,
		queue:         queue,
		processor:     processor,
		client:        client,
		overdueBuffer: cfg.OverdueBuffer,
		staleCutoff:   cfg.StaleCutoff,
		spacing:       cfg.Spacing,
		lockTTL:       10 * time.Minute,
		log:           logger.Default().WithComponent(logger.ComponentScanner),
		metrics:       metrics.Default(),
	}
}

// SetLockTTL overrides the scan lock TTL, for tests.
func (sc *Scanner) SetLockTTL(ttl time.Duration) {
	sc.lockTTL = ttl
}

// Scan runs one full pass. Only one instance cluster-wide executes a
// pass at a time; the others skip silently.
func (sc *Scanner) Scan(ctx context.Context, now time.Time) error {
	lock, err := AcquireLock(ctx, sc.client, scanLockKey, sc.lockTTL)
	if err != nil {
		return fmt.Errorf("scan lock: %w", err)
	}
	if lock == nil {
		sc.log.Debug("scan already running on another instance, skipping")
		return nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			sc.log.Warn("failed to release scan lock", "error", err.Error())
		}
	}()

	repaired := sc.repairStale(ctx, now)

	due, err := sc.store.FindDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load due schedules: %w", err)
	}

	var overdue, onTime []schedule.Schedule
	for _, s := range due {
		if !s.Eligible(now) {
			continue
		}
		if s.Overdue(now, sc.overdueBuffer) {
			overdue = append(overdue, s)
		} else {
			onTime = append(onTime, s)
		}
	}

	sc.processOverdue(ctx, lock, overdue)
	inserted, pending := sc.enqueue(ctx, onTime, now)

	sc.metrics.RecordScan()
	depth, err := sc.queue.Pending(ctx)
	if err != nil {
		sc.log.Warn("failed to read queue depth", "error", err.Error())
	}
	sc.log.Info("scan completed",
		"repaired", repaired,
		"overdue", len(overdue),
		"enqueued", inserted,
		"already_pending", pending,
		"queue_depth", depth)
	return nil
}

// repairStale recomputes next-run times for sub-daily schedules whose
// slot drifted far past now. A sub-daily schedule is never legitimately
// more than its interval away, so anything beyond the cutoff was left
// stranded by a crash, a clock jump, or a manual edit.
func (sc *Scanner) repairStale(ctx context.Context, now time.Time) int {
	stale, err := sc.store.FindStale(ctx, schedule.CadenceEvery5Hours, now.Add(sc.staleCutoff))
	if err != nil {
		sc.log.Error("failed to load stale schedules", "error", err.Error())
		return 0
	}

	repaired := 0
	for _, s := range stale {
		next := schedule.NextRun(s.Cadence, now, s.PreferredTime, s.LastRunAt)
		s.NextRunAt = &next
		if _, err := sc.store.Save(ctx, s); err != nil {
			sc.log.Error("failed to repair schedule",
				"schedule_id", s.ID,
				"error", err.Error())
			continue
		}
		sc.log.Warn("repaired stranded next run",
			"schedule_id", s.ID,
			"next_run_at", next.Format(time.RFC3339))
		repaired++
	}
	if repaired > 0 {
		sc.metrics.RecordRepaired(repaired)
	}
	return repaired
}

// processOverdue handles schedules that missed their slot by more than
// the buffer. They run inline, one at a time, so they do not wait for
// another drain cycle. A failure in one never stops the rest.
func (sc *Scanner) processOverdue(ctx context.Context, lock *DistributedLock, overdue []schedule.Schedule) {
	for _, s := range overdue {
		if err := lock.Extend(ctx, sc.lockTTL); err != nil {
			sc.log.Error("lost scan lock mid-pass, aborting overdue processing",
				"remaining", len(overdue),
				"error", err.Error())
			return
		}

		sc.log.Info("processing overdue schedule inline", "schedule_id", s.ID)
		if err := sc.safeProcess(ctx, s); err != nil {
			sc.log.Error("overdue processing failed",
				"schedule_id", s.ID,
				"error", err.Error())
		}
		sc.metrics.RecordOverdue()
	}
}

func (sc *Scanner) safeProcess(ctx context.Context, s schedule.Schedule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.FromPanic(r)
		}
	}()
	return sc.processor.Process(ctx, s)
}

// enqueue inserts on-time schedules into the delay queue with spaced
// execution timestamps so a large due set does not hit the generation
// backend all at once. Returns newly inserted vs already pending counts.
func (sc *Scanner) enqueue(ctx context.Context, onTime []schedule.Schedule, now time.Time) (inserted, pending int) {
	sort.Slice(onTime, func(i, j int) bool {
		a, b := onTime[i].NextRunAt, onTime[j].NextRunAt
		switch {
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})

	for i, s := range onTime {
		executeAt := now.Add(time.Duration(i) * sc.spacing)
		ok, err := sc.queue.InsertIfAbsent(ctx, s.ID, executeAt)
		if err != nil {
			sc.log.Error("failed to enqueue schedule",
				"schedule_id", s.ID,
				"error", err.Error())
			continue
		}
		if ok {
			inserted++
		} else {
			pending++
		}
	}
	if inserted > 0 {
		sc.metrics.RecordEnqueued(inserted)
	}
	return inserted, pending
}

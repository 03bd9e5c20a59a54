package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/BrunoBianchi/Portyo-sub004/internal/errors"
	"github.com/BrunoBianchi/Portyo-sub004/internal/logger"
	"github.com/BrunoBianchi/Portyo-sub004/internal/metrics"
	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
)

// Drainer is the fast tick. Each pass claims up to a batch of due
// queue entries and dispatches them to the processor concurrently.
type Drainer struct {
	store     ScheduleStore
	queue     Queue
	processor Processor
	batchSize int

	log     logger.Logger
	metrics *metrics.Collector
}

func NewDrainer(store ScheduleStore, queue Queue, processor Processor, batchSize int) *Drainer {
	return &Drainer{
		store:     store,
		queue:     queue,
		processor: processor,
		batchSize: batchSize,
		log:       logger.Default().WithComponent(logger.ComponentDrainer),
		metrics:   metrics.Default(),
	}
}

// Drain runs one pass. Claiming is a two-step handshake: the range
// query only nominates candidates, and the atomic remove decides which
// instance actually owns each entry. Two drainers racing on the same
// tick therefore never process the same schedule twice.
func (d *Drainer) Drain(ctx context.Context, now time.Time) error {
	candidates, err := d.queue.ClaimDue(ctx, now, d.batchSize)
	if err != nil {
		return fmt.Errorf("failed to read due queue entries: %w", err)
	}
	if len(candidates) == 0 {
		return nil
	}

	var claimed []string
	for _, id := range candidates {
		removed, err := d.queue.Remove(ctx, id)
		if err != nil {
			d.log.Error("failed to claim queue entry",
				"schedule_id", id,
				"error", err.Error())
			continue
		}
		if removed {
			claimed = append(claimed, id)
		}
	}
	if len(claimed) == 0 {
		return nil
	}
	d.metrics.RecordClaimed(len(claimed))

	schedules, err := d.store.FindByIDs(ctx, claimed)
	if err != nil {
		return fmt.Errorf("failed to load claimed schedules: %w", err)
	}

	// Entries can outlive their schedule when an account deletes it
	// after the scan queued it.
	byID := make(map[string]schedule.Schedule, len(schedules))
	for _, s := range schedules {
		byID[s.ID] = s
	}
	for _, id := range claimed {
		if _, ok := byID[id]; !ok {
			d.log.Warn("claimed entry has no schedule, skipping", "schedule_id", id)
		}
	}

	var wg sync.WaitGroup
	for _, s := range schedules {
		wg.Add(1)
		go func(s schedule.Schedule) {
			defer wg.Done()
			if err := d.safeProcess(ctx, s); err != nil {
				d.log.Error("processing failed",
					"schedule_id", s.ID,
					"error", err.Error())
			}
		}(s)
	}
	wg.Wait()

	d.log.Info("drain completed",
		"claimed", len(claimed),
		"processed", len(schedules))
	return nil
}

func (d *Drainer) safeProcess(ctx context.Context, s schedule.Schedule) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.FromPanic(r)
		}
	}()
	return d.processor.Process(ctx, s)
}

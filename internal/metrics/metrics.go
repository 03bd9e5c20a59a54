// Package metrics tracks pipeline activity in memory: scan and drain
// cycles, queue movement, and publishing outcomes.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	globalCollector *Collector
	once            sync.Once
)

// Collector tracks system-wide counters. Counters are atomic; the
// generation-duration aggregate is mutex-protected.
type Collector struct {
	scansCompleted     atomic.Int64
	schedulesRepaired  atomic.Int64
	schedulesEnqueued  atomic.Int64
	entriesClaimed     atomic.Int64
	overdueProcessed   atomic.Int64
	postsPublished     atomic.Int64
	postsFailed        atomic.Int64
	quotaSkips         atomic.Int64

	mu                 sync.RWMutex
	generationRuns     int64
	generationDuration time.Duration
	byProvider         map[string]int64
	startTime          time.Time
}

// NewCollector creates a fresh collector
func NewCollector() *Collector {
	return &Collector{
		byProvider: make(map[string]int64),
		startTime:  time.Now(),
	}
}

// Default returns the global collector instance
func Default() *Collector {
	once.Do(func() {
		globalCollector = NewCollector()
	})
	return globalCollector
}

// RecordScan records a completed scan cycle
func (c *Collector) RecordScan() { c.scansCompleted.Add(1) }

// RecordRepaired records stale schedules fixed during a scan
func (c *Collector) RecordRepaired(n int) { c.schedulesRepaired.Add(int64(n)) }

// RecordEnqueued records schedules newly inserted into the delay queue
func (c *Collector) RecordEnqueued(n int) { c.schedulesEnqueued.Add(int64(n)) }

// RecordClaimed records entries exclusively claimed by a drain cycle
func (c *Collector) RecordClaimed(n int) { c.entriesClaimed.Add(int64(n)) }

// RecordOverdue records a schedule processed on the immediate catch-up path
func (c *Collector) RecordOverdue() { c.overdueProcessed.Add(1) }

// RecordPublished records a successful publish and its generation run
func (c *Collector) RecordPublished(provider string, d time.Duration) {
	c.postsPublished.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generationRuns++
	c.generationDuration += d
	c.byProvider[provider]++
}

// RecordFailed records a failed pipeline run
func (c *Collector) RecordFailed() { c.postsFailed.Add(1) }

// RecordQuotaSkip records an attempt skipped because the monthly quota
// was exhausted
func (c *Collector) RecordQuotaSkip() { c.quotaSkips.Add(1) }

// Snapshot is a point-in-time copy of all metrics
type Snapshot struct {
	ScansCompleted    int64
	SchedulesRepaired int64
	SchedulesEnqueued int64
	EntriesClaimed    int64
	OverdueProcessed  int64
	PostsPublished    int64
	PostsFailed       int64
	QuotaSkips        int64

	AvgGenerationTime time.Duration
	PostsByProvider   map[string]int64
	Uptime            time.Duration
}

// GetSnapshot returns a consistent copy of the current metrics
func (c *Collector) GetSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var avg time.Duration
	if c.generationRuns > 0 {
		avg = c.generationDuration / time.Duration(c.generationRuns)
	}

	byProvider := make(map[string]int64, len(c.byProvider))
	for k, v := range c.byProvider {
		byProvider[k] = v
	}

	return Snapshot{
		ScansCompleted:    c.scansCompleted.Load(),
		SchedulesRepaired: c.schedulesRepaired.Load(),
		SchedulesEnqueued: c.schedulesEnqueued.Load(),
		EntriesClaimed:    c.entriesClaimed.Load(),
		OverdueProcessed:  c.overdueProcessed.Load(),
		PostsPublished:    c.postsPublished.Load(),
		PostsFailed:       c.postsFailed.Load(),
		QuotaSkips:        c.quotaSkips.Load(),
		AvgGenerationTime: avg,
		PostsByProvider:   byProvider,
		Uptime:            time.Since(c.startTime),
	}
}

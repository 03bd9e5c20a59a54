package autopost

import (
	"context"
	"fmt"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/logger"
	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"github.com/google/uuid"
)

// Queue is the slice of the delay queue the management surface needs:
// removing a pending entry when its schedule is deleted or paused.
type Queue interface {
	Remove(ctx context.Context, scheduleID string) (bool, error)
}

// UpsertInput carries the account-facing schedule settings.
type UpsertInput struct {
	AccountID     string
	PageID        string
	Cadence       schedule.Cadence
	PreferredTime string
	StartDate     *time.Time
	Active        bool
	Config        schedule.ContentConfig
}

// Stats aggregates a schedule's quota state and recent execution
// history.
type Stats struct {
	PostsThisPeriod int
	QuotaRemaining  int

	TotalRuns      int
	Succeeded      int
	Failed         int
	AvgSEO         int
	AvgReadability int
	AvgEngagement  int
	LastOutcome    schedule.Outcome
	LastRunAt      *time.Time
	NextRunAt      *time.Time

	RecentLogs []schedule.ExecutionLog
}

// Service is the schedule management surface: create, update, toggle,
// delete, inspect, and trigger manual runs.
type Service struct {
	schedules ScheduleStore
	logs      LogStore
	queue     Queue
	processor *Processor

	now func() time.Time
	log logger.Logger
}

func NewService(schedules ScheduleStore, logs LogStore, queue Queue, processor *Processor) *Service {
	return &Service{
		schedules: schedules,
		logs:      logs,
		queue:     queue,
		processor: processor,
		now:       time.Now,
		log:       logger.Default().WithComponent(logger.ComponentProcessor),
	}
}

// CreateOrUpdate upserts the account's schedule. The next run is
// recomputed when the schedule is new, when cadence or preferred time
// changed, or when the schedule is switched back on.
func (s *Service) CreateOrUpdate(ctx context.Context, in UpsertInput) (schedule.Schedule, error) {
	if !in.Cadence.Valid() {
		return schedule.Schedule{}, fmt.Errorf("unknown cadence %q", in.Cadence)
	}
	now := s.now()

	existing, err := s.schedules.FindByAccount(ctx, in.AccountID)
	if err != nil {
		if !isNotFound(err) {
			return schedule.Schedule{}, fmt.Errorf("failed to load schedule: %w", err)
		}
		created := schedule.New(in.AccountID, in.Cadence, in.PreferredTime, now)
		created.PageID = in.PageID
		created.StartDate = in.StartDate
		created.Active = in.Active
		created.Config = in.Config
		out, err := s.schedules.Create(ctx, created)
		if err != nil {
			return schedule.Schedule{}, fmt.Errorf("failed to create schedule: %w", err)
		}
		s.log.Info("schedule created",
			"schedule_id", out.ID,
			"account_id", out.AccountID,
			"cadence", string(out.Cadence))
		return out, nil
	}

	rearm := existing.Cadence != in.Cadence ||
		existing.PreferredTime != in.PreferredTime ||
		(!existing.Active && in.Active)

	existing.PageID = in.PageID
	existing.Cadence = in.Cadence
	existing.PreferredTime = in.PreferredTime
	existing.StartDate = in.StartDate
	existing.Active = in.Active
	existing.Config = in.Config

	if rearm {
		next := schedule.NextRun(in.Cadence, now, in.PreferredTime, existing.LastRunAt)
		existing.NextRunAt = &next
	}

	out, err := s.schedules.Save(ctx, existing)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("failed to update schedule: %w", err)
	}
	s.log.Info("schedule updated",
		"schedule_id", out.ID,
		"cadence", string(out.Cadence),
		"rearmed", rearm)
	return out, nil
}

// Toggle switches a schedule on or off. Re-activation re-arms the next
// run; deactivation drops any pending queue entry so the drainer does
// not pick up a paused schedule.
func (s *Service) Toggle(ctx context.Context, id string, active bool) (schedule.Schedule, error) {
	existing, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return schedule.Schedule{}, err
	}
	now := s.now()

	if active && !existing.Active {
		next := schedule.NextRun(existing.Cadence, now, existing.PreferredTime, existing.LastRunAt)
		existing.NextRunAt = &next
	}
	existing.Active = active

	out, err := s.schedules.Save(ctx, existing)
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("failed to toggle schedule: %w", err)
	}

	if !active {
		if _, err := s.queue.Remove(ctx, id); err != nil {
			s.log.Warn("failed to drop queue entry for paused schedule",
				"schedule_id", id,
				"error", err.Error())
		}
	}
	s.log.Info("schedule toggled", "schedule_id", id, "active", active)
	return out, nil
}

// Delete removes the schedule and its pending queue entry, if any.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.schedules.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete schedule: %w", err)
	}
	if !deleted {
		return false, nil
	}
	if _, err := s.queue.Remove(ctx, id); err != nil {
		s.log.Warn("failed to drop queue entry for deleted schedule",
			"schedule_id", id,
			"error", err.Error())
	}
	s.log.Info("schedule deleted", "schedule_id", id)
	return true, nil
}

// Get returns the account's schedule.
func (s *Service) Get(ctx context.Context, accountID string) (schedule.Schedule, error) {
	return s.schedules.FindByAccount(ctx, accountID)
}

// GetStats aggregates the schedule's quota state and recent run
// history.
func (s *Service) GetStats(ctx context.Context, scheduleID string) (Stats, error) {
	sched, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return Stats{}, err
	}

	recent, err := s.logs.Recent(ctx, scheduleID, 50)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load execution history: %w", err)
	}

	st := Stats{
		PostsThisPeriod: sched.PostsThisPeriod,
		QuotaRemaining:  max(s.processor.maxPerPeriod-sched.PostsThisPeriod, 0),
		NextRunAt:       sched.NextRunAt,
		RecentLogs:      recent,
	}
	var seo, readability, engagement int
	for _, l := range recent {
		st.TotalRuns++
		if l.Outcome == schedule.OutcomeSucceeded {
			st.Succeeded++
			seo += l.Scores.SEO
			readability += l.Scores.Readability
			engagement += l.Scores.Engagement
		} else {
			st.Failed++
		}
	}
	if st.Succeeded > 0 {
		st.AvgSEO = seo / st.Succeeded
		st.AvgReadability = readability / st.Succeeded
		st.AvgEngagement = engagement / st.Succeeded
	}
	if len(recent) > 0 {
		st.LastOutcome = recent[0].Outcome
		t := recent[0].CreatedAt
		st.LastRunAt = &t
	}
	return st, nil
}

// RunNow generates and publishes one post for the schedule on demand.
// It runs the generation and persistence steps of the pipeline but
// leaves the next run, the last-run marker, and the quota untouched.
func (s *Service) RunNow(ctx context.Context, scheduleID string) (schedule.Post, error) {
	sched, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return schedule.Post{}, err
	}
	return s.processor.runOnce(ctx, sched)
}

// runOnce is the manual-trigger path: summary, feedback, generation,
// persistence, log, notification. No reschedule, no quota mutation.
func (p *Processor) runOnce(ctx context.Context, s schedule.Schedule) (schedule.Post, error) {
	now := p.now()

	post, s, err := p.generate(ctx, s, now)
	if err != nil {
		return schedule.Post{}, err
	}

	created, err := p.publish(ctx, s, post, now)
	if err != nil {
		return schedule.Post{}, err
	}

	if _, err := p.logs.Create(ctx, schedule.ExecutionLog{
		ID:             uuid.New().String(),
		ScheduleID:     s.ID,
		PostID:         &created.ID,
		Outcome:        schedule.OutcomeSucceeded,
		Title:          post.Title,
		Excerpt:        excerpt(post.Content),
		Scores:         post.Scores,
		Suggestions:    post.Suggestions,
		Provider:       post.Provider,
		ProcessingTime: post.ProcessingTime,
		CreatedAt:      now,
	}); err != nil {
		p.log.Warn("failed to record manual run",
			"schedule_id", s.ID,
			"error", err.Error())
	}

	if err := p.notifier.Notify(ctx, s.AccountID,
		"New post published",
		fmt.Sprintf("%q was generated and published on demand.", post.Title),
		"/dashboard/blog/"+created.ID,
	); err != nil {
		p.log.Warn("notification failed",
			"schedule_id", s.ID,
			"error", err.Error())
	}

	p.log.Info("manual run completed",
		"schedule_id", s.ID,
		"post_id", created.ID)
	return created, nil
}

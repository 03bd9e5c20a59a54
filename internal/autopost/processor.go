// Package autopost implements the publishing pipeline and the schedule
// management surface exposed to the rest of the system.
package autopost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/generator"
	"github.com/BrunoBianchi/Portyo-sub004/internal/logger"
	"github.com/BrunoBianchi/Portyo-sub004/internal/metrics"
	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"github.com/BrunoBianchi/Portyo-sub004/internal/store"
	"github.com/google/uuid"
)

// ScheduleStore is the schedule persistence surface the pipeline needs.
type ScheduleStore interface {
	FindByID(ctx context.Context, id string) (schedule.Schedule, error)
	FindByAccount(ctx context.Context, accountID string) (schedule.Schedule, error)
	Create(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error)
	Save(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// LogStore records and reads execution history.
type LogStore interface {
	Create(ctx context.Context, l schedule.ExecutionLog) (schedule.ExecutionLog, error)
	MostRecent(ctx context.Context, scheduleID string) (schedule.ExecutionLog, error)
	Recent(ctx context.Context, scheduleID string, limit int) ([]schedule.ExecutionLog, error)
}

// PostStore persists published posts.
type PostStore interface {
	Create(ctx context.Context, p schedule.Post) (schedule.Post, error)
	SlugExists(ctx context.Context, accountID, slug string) (bool, error)
}

// Notifier delivers account-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, accountID, title, message, link string) error
}

// Processor executes the per-schedule publishing pipeline. One
// invocation produces at most one post.
type Processor struct {
	schedules ScheduleStore
	logs      LogStore
	posts     PostStore
	notifier  Notifier
	gen       generator.Generator

	maxPerPeriod int
	now          func() time.Time

	log     logger.Logger
	metrics *metrics.Collector
}

func NewProcessor(schedules ScheduleStore, logs LogStore, posts PostStore, notifier Notifier, gen generator.Generator, maxPerPeriod int) *Processor {
	return &Processor{
		schedules:    schedules,
		logs:         logs,
		posts:        posts,
		notifier:     notifier,
		gen:          gen,
		maxPerPeriod: maxPerPeriod,
		now:          time.Now,
		log:          logger.Default().WithComponent(logger.ComponentProcessor),
		metrics:      metrics.Default(),
	}
}

// Process runs the pipeline for one schedule. Expected steady-state
// skips (inactive, over quota, not yet due) return nil without a log
// row; real failures write a failed log row and push the next run out
// to the natural cadence slot so the schedule does not busy-retry.
func (p *Processor) Process(ctx context.Context, s schedule.Schedule) error {
	now := p.now()

	if !s.Active {
		return nil
	}

	s, err := p.reconcileQuota(ctx, s, now)
	if err != nil {
		return err
	}
	if s.PostsThisPeriod >= p.maxPerPeriod {
		p.metrics.RecordQuotaSkip()
		p.log.Debug("monthly quota reached, skipping",
			"schedule_id", s.ID,
			"posts", s.PostsThisPeriod)
		return nil
	}

	// An inline overdue run and a queued entry can race; whichever
	// lands second sees a future next-run and stands down.
	if !s.Due(now) {
		return nil
	}

	post, s, err := p.generate(ctx, s, now)
	if err != nil {
		return p.fail(ctx, s, now, err)
	}

	created, err := p.publish(ctx, s, post, now)
	if err != nil {
		return p.fail(ctx, s, now, err)
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
		return p.fail(ctx, s, now, fmt.Errorf("failed to record execution: %w", err))
	}

	if err := p.notifier.Notify(ctx, s.AccountID,
		"New post published",
		fmt.Sprintf("%q was generated and published automatically.", post.Title),
		"/dashboard/blog/"+created.ID,
	); err != nil {
		p.log.Warn("notification failed",
			"schedule_id", s.ID,
			"error", err.Error())
	}

	s.LastRunAt = &now
	next := schedule.NextRun(s.Cadence, now, s.PreferredTime, &now)
	s.NextRunAt = &next
	s.PostsThisPeriod++
	if _, err := p.schedules.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to reschedule after publish: %w", err)
	}

	p.metrics.RecordPublished(post.Provider, post.ProcessingTime)
	p.log.Info("post published",
		"schedule_id", s.ID,
		"post_id", created.ID,
		"title", post.Title,
		"provider", post.Provider,
		"next_run_at", next.Format(time.RFC3339))
	return nil
}

// reconcileQuota resets the monthly counter lazily when the schedule
// is first touched in a new period.
func (p *Processor) reconcileQuota(ctx context.Context, s schedule.Schedule, now time.Time) (schedule.Schedule, error) {
	reconciled, changed := schedule.ReconcilePeriod(s, now)
	if !changed {
		return s, nil
	}
	saved, err := p.schedules.Save(ctx, reconciled)
	if err != nil {
		return s, fmt.Errorf("failed to reset quota period: %w", err)
	}
	p.log.Info("quota period reset",
		"schedule_id", s.ID,
		"period", saved.PeriodKey)
	return saved, nil
}

// generate sources the summary and prior feedback, then calls the
// content generator. It returns the (possibly summary-refreshed)
// schedule so the caller saves the updated cache state.
func (p *Processor) generate(ctx context.Context, s schedule.Schedule, now time.Time) (schedule.GeneratedPost, schedule.Schedule, error) {
	s, err := p.sourceSummary(ctx, s, now)
	if err != nil {
		return schedule.GeneratedPost{}, s, err
	}

	post, err := p.gen.Generate(ctx, generator.Request{
		Config:   s.Config,
		Summary:  s.Summary,
		Feedback: p.sourceFeedback(ctx, s.ID),
	})
	if err != nil {
		return schedule.GeneratedPost{}, s, err
	}
	return post, s, nil
}

// sourceSummary reuses the cached account digest while it is fresh and
// regenerates and persists it otherwise.
func (p *Processor) sourceSummary(ctx context.Context, s schedule.Schedule, now time.Time) (schedule.Schedule, error) {
	if s.SummaryFresh(now) {
		return s, nil
	}

	summary, err := p.gen.Summarize(ctx, s.Config)
	if err != nil {
		return s, fmt.Errorf("failed to refresh summary: %w", err)
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return s, fmt.Errorf("failed to encode summary: %w", err)
	}

	s.Summary = string(raw)
	s.SummaryGeneratedAt = &now
	saved, err := p.schedules.Save(ctx, s)
	if err != nil {
		return s, fmt.Errorf("failed to persist summary: %w", err)
	}
	p.log.Info("summary refreshed", "schedule_id", s.ID)
	return saved, nil
}

// sourceFeedback pulls the previous run's scores and suggestions so
// the next post improves instead of repeating. History is advisory;
// any read failure degrades to no feedback.
func (p *Processor) sourceFeedback(ctx context.Context, scheduleID string) *generator.Feedback {
	last, err := p.logs.MostRecent(ctx, scheduleID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.log.Warn("failed to load execution history",
				"schedule_id", scheduleID,
				"error", err.Error())
		}
		return nil
	}
	return &generator.Feedback{
		PreviousTitle: last.Title,
		Scores:        last.Scores,
		Suggestions:   last.Suggestions,
	}
}

// publish persists the generated post under a slug that is unique
// within the account.
func (p *Processor) publish(ctx context.Context, s schedule.Schedule, post schedule.GeneratedPost, now time.Time) (schedule.Post, error) {
	slug, err := p.uniqueSlug(ctx, s.AccountID, post.Slug)
	if err != nil {
		return schedule.Post{}, err
	}

	return p.posts.Create(ctx, schedule.Post{
		ID:          uuid.New().String(),
		AccountID:   s.AccountID,
		Title:       post.Title,
		Content:     post.Content,
		Keywords:    post.Keywords,
		Slug:        slug,
		Status:      schedule.PostStatusPublished,
		Language:    s.Config.Language,
		Categories:  s.Config.Categories,
		PublishedAt: now,
		CreatedAt:   now,
	})
}

func (p *Processor) uniqueSlug(ctx context.Context, accountID, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		exists, err := p.posts.SlugExists(ctx, accountID, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// fail records the failure and pushes the next run to the natural
// cadence slot. The quota counter and last-run marker stay untouched;
// only successful publishes consume quota.
func (p *Processor) fail(ctx context.Context, s schedule.Schedule, now time.Time, cause error) error {
	p.metrics.RecordFailed()
	p.log.Error("pipeline failed",
		"schedule_id", s.ID,
		"error", cause.Error())

	if _, err := p.logs.Create(ctx, schedule.ExecutionLog{
		ID:           uuid.New().String(),
		ScheduleID:   s.ID,
		Outcome:      schedule.OutcomeFailed,
		ErrorMessage: cause.Error(),
		CreatedAt:    now,
	}); err != nil {
		p.log.Error("failed to record failure",
			"schedule_id", s.ID,
			"error", err.Error())
	}

	next := schedule.NextRun(s.Cadence, now, s.PreferredTime, s.LastRunAt)
	s.NextRunAt = &next
	if _, err := p.schedules.Save(ctx, s); err != nil {
		p.log.Error("failed to reschedule after failure",
			"schedule_id", s.ID,
			"error", err.Error())
	}
	return cause
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// excerpt trims content for the execution log preview.
func excerpt(content string) string {
	const max = 200
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}

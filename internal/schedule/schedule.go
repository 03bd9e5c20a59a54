// Package schedule defines the auto-post domain model: per-account
// publishing schedules, their cadence arithmetic, monthly quota windows,
// and the execution log that records every publishing attempt.
package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Outcome represents the result of a single processing attempt
type Outcome string

const (
	// OutcomeSucceeded indicates a post was generated and published
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeFailed indicates the pipeline failed before the post was persisted
	OutcomeFailed Outcome = "failed"
)

// SummaryTTL is how long a cached content summary stays valid
const SummaryTTL = 30 * 24 * time.Hour

// ContentConfig holds the account's content preferences for generation.
// Fields are fixed and named so the contract with the generator is
// statically checkable; there is no open metadata map.
type ContentConfig struct {
	// Topics is a free-form description of what the posts should cover
	Topics string `json:"topics"`
	// Keywords are comma-separated SEO keywords to weave in
	Keywords string `json:"keywords,omitempty"`
	// TargetAudience describes who the posts are written for
	TargetAudience string `json:"target_audience,omitempty"`
	// Tone is the writing voice (e.g. "professional", "casual")
	Tone string `json:"tone,omitempty"`
	// PostLength is one of "short", "medium", "long"
	PostLength string `json:"post_length,omitempty"`
	// Language is the ISO 639-1 output language code
	Language string `json:"language,omitempty"`
	// TargetCountry optionally localizes examples and references
	TargetCountry string `json:"target_country,omitempty"`
	// Categories are free-form category tags attached to published posts
	Categories []string `json:"categories,omitempty"`
}

// Schedule is one account's auto-post configuration and runtime state.
// There is at most one schedule per account (optionally per account+page).
//
// NextRunAt is the authoritative "when to run next". It is nil for a
// schedule that has never been armed, which the scanner treats as due
// immediately.
type Schedule struct {
	ID        string
	AccountID string
	// PageID optionally pins the schedule to a specific page
	PageID string

	Cadence Cadence
	// PreferredTime is the wall-clock anchor for daily-and-slower
	// cadences, formatted "HH:MM"
	PreferredTime string
	// StartDate is an optional activation floor; the schedule never
	// runs before it
	StartDate *time.Time
	Active    bool

	NextRunAt *time.Time
	LastRunAt *time.Time

	// PostsThisPeriod counts publishes inside the current quota window
	PostsThisPeriod int
	// PeriodKey identifies the counting window, "YYYY-MM"
	PeriodKey string

	// Summary is the cached content digest reused across generation
	// calls; valid for SummaryTTL from SummaryGeneratedAt
	Summary            string
	SummaryGeneratedAt *time.Time

	Config ContentConfig

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a schedule for an account with the given cadence, armed
// from now. The preferred time is normalized to "HH:MM" so malformed
// input never reaches the store.
func New(accountID string, cadence Cadence, preferredTime string, now time.Time) Schedule {
	next := NextRun(cadence, now, preferredTime, nil)
	return Schedule{
		ID:            uuid.New().String(),
		AccountID:     accountID,
		Cadence:       cadence,
		PreferredTime: FormatPreferredTime(ParsePreferredTime(preferredTime)),
		Active:        true,
		NextRunAt:     &next,
		PeriodKey:     PeriodKey(now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Eligible reports whether the schedule may run at all right now:
// it must be active and past its start date. Timing against NextRunAt
// is checked separately.
func (s Schedule) Eligible(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.StartDate != nil && now.Before(*s.StartDate) {
		return false
	}
	return true
}

// Due reports whether the schedule's next-run time has passed.
// A nil NextRunAt counts as due.
func (s Schedule) Due(now time.Time) bool {
	return s.NextRunAt == nil || !now.Before(*s.NextRunAt)
}

// Overdue reports whether the schedule missed its slot by more than
// buffer, meaning it should be caught up immediately instead of waiting
// for a queue-drain cycle.
func (s Schedule) Overdue(now time.Time, buffer time.Duration) bool {
	if s.NextRunAt == nil {
		return false
	}
	return s.NextRunAt.Before(now.Add(-buffer))
}

// SummaryFresh reports whether the cached content summary can be reused
func (s Schedule) SummaryFresh(now time.Time) bool {
	if s.Summary == "" || s.SummaryGeneratedAt == nil {
		return false
	}
	return s.SummaryGeneratedAt.After(now.Add(-SummaryTTL))
}

// ContentScores is the condensed scoring snapshot a generation run
// reports for the published post
type ContentScores struct {
	SEO         int `json:"seo"`
	Readability int `json:"readability"`
	Originality int `json:"originality"`
	Engagement  int `json:"engagement"`
	WordCount   int `json:"word_count"`
}

// Summary is the cached contextual digest of an account's content focus
type Summary struct {
	Summary        string   `json:"summary"`
	Industry       string   `json:"industry"`
	Expertise      []string `json:"expertise"`
	Tone           string   `json:"tone"`
	TargetAudience string   `json:"target_audience"`
	ContentPillars []string `json:"content_pillars"`
}

// GeneratedPost is the output of one generation call
type GeneratedPost struct {
	Title           string        `json:"title"`
	Content         string        `json:"content"`
	Keywords        string        `json:"keywords"`
	Slug            string        `json:"slug"`
	MetaDescription string        `json:"meta_description"`
	Scores          ContentScores `json:"scores"`
	// Suggestions are improvement hints fed back into the next
	// generation call to reduce repetition
	Suggestions []string `json:"suggestions"`
	// Provider names the backend that actually produced the post
	Provider       string        `json:"provider"`
	ProcessingTime time.Duration `json:"-"`
}

// ExecutionLog is the append-only audit record of one processing
// attempt. Rows are created exclusively by the processor and never
// mutated.
type ExecutionLog struct {
	ID         string
	ScheduleID string
	// PostID references the published post; nil when the attempt failed
	PostID *string

	Outcome Outcome
	// ErrorMessage carries the failure reason when Outcome is failed
	ErrorMessage string

	Title   string
	Excerpt string
	Scores  ContentScores
	// Suggestions from this run, sourced as feedback for the next one
	Suggestions []string

	Provider       string
	ProcessingTime time.Duration

	CreatedAt time.Time
}

// Post is a published content item created by the processor
type Post struct {
	ID          string
	AccountID   string
	Title       string
	Content     string
	Keywords    string
	Slug        string
	Status      string
	Language    string
	Categories  []string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// PostStatusPublished is the only status the processor ever writes;
// drafts are not part of the automated pipeline.
const PostStatusPublished = "published"

package autopost

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/generator"
	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"github.com/BrunoBianchi/Portyo-sub004/internal/store"
)

type fakeScheduleStore struct {
	byID      map[string]schedule.Schedule
	byAccount map[string]string
	saves     []schedule.Schedule
	saveErr   error
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{
		byID:      map[string]schedule.Schedule{},
		byAccount: map[string]string{},
	}
}

func (f *fakeScheduleStore) put(s schedule.Schedule) {
	f.byID[s.ID] = s
	f.byAccount[s.AccountID] = s.ID
}

func (f *fakeScheduleStore) FindByID(_ context.Context, id string) (schedule.Schedule, error) {
	s, ok := f.byID[id]
	if !ok {
		return schedule.Schedule{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeScheduleStore) FindByAccount(_ context.Context, accountID string) (schedule.Schedule, error) {
	id, ok := f.byAccount[accountID]
	if !ok {
		return schedule.Schedule{}, store.ErrNotFound
	}
	return f.byID[id], nil
}

func (f *fakeScheduleStore) Create(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	f.put(s)
	return s, nil
}

func (f *fakeScheduleStore) Save(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	if f.saveErr != nil {
		return schedule.Schedule{}, f.saveErr
	}
	f.saves = append(f.saves, s)
	f.put(s)
	return s, nil
}

func (f *fakeScheduleStore) Delete(_ context.Context, id string) (bool, error) {
	s, ok := f.byID[id]
	if !ok {
		return false, nil
	}
	delete(f.byID, id)
	delete(f.byAccount, s.AccountID)
	return true, nil
}

type fakeLogStore struct {
	created []schedule.ExecutionLog
	recent  []schedule.ExecutionLog
}

func (f *fakeLogStore) Create(_ context.Context, l schedule.ExecutionLog) (schedule.ExecutionLog, error) {
	f.created = append(f.created, l)
	return l, nil
}

func (f *fakeLogStore) MostRecent(_ context.Context, _ string) (schedule.ExecutionLog, error) {
	if len(f.recent) == 0 {
		return schedule.ExecutionLog{}, store.ErrNotFound
	}
	return f.recent[0], nil
}

func (f *fakeLogStore) Recent(_ context.Context, _ string, limit int) ([]schedule.ExecutionLog, error) {
	if limit > len(f.recent) {
		limit = len(f.recent)
	}
	return f.recent[:limit], nil
}

type fakePostStore struct {
	created []schedule.Post
	slugs   map[string]bool
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{slugs: map[string]bool{}}
}

func (f *fakePostStore) Create(_ context.Context, p schedule.Post) (schedule.Post, error) {
	f.created = append(f.created, p)
	f.slugs[p.Slug] = true
	return p, nil
}

func (f *fakePostStore) SlugExists(_ context.Context, _ string, slug string) (bool, error) {
	return f.slugs[slug], nil
}

type fakeNotifier struct {
	calls []string
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, accountID, title, _, _ string) error {
	f.calls = append(f.calls, accountID+":"+title)
	return f.err
}

type fakeGenerator struct {
	summary        schedule.Summary
	summarizeErr   error
	summarizeCalls int

	post          schedule.GeneratedPost
	generateErr   error
	generateCalls int
	lastReq       generator.Request
}

func (f *fakeGenerator) Summarize(_ context.Context, _ schedule.ContentConfig) (schedule.Summary, error) {
	f.summarizeCalls++
	if f.summarizeErr != nil {
		return schedule.Summary{}, f.summarizeErr
	}
	return f.summary, nil
}

func (f *fakeGenerator) Generate(_ context.Context, req generator.Request) (schedule.GeneratedPost, error) {
	f.generateCalls++
	f.lastReq = req
	if f.generateErr != nil {
		return schedule.GeneratedPost{}, f.generateErr
	}
	return f.post, nil
}

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	schedules *fakeScheduleStore
	logs      *fakeLogStore
	posts     *fakePostStore
	notifier  *fakeNotifier
	gen       *fakeGenerator
	proc      *Processor
}

func newFixture() *fixture {
	f := &fixture{
		schedules: newFakeScheduleStore(),
		logs:      &fakeLogStore{},
		posts:     newFakePostStore(),
		notifier:  &fakeNotifier{},
		gen: &fakeGenerator{
			summary: schedule.Summary{Summary: "writes about go"},
			post: schedule.GeneratedPost{
				Title:          "A Fresh Look at Goroutines",
				Content:        "## Intro\n\nGoroutines are cheap...",
				Keywords:       "go, concurrency",
				Slug:           "a-fresh-look-at-goroutines",
				Scores:         schedule.ContentScores{SEO: 80, Readability: 85, Engagement: 78, WordCount: 1100},
				Suggestions:    []string{"add benchmarks"},
				Provider:       "primary",
				ProcessingTime: 3 * time.Second,
			},
		},
	}
	f.proc = NewProcessor(f.schedules, f.logs, f.posts, f.notifier, f.gen, 20)
	f.proc.now = func() time.Time { return testNow }
	return f
}

func freshSummary(s *schedule.Schedule) {
	gen := testNow.Add(-24 * time.Hour)
	s.Summary = `{"summary":"cached digest"}`
	s.SummaryGeneratedAt = &gen
}

func dueSchedule(id string) schedule.Schedule {
	past := testNow.Add(-time.Minute)
	return schedule.Schedule{
		ID:            id,
		AccountID:     "acct-" + id,
		Cadence:       schedule.CadenceDaily,
		PreferredTime: "09:00",
		Active:        true,
		NextRunAt:     &past,
		PeriodKey:     schedule.PeriodKey(testNow),
		Config:        schedule.ContentConfig{Topics: "go"},
	}
}

func TestProcess_Success(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	freshSummary(&s)
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(f.posts.created) != 1 {
		t.Fatalf("created %d posts, want 1", len(f.posts.created))
	}
	post := f.posts.created[0]
	if post.Status != schedule.PostStatusPublished {
		t.Errorf("status = %q", post.Status)
	}
	if post.Slug != "a-fresh-look-at-goroutines" {
		t.Errorf("slug = %q", post.Slug)
	}

	if len(f.logs.created) != 1 {
		t.Fatalf("created %d logs, want 1", len(f.logs.created))
	}
	log := f.logs.created[0]
	if log.Outcome != schedule.OutcomeSucceeded {
		t.Errorf("outcome = %q", log.Outcome)
	}
	if log.PostID == nil || *log.PostID != post.ID {
		t.Errorf("log post id = %v", log.PostID)
	}

	if len(f.notifier.calls) != 1 {
		t.Errorf("notifications = %d, want 1", len(f.notifier.calls))
	}

	final := f.schedules.byID["s1"]
	if final.PostsThisPeriod != 1 {
		t.Errorf("counter = %d, want 1", final.PostsThisPeriod)
	}
	if final.LastRunAt == nil || !final.LastRunAt.Equal(testNow) {
		t.Errorf("last run = %v", final.LastRunAt)
	}
	if final.NextRunAt == nil || !final.NextRunAt.After(testNow) {
		t.Errorf("next run = %v, want strictly after now", final.NextRunAt)
	}
}

func TestProcess_InactiveSilentSkip(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	s.Active = false

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(f.logs.created) != 0 || f.gen.generateCalls != 0 {
		t.Error("inactive schedule must be skipped without a log row")
	}
}

func TestProcess_QuotaReachedSilentSkip(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	s.PostsThisPeriod = 20
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if f.gen.generateCalls != 0 || len(f.logs.created) != 0 {
		t.Error("over-quota schedule must be skipped silently")
	}
}

func TestProcess_QuotaResetsAcrossPeriodBoundary(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	s.PostsThisPeriod = 20
	s.PeriodKey = "2024-02"
	freshSummary(&s)
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(f.posts.created) != 1 {
		t.Fatal("expected publish after lazy period reset")
	}
	final := f.schedules.byID["s1"]
	if final.PeriodKey != "2024-03" {
		t.Errorf("period = %q", final.PeriodKey)
	}
	if final.PostsThisPeriod != 1 {
		t.Errorf("counter = %d, want 1 after reset plus publish", final.PostsThisPeriod)
	}
}

func TestProcess_NotYetDueSilentSkip(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	future := testNow.Add(time.Hour)
	s.NextRunAt = &future

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if f.gen.generateCalls != 0 {
		t.Error("future schedule must not generate")
	}
}

func TestProcess_GenerationFailure(t *testing.T) {
	f := newFixture()
	f.gen.generateErr = errors.New("all providers failed")
	s := dueSchedule("s1")
	s.PostsThisPeriod = 3
	freshSummary(&s)
	f.schedules.put(s)

	err := f.proc.Process(context.Background(), s)
	if err == nil {
		t.Fatal("expected error")
	}

	if len(f.logs.created) != 1 {
		t.Fatalf("created %d logs, want 1 failed log", len(f.logs.created))
	}
	log := f.logs.created[0]
	if log.Outcome != schedule.OutcomeFailed {
		t.Errorf("outcome = %q", log.Outcome)
	}
	if !strings.Contains(log.ErrorMessage, "all providers failed") {
		t.Errorf("error message = %q", log.ErrorMessage)
	}

	final := f.schedules.byID["s1"]
	if final.PostsThisPeriod != 3 {
		t.Errorf("counter = %d, failure must not consume quota", final.PostsThisPeriod)
	}
	if final.LastRunAt != nil {
		t.Error("failure must not set last run")
	}
	if final.NextRunAt == nil || !final.NextRunAt.After(testNow) {
		t.Errorf("next run = %v, want pushed to the next cadence slot", final.NextRunAt)
	}
	if len(f.posts.created) != 0 {
		t.Error("no post must be created on failure")
	}
}

func TestProcess_SummaryRefreshedWhenStale(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	old := testNow.Add(-31 * 24 * time.Hour)
	s.Summary = `{"summary":"ancient"}`
	s.SummaryGeneratedAt = &old
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if f.gen.summarizeCalls != 1 {
		t.Errorf("summarize calls = %d, want 1", f.gen.summarizeCalls)
	}

	final := f.schedules.byID["s1"]
	if !strings.Contains(final.Summary, "writes about go") {
		t.Errorf("summary not persisted: %q", final.Summary)
	}
	if final.SummaryGeneratedAt == nil || !final.SummaryGeneratedAt.Equal(testNow) {
		t.Errorf("summary timestamp = %v", final.SummaryGeneratedAt)
	}
}

func TestProcess_FreshSummaryReused(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	freshSummary(&s)
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if f.gen.summarizeCalls != 0 {
		t.Error("fresh summary must be reused, not regenerated")
	}
	if f.gen.lastReq.Summary != `{"summary":"cached digest"}` {
		t.Errorf("generate got summary %q", f.gen.lastReq.Summary)
	}
}

func TestProcess_FeedbackFromPreviousRun(t *testing.T) {
	f := newFixture()
	f.logs.recent = []schedule.ExecutionLog{{
		Title:       "Old Post",
		Outcome:     schedule.OutcomeSucceeded,
		Scores:      schedule.ContentScores{SEO: 60},
		Suggestions: []string{"shorter intro"},
	}}
	s := dueSchedule("s1")
	freshSummary(&s)
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	fb := f.gen.lastReq.Feedback
	if fb == nil {
		t.Fatal("feedback missing")
	}
	if fb.PreviousTitle != "Old Post" || len(fb.Suggestions) != 1 {
		t.Errorf("feedback = %+v", fb)
	}
}

func TestProcess_FirstRunHasNoFeedback(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	freshSummary(&s)
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if f.gen.lastReq.Feedback != nil {
		t.Error("first run must pass nil feedback")
	}
}

func TestProcess_SlugCollisionProbed(t *testing.T) {
	f := newFixture()
	f.posts.slugs["a-fresh-look-at-goroutines"] = true
	f.posts.slugs["a-fresh-look-at-goroutines-1"] = true
	s := dueSchedule("s1")
	freshSummary(&s)
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := f.posts.created[0].Slug; got != "a-fresh-look-at-goroutines-2" {
		t.Errorf("slug = %q, want suffix probing past taken slugs", got)
	}
}

func TestProcess_NotificationFailureNonFatal(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("notification service down")
	s := dueSchedule("s1")
	freshSummary(&s)
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process must succeed despite notification failure: %v", err)
	}
	final := f.schedules.byID["s1"]
	if final.PostsThisPeriod != 1 {
		t.Error("publish must complete when only the notification fails")
	}
}

func TestProcess_NilNextRunTreatedAsDue(t *testing.T) {
	f := newFixture()
	s := dueSchedule("s1")
	s.NextRunAt = nil
	freshSummary(&s)
	f.schedules.put(s)

	if err := f.proc.Process(context.Background(), s); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(f.posts.created) != 1 {
		t.Error("never-armed schedule must run immediately")
	}
}

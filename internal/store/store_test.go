package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func testSchedule(id, accountID string, nextRunAt *time.Time) schedule.Schedule {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return schedule.Schedule{
		ID:            id,
		AccountID:     accountID,
		Cadence:       schedule.CadenceDaily,
		PreferredTime: "09:00",
		Active:        true,
		NextRunAt:     nextRunAt,
		PeriodKey:     "2024-03",
		Config: schedule.ContentConfig{
			Topics:     "golang, distributed systems",
			Tone:       "professional",
			Categories: []string{"engineering", "blog"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestScheduleStore_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	r := NewScheduleStore(db)
	ctx := context.Background()

	next := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	in := testSchedule("sched-1", "acct-1", &next)

	if _, err := r.Create(ctx, in); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.FindByID(ctx, "sched-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.AccountID != "acct-1" {
		t.Errorf("account = %q", got.AccountID)
	}
	if got.Cadence != schedule.CadenceDaily {
		t.Errorf("cadence = %q", got.Cadence)
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(next) {
		t.Errorf("next run = %v, want %v", got.NextRunAt, next)
	}
	if got.Config.Topics != "golang, distributed systems" {
		t.Errorf("topics = %q", got.Config.Topics)
	}
	if len(got.Config.Categories) != 2 || got.Config.Categories[0] != "engineering" {
		t.Errorf("categories = %v", got.Config.Categories)
	}
}

func TestScheduleStore_FindByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	r := NewScheduleStore(db)

	_, err := r.FindByID(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestScheduleStore_FindDue(t *testing.T) {
	db := setupTestDB(t)
	r := NewScheduleStore(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := testSchedule("due", "a1", &past)
	notDue := testSchedule("not-due", "a2", &future)
	neverArmed := testSchedule("never-armed", "a3", nil)
	inactive := testSchedule("inactive", "a4", &past)
	inactive.Active = false

	for _, s := range []schedule.Schedule{due, notDue, neverArmed, inactive} {
		if _, err := r.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.ID, err)
		}
	}

	got, err := r.FindDue(ctx, now)
	if err != nil {
		t.Fatalf("find due: %v", err)
	}

	ids := map[string]bool{}
	for _, s := range got {
		ids[s.ID] = true
	}
	if !ids["due"] || !ids["never-armed"] {
		t.Errorf("missing due schedules: %v", ids)
	}
	if ids["not-due"] || ids["inactive"] {
		t.Errorf("unexpected schedules returned: %v", ids)
	}
}

func TestScheduleStore_FindStale(t *testing.T) {
	db := setupTestDB(t)
	r := NewScheduleStore(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(6 * time.Hour)

	farFuture := now.Add(48 * time.Hour)
	nearFuture := now.Add(time.Hour)

	stale := testSchedule("stale", "a1", &farFuture)
	stale.Cadence = schedule.CadenceEvery5Hours
	healthy := testSchedule("healthy", "a2", &nearFuture)
	healthy.Cadence = schedule.CadenceEvery5Hours
	// A daily schedule legitimately sits far in the future
	daily := testSchedule("daily", "a3", &farFuture)

	for _, s := range []schedule.Schedule{stale, healthy, daily} {
		if _, err := r.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", s.ID, err)
		}
	}

	got, err := r.FindStale(ctx, schedule.CadenceEvery5Hours, cutoff)
	if err != nil {
		t.Fatalf("find stale: %v", err)
	}
	if len(got) != 1 || got[0].ID != "stale" {
		t.Errorf("stale = %v, want just [stale]", got)
	}
}

func TestScheduleStore_FindByIDs_MissingSilentlyAbsent(t *testing.T) {
	db := setupTestDB(t)
	r := NewScheduleStore(db)
	ctx := context.Background()

	if _, err := r.Create(ctx, testSchedule("one", "a1", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.FindByIDs(ctx, []string{"one", "ghost"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].ID != "one" {
		t.Errorf("got %v, want just [one]", got)
	}

	got, err = r.FindByIDs(ctx, nil)
	if err != nil || got != nil {
		t.Errorf("empty input: got %v, %v", got, err)
	}
}

func TestScheduleStore_SaveUpdates(t *testing.T) {
	db := setupTestDB(t)
	r := NewScheduleStore(db)
	ctx := context.Background()

	s := testSchedule("sched-1", "acct-1", nil)
	if _, err := r.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	s.PostsThisPeriod = 5
	next := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)
	s.NextRunAt = &next

	if _, err := r.Save(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := r.FindByID(ctx, "sched-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.PostsThisPeriod != 5 {
		t.Errorf("counter = %d, want 5", got.PostsThisPeriod)
	}
	if got.NextRunAt == nil || !got.NextRunAt.Equal(next) {
		t.Errorf("next run = %v", got.NextRunAt)
	}
}

func TestScheduleStore_Delete(t *testing.T) {
	db := setupTestDB(t)
	r := NewScheduleStore(db)
	ctx := context.Background()

	if _, err := r.Create(ctx, testSchedule("sched-1", "acct-1", nil)); err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := r.Delete(ctx, "sched-1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report true")
	}

	deleted, err = r.Delete(ctx, "sched-1")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Error("second delete must report false")
	}
}

func TestExecutionLogStore_MostRecent(t *testing.T) {
	db := setupTestDB(t)
	r := NewExecutionLogStore(db)
	ctx := context.Background()

	_, err := r.MostRecent(ctx, "sched-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for never-run schedule", err)
	}

	older := schedule.ExecutionLog{
		ID:         "log-1",
		ScheduleID: "sched-1",
		Outcome:    schedule.OutcomeFailed,
		CreatedAt:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	postID := "post-9"
	newer := schedule.ExecutionLog{
		ID:          "log-2",
		ScheduleID:  "sched-1",
		PostID:      &postID,
		Outcome:     schedule.OutcomeSucceeded,
		Title:       "How to ship",
		Scores:      schedule.ContentScores{SEO: 85, WordCount: 900},
		Suggestions: []string{"add internal links"},
		Provider:    "primary",
		CreatedAt:   time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	for _, l := range []schedule.ExecutionLog{older, newer} {
		if _, err := r.Create(ctx, l); err != nil {
			t.Fatalf("create log: %v", err)
		}
	}

	got, err := r.MostRecent(ctx, "sched-1")
	if err != nil {
		t.Fatalf("most recent: %v", err)
	}
	if got.ID != "log-2" {
		t.Errorf("got %q, want the newest log", got.ID)
	}
	if got.PostID == nil || *got.PostID != "post-9" {
		t.Errorf("post id = %v", got.PostID)
	}
	if got.Scores.SEO != 85 {
		t.Errorf("seo score = %d", got.Scores.SEO)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0] != "add internal links" {
		t.Errorf("suggestions = %v", got.Suggestions)
	}
}

func TestExecutionLogStore_Recent(t *testing.T) {
	db := setupTestDB(t)
	r := NewExecutionLogStore(db)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		l := schedule.ExecutionLog{
			ID:         string(rune('a' + i)),
			ScheduleID: "sched-1",
			Outcome:    schedule.OutcomeSucceeded,
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if _, err := r.Create(ctx, l); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := r.Recent(ctx, "sched-1", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Error("expected newest first")
	}
}

func TestPostStore_CreateAndSlugExists(t *testing.T) {
	db := setupTestDB(t)
	r := NewPostStore(db)
	ctx := context.Background()

	p := schedule.Post{
		ID:          "post-1",
		AccountID:   "acct-1",
		Title:       "Hello",
		Content:     "Body",
		Slug:        "hello",
		Status:      schedule.PostStatusPublished,
		PublishedAt: time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := r.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	exists, err := r.SlugExists(ctx, "acct-1", "hello")
	if err != nil {
		t.Fatalf("slug exists: %v", err)
	}
	if !exists {
		t.Error("expected slug to exist")
	}

	exists, err = r.SlugExists(ctx, "acct-1", "hello-1")
	if err != nil {
		t.Fatalf("slug exists: %v", err)
	}
	if exists {
		t.Error("unexpected slug hit")
	}
}

func TestNotificationStore_Notify(t *testing.T) {
	db := setupTestDB(t)
	r := NewNotificationStore(db)

	if err := r.Notify(context.Background(), "acct-1", "Post published", "Your post is live", "/dashboard/blog"); err != nil {
		t.Fatalf("notify: %v", err)
	}

	var count int64
	if err := db.Model(&notificationModel{}).Where("account_id = ?", "acct-1").Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

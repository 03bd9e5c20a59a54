package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
)

// --- Persistence Models ---

type scheduleModel struct {
	ID        string `gorm:"primaryKey;column:id"`
	AccountID string `gorm:"column:account_id;not null;index"`
	PageID    sql.NullString `gorm:"column:page_id"`

	Cadence       string         `gorm:"column:cadence;not null"`
	PreferredTime string         `gorm:"column:preferred_time;default:'09:00'"`
	StartDate     *time.Time     `gorm:"column:start_date"`
	Active        bool           `gorm:"column:active;default:true;index"`

	NextRunAt *time.Time `gorm:"column:next_run_at;index"`
	LastRunAt *time.Time `gorm:"column:last_run_at"`

	PostsThisPeriod int            `gorm:"column:posts_this_period;default:0"`
	PeriodKey       sql.NullString `gorm:"column:period_key"`

	Summary            sql.NullString `gorm:"column:summary"`
	SummaryGeneratedAt *time.Time     `gorm:"column:summary_generated_at"`

	Topics         sql.NullString `gorm:"column:topics"`
	Keywords       sql.NullString `gorm:"column:keywords"`
	TargetAudience sql.NullString `gorm:"column:target_audience"`
	Tone           sql.NullString `gorm:"column:tone"`
	PostLength     sql.NullString `gorm:"column:post_length"`
	Language       sql.NullString `gorm:"column:language"`
	TargetCountry  sql.NullString `gorm:"column:target_country"`
	Categories     sql.NullString `gorm:"column:categories"` // JSON array

	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (scheduleModel) TableName() string { return "auto_post_schedules" }

type executionLogModel struct {
	ID         string         `gorm:"primaryKey;column:id"`
	ScheduleID string         `gorm:"column:schedule_id;not null;index"`
	PostID     sql.NullString `gorm:"column:post_id"`

	Outcome      string         `gorm:"column:outcome;not null;index"`
	ErrorMessage sql.NullString `gorm:"column:error_message"`

	Title   sql.NullString `gorm:"column:title"`
	Excerpt sql.NullString `gorm:"column:excerpt"`

	SEOScore         int `gorm:"column:seo_score;default:0"`
	ReadabilityScore int `gorm:"column:readability_score;default:0"`
	OriginalityScore int `gorm:"column:originality_score;default:0"`
	EngagementScore  int `gorm:"column:engagement_score;default:0"`
	WordCount        int `gorm:"column:word_count;default:0"`

	Suggestions sql.NullString `gorm:"column:suggestions"` // JSON array

	Provider         sql.NullString `gorm:"column:provider"`
	ProcessingTimeMs int64          `gorm:"column:processing_time_ms;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;not null;index"`
}

func (executionLogModel) TableName() string { return "auto_post_logs" }

type postModel struct {
	ID        string `gorm:"primaryKey;column:id"`
	AccountID string `gorm:"column:account_id;not null;index;uniqueIndex:idx_posts_account_slug"`

	Title      string         `gorm:"column:title;not null"`
	Content    string         `gorm:"column:content;not null"`
	Keywords   sql.NullString `gorm:"column:keywords"`
	Slug       string         `gorm:"column:slug;not null;uniqueIndex:idx_posts_account_slug"`
	Status     string         `gorm:"column:status;default:'published';index"`
	Language   sql.NullString `gorm:"column:language"`
	Categories sql.NullString `gorm:"column:categories"` // JSON array

	PublishedAt time.Time `gorm:"column:published_at;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (postModel) TableName() string { return "posts" }

type notificationModel struct {
	ID        string         `gorm:"primaryKey;column:id"`
	AccountID string         `gorm:"column:account_id;not null;index"`
	Title     string         `gorm:"column:title;not null"`
	Message   string         `gorm:"column:message;not null"`
	Link      sql.NullString `gorm:"column:link"`
	Read      bool           `gorm:"column:read;default:false"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
}

func (notificationModel) TableName() string { return "notifications" }

// --- Mapping helpers ---

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func jsonStrings(in []string) sql.NullString {
	if len(in) == 0 {
		return sql.NullString{}
	}
	data, err := json.Marshal(in)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func fromJSONStrings(in sql.NullString) []string {
	if !in.Valid || in.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(in.String), &out); err != nil {
		return nil
	}
	return out
}

func toScheduleModel(s schedule.Schedule) scheduleModel {
	return scheduleModel{
		ID:                 s.ID,
		AccountID:          s.AccountID,
		PageID:             nullable(s.PageID),
		Cadence:            string(s.Cadence),
		PreferredTime:      s.PreferredTime,
		StartDate:          s.StartDate,
		Active:             s.Active,
		NextRunAt:          s.NextRunAt,
		LastRunAt:          s.LastRunAt,
		PostsThisPeriod:    s.PostsThisPeriod,
		PeriodKey:          nullable(s.PeriodKey),
		Summary:            nullable(s.Summary),
		SummaryGeneratedAt: s.SummaryGeneratedAt,
		Topics:             nullable(s.Config.Topics),
		Keywords:           nullable(s.Config.Keywords),
		TargetAudience:     nullable(s.Config.TargetAudience),
		Tone:               nullable(s.Config.Tone),
		PostLength:         nullable(s.Config.PostLength),
		Language:           nullable(s.Config.Language),
		TargetCountry:      nullable(s.Config.TargetCountry),
		Categories:         jsonStrings(s.Config.Categories),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func toScheduleDomain(m scheduleModel) schedule.Schedule {
	return schedule.Schedule{
		ID:                 m.ID,
		AccountID:          m.AccountID,
		PageID:             m.PageID.String,
		Cadence:            schedule.Cadence(m.Cadence),
		PreferredTime:      m.PreferredTime,
		StartDate:          m.StartDate,
		Active:             m.Active,
		NextRunAt:          m.NextRunAt,
		LastRunAt:          m.LastRunAt,
		PostsThisPeriod:    m.PostsThisPeriod,
		PeriodKey:          m.PeriodKey.String,
		Summary:            m.Summary.String,
		SummaryGeneratedAt: m.SummaryGeneratedAt,
		Config: schedule.ContentConfig{
			Topics:         m.Topics.String,
			Keywords:       m.Keywords.String,
			TargetAudience: m.TargetAudience.String,
			Tone:           m.Tone.String,
			PostLength:     m.PostLength.String,
			Language:       m.Language.String,
			TargetCountry:  m.TargetCountry.String,
			Categories:     fromJSONStrings(m.Categories),
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toLogModel(l schedule.ExecutionLog) executionLogModel {
	m := executionLogModel{
		ID:               l.ID,
		ScheduleID:       l.ScheduleID,
		Outcome:          string(l.Outcome),
		ErrorMessage:     nullable(l.ErrorMessage),
		Title:            nullable(l.Title),
		Excerpt:          nullable(l.Excerpt),
		SEOScore:         l.Scores.SEO,
		ReadabilityScore: l.Scores.Readability,
		OriginalityScore: l.Scores.Originality,
		EngagementScore:  l.Scores.Engagement,
		WordCount:        l.Scores.WordCount,
		Suggestions:      jsonStrings(l.Suggestions),
		Provider:         nullable(l.Provider),
		ProcessingTimeMs: l.ProcessingTime.Milliseconds(),
		CreatedAt:        l.CreatedAt,
	}
	if l.PostID != nil {
		m.PostID = nullable(*l.PostID)
	}
	return m
}

func toLogDomain(m executionLogModel) schedule.ExecutionLog {
	l := schedule.ExecutionLog{
		ID:           m.ID,
		ScheduleID:   m.ScheduleID,
		Outcome:      schedule.Outcome(m.Outcome),
		ErrorMessage: m.ErrorMessage.String,
		Title:        m.Title.String,
		Excerpt:      m.Excerpt.String,
		Scores: schedule.ContentScores{
			SEO:         m.SEOScore,
			Readability: m.ReadabilityScore,
			Originality: m.OriginalityScore,
			Engagement:  m.EngagementScore,
			WordCount:   m.WordCount,
		},
		Suggestions:    fromJSONStrings(m.Suggestions),
		Provider:       m.Provider.String,
		ProcessingTime: time.Duration(m.ProcessingTimeMs) * time.Millisecond,
		CreatedAt:      m.CreatedAt,
	}
	if m.PostID.Valid {
		id := m.PostID.String
		l.PostID = &id
	}
	return l
}

func toPostModel(p schedule.Post) postModel {
	return postModel{
		ID:          p.ID,
		AccountID:   p.AccountID,
		Title:       p.Title,
		Content:     p.Content,
		Keywords:    nullable(p.Keywords),
		Slug:        p.Slug,
		Status:      p.Status,
		Language:    nullable(p.Language),
		Categories:  jsonStrings(p.Categories),
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
	}
}

func toPostDomain(m postModel) schedule.Post {
	return schedule.Post{
		ID:          m.ID,
		AccountID:   m.AccountID,
		Title:       m.Title,
		Content:     m.Content,
		Keywords:    m.Keywords.String,
		Slug:        m.Slug,
		Status:      m.Status,
		Language:    m.Language.String,
		Categories:  fromJSONStrings(m.Categories),
		PublishedAt: m.PublishedAt,
		CreatedAt:   m.CreatedAt,
	}
}

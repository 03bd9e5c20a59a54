package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"gorm.io/gorm"
)

// ExecutionLogStore is the append-only repository for processing
// attempt records. Rows are never updated or deleted.
type ExecutionLogStore struct {
	db *gorm.DB
}

// NewExecutionLogStore creates an execution-log repository over db
func NewExecutionLogStore(db *gorm.DB) *ExecutionLogStore {
	return &ExecutionLogStore{db: db}
}

// Create appends a log row
func (r *ExecutionLogStore) Create(ctx context.Context, l schedule.ExecutionLog) (schedule.ExecutionLog, error) {
	m := toLogModel(l)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return schedule.ExecutionLog{}, fmt.Errorf("failed to create execution log: %w", err)
	}
	return toLogDomain(m), nil
}

// MostRecent returns the latest log row for a schedule, or ErrNotFound
// when the schedule has never run.
func (r *ExecutionLogStore) MostRecent(ctx context.Context, scheduleID string) (schedule.ExecutionLog, error) {
	var m executionLogModel
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schedule.ExecutionLog{}, ErrNotFound
	}
	if err != nil {
		return schedule.ExecutionLog{}, fmt.Errorf("failed to load latest log for schedule %s: %w", scheduleID, err)
	}
	return toLogDomain(m), nil
}

// Recent returns up to limit log rows for a schedule, newest first
func (r *ExecutionLogStore) Recent(ctx context.Context, scheduleID string, limit int) ([]schedule.ExecutionLog, error) {
	var models []executionLogModel
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load logs for schedule %s: %w", scheduleID, err)
	}
	out := make([]schedule.ExecutionLog, 0, len(models))
	for _, m := range models {
		out = append(out, toLogDomain(m))
	}
	return out, nil
}

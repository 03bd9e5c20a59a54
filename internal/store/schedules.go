package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"gorm.io/gorm"
)

// ScheduleStore is the CRUD repository for auto-post schedules
type ScheduleStore struct {
	db *gorm.DB
}

// NewScheduleStore creates a schedule repository over db
func NewScheduleStore(db *gorm.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// FindDue returns active schedules whose next run time has passed, or
// that were never armed (nil next_run_at counts as due now).
func (r *ScheduleStore) FindDue(ctx context.Context, now time.Time) ([]schedule.Schedule, error) {
	var models []scheduleModel
	err := r.db.WithContext(ctx).
		Where("active = ? AND (next_run_at <= ? OR next_run_at IS NULL)", true, now).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	return mapSchedules(models), nil
}

// FindStale returns active schedules of the given cadence whose next
// run time has drifted beyond cutoff into the future.
func (r *ScheduleStore) FindStale(ctx context.Context, cadence schedule.Cadence, cutoff time.Time) ([]schedule.Schedule, error) {
	var models []scheduleModel
	err := r.db.WithContext(ctx).
		Where("active = ? AND cadence = ? AND next_run_at > ?", true, string(cadence), cutoff).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query stale schedules: %w", err)
	}
	return mapSchedules(models), nil
}

// FindByID returns one schedule or ErrNotFound
func (r *ScheduleStore) FindByID(ctx context.Context, id string) (schedule.Schedule, error) {
	var m scheduleModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schedule.Schedule{}, ErrNotFound
	}
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("failed to load schedule %s: %w", id, err)
	}
	return toScheduleDomain(m), nil
}

// FindByIDs bulk-fetches schedules; missing IDs are silently absent
// from the result.
func (r *ScheduleStore) FindByIDs(ctx context.Context, ids []string) ([]schedule.Schedule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var models []scheduleModel
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	return mapSchedules(models), nil
}

// FindByAccount returns the account's schedule or ErrNotFound. Each
// account has at most one schedule.
func (r *ScheduleStore) FindByAccount(ctx context.Context, accountID string) (schedule.Schedule, error) {
	var m scheduleModel
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return schedule.Schedule{}, ErrNotFound
	}
	if err != nil {
		return schedule.Schedule{}, fmt.Errorf("failed to load schedule for account %s: %w", accountID, err)
	}
	return toScheduleDomain(m), nil
}

// Create inserts a new schedule
func (r *ScheduleStore) Create(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	m := toScheduleModel(s)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return schedule.Schedule{}, fmt.Errorf("failed to create schedule: %w", err)
	}
	return toScheduleDomain(m), nil
}

// Save persists the full schedule record and returns the stored copy
func (r *ScheduleStore) Save(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	s.UpdatedAt = time.Now().UTC()
	m := toScheduleModel(s)
	if err := r.db.WithContext(ctx).Save(&m).Error; err != nil {
		return schedule.Schedule{}, fmt.Errorf("failed to save schedule %s: %w", s.ID, err)
	}
	return toScheduleDomain(m), nil
}

// Delete removes a schedule, reporting whether a row existed
func (r *ScheduleStore) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&scheduleModel{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete schedule %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func mapSchedules(models []scheduleModel) []schedule.Schedule {
	out := make([]schedule.Schedule, 0, len(models))
	for _, m := range models {
		out = append(out, toScheduleDomain(m))
	}
	return out
}

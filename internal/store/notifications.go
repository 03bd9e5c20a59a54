package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationStore delivers in-app notifications by persisting rows
// the dashboard reads. It implements the processor's Notifier contract.
type NotificationStore struct {
	db *gorm.DB
}

// NewNotificationStore creates a notification repository over db
func NewNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Notify records a notification for the account
func (r *NotificationStore) Notify(ctx context.Context, accountID, title, message, link string) error {
	m := notificationModel{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Title:     title,
		Message:   message,
		Link:      nullable(link),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to create notification for account %s: %w", accountID, err)
	}
	return nil
}

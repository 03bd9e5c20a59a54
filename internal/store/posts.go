package store

import (
	"context"
	"fmt"

	"github.com/BrunoBianchi/Portyo-sub004/internal/schedule"
	"gorm.io/gorm"
)

// PostStore persists published content items
type PostStore struct {
	db *gorm.DB
}

// NewPostStore creates a post repository over db
func NewPostStore(db *gorm.DB) *PostStore {
	return &PostStore{db: db}
}

// Create inserts a published post
func (r *PostStore) Create(ctx context.Context, p schedule.Post) (schedule.Post, error) {
	m := toPostModel(p)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return schedule.Post{}, fmt.Errorf("failed to create post: %w", err)
	}
	return toPostDomain(m), nil
}

// SlugExists reports whether a post with the given slug already exists
// for the account. Used to probe for a unique slug before publishing.
func (r *PostStore) SlugExists(ctx context.Context, accountID, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&postModel{}).
		Where("account_id = ? AND slug = ?", accountID, slug).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check slug %q: %w", slug, err)
	}
	return count > 0, nil
}

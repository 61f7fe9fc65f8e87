package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tripmesh/integrations/internal/integration/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, integration *domain.Integration) error {
	return db.WithContext(ctx).Create(integration).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Integration, error) {
	var item domain.Integration
	err := db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Integration, error) {
	var item domain.Integration
	err := db.WithContext(ctx).First(&item, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID int64) ([]domain.Integration, error) {
	var items []domain.Integration
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, integration *domain.Integration) error {
	integration.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(integration).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) (bool, error) {
	res := db.WithContext(ctx).Delete(&domain.Integration{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status domain.Status, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE integrations SET status = ?, updated_at = ? WHERE id = ?`,
		status, updatedAt, id,
	).Error
}

func (r *repo) FindDueForSync(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Integration, error) {
	var items []domain.Integration
	err := db.WithContext(ctx).
		Where("auto_sync = ? AND is_enabled = ? AND next_sync IS NOT NULL AND next_sync <= ?", true, true, now).
		Order("next_sync ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindForHealthCheck(ctx context.Context, db *gorm.DB, limit int) ([]domain.Integration, error) {
	var items []domain.Integration
	err := db.WithContext(ctx).
		Where("is_enabled = ? AND status IN ?", true, []domain.Status{domain.StatusActive, domain.StatusError}).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ResetUsage matches FindNeedingUsageReset's predicate so every row the
// sweep picks up is either reset here or already stamped by a racing run.
func (r *repo) ResetUsage(ctx context.Context, db *gorm.DB, id int64, period string, updatedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE integrations
		 SET current_month_usage = 0,
		     last_usage_reset = ?,
		     status = CASE WHEN status = ? THEN ? ELSE status END,
		     updated_at = ?
		 WHERE id = ? AND (last_usage_reset <> ? OR last_usage_reset IS NULL OR last_usage_reset = '')`,
		period, domain.StatusRateLimited, domain.StatusActive, updatedAt,
		id, period,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindNeedingUsageReset(ctx context.Context, db *gorm.DB, period string, limit int) ([]domain.Integration, error) {
	var items []domain.Integration
	err := db.WithContext(ctx).
		Where("last_usage_reset <> ? OR last_usage_reset IS NULL OR last_usage_reset = ''", period).
		Order("id ASC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

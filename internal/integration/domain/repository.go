package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, integration *Integration) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Integration, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Integration, error)
	List(ctx context.Context, db *gorm.DB, ownerID int64) ([]Integration, error)
	Save(ctx context.Context, db *gorm.DB, integration *Integration) error
	Delete(ctx context.Context, db *gorm.DB, id int64) (bool, error)

	UpdateStatus(ctx context.Context, db *gorm.DB, id int64, status Status, updatedAt time.Time) error

	// FindDueForSync returns enabled auto-sync integrations whose next_sync
	// has elapsed.
	FindDueForSync(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Integration, error)
	// FindForHealthCheck returns enabled integrations in active or error state.
	FindForHealthCheck(ctx context.Context, db *gorm.DB, limit int) ([]Integration, error)
	// FindNeedingUsageReset returns integrations whose last usage reset
	// marker differs from the given calendar period.
	FindNeedingUsageReset(ctx context.Context, db *gorm.DB, period string, limit int) ([]Integration, error)
	// ResetUsage zeroes the monthly counter, stamps the reset marker and
	// lifts a quota-induced rate limit in a single statement, so it cannot
	// clobber concurrent whole-record saves. Reports whether the row was
	// due for a reset.
	ResetUsage(ctx context.Context, db *gorm.DB, id int64, period string, updatedAt time.Time) (bool, error)
}

package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Used returns calls_used for the period, zero when the row does not
	// exist yet.
	Used(ctx context.Context, db *gorm.DB, period string) (int64, error)
	// TrySpend atomically increments the period counter by n iff the
	// result stays within ceiling. Returns false when the increment was
	// rejected. The period row is created lazily.
	TrySpend(ctx context.Context, db *gorm.DB, period string, n, ceiling int64, now time.Time) (bool, error)
}

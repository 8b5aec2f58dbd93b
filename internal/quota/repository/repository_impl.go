package repository

import (
	"context"
	"time"

	quotadomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() quotadomain.Repository {
	return &repo{}
}

func (r *repo) Used(ctx context.Context, db *gorm.DB, period string) (int64, error) {
	var used int64
	err := db.WithContext(ctx).Raw(
		`SELECT calls_used FROM api_quota WHERE period = ?`,
		period,
	).Scan(&used).Error
	if err != nil {
		return 0, err
	}
	return used, nil
}

func (r *repo) TrySpend(ctx context.Context, db *gorm.DB, period string, n, ceiling int64, now time.Time) (bool, error) {
	if err := r.ensurePeriod(ctx, db, period, now); err != nil {
		return false, err
	}

	// Single conditional update; the WHERE clause is what makes
	// check-and-increment atomic.
	res := db.WithContext(ctx).Exec(
		`UPDATE api_quota
		 SET calls_used = calls_used + ?, updated_at = ?
		 WHERE period = ? AND calls_used + ? <= ?`,
		n,
		now,
		period,
		n,
		ceiling,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) ensurePeriod(ctx context.Context, db *gorm.DB, period string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO api_quota (period, calls_used, updated_at)
		 VALUES (?, 0, ?)
		 ON CONFLICT (period) DO NOTHING`,
		period,
		now,
	).Error
}

package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// Get returns nil when the (region, item) pair was never attempted.
	Get(ctx context.Context, db *gorm.DB, region, item string) (*CachedPrice, error)
	// Upsert overwrites any prior row for the same (region, item) key.
	Upsert(ctx context.Context, db *gorm.DB, row *CachedPrice) error
	// CountResolved counts rows in either terminal state for the given
	// region and item set.
	CountResolved(ctx context.Context, db *gorm.DB, region string, items []string) (int64, error)
	Stats(ctx context.Context, db *gorm.DB) (*Stats, error)
}

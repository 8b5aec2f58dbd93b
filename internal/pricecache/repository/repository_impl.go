package repository

import (
	"context"

	pricecachedomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/pricecache/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricecachedomain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, region, item string) (*pricecachedomain.CachedPrice, error) {
	var row pricecachedomain.CachedPrice
	err := db.WithContext(ctx).Raw(
		`SELECT id, region, item, state, price, provenance, resolved_at
		 FROM grocery_prices WHERE region = ? AND item = ?`,
		region,
		item,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, row *pricecachedomain.CachedPrice) error {
	// ON CONFLICT syntax is shared by sqlite and postgres.
	return db.WithContext(ctx).Exec(
		`INSERT INTO grocery_prices (id, region, item, state, price, provenance, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (region, item) DO UPDATE SET
			state = excluded.state,
			price = excluded.price,
			provenance = excluded.provenance,
			resolved_at = excluded.resolved_at`,
		row.ID,
		row.Region,
		row.Item,
		row.State,
		row.Price,
		row.Provenance,
		row.ResolvedAt,
	).Error
}

func (r *repo) CountResolved(ctx context.Context, db *gorm.DB, region string, items []string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&pricecachedomain.CachedPrice{}).
		Where("region = ? AND item IN ?", region, items).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB) (*pricecachedomain.Stats, error) {
	var stats pricecachedomain.Stats
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS total_rows,
			COUNT(CASE WHEN state = ? THEN 1 END) AS priced_rows,
			COUNT(CASE WHEN state = ? THEN 1 END) AS unavailable_rows,
			COUNT(DISTINCT region) AS distinct_regions,
			COUNT(DISTINCT item) AS distinct_items
		 FROM grocery_prices`,
		pricecachedomain.StatePriced,
		pricecachedomain.StateUnavailable,
	).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

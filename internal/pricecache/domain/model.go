// Package domain contains the durable price cache model. A row per
// (region, item) pair holds either a resolved price or a confirmed
// "no usable price" sentinel; a missing row means the pair was never
// attempted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type State string

const (
	StatePriced      State = "priced"
	StateUnavailable State = "unavailable"
)

// Provenance reason tags for unavailable rows. Priced rows carry the seller
// identity of the winning offer instead.
const (
	ProvenanceNoData     = "no-data-available"
	ProvenanceQuota      = "quota-exhausted"
	ProvenanceFetchError = "fetch-error"
)

// CachedPrice is immutable once written except through an explicit refresh
// upsert. Price is nil unless State is StatePriced, in which case it is
// strictly positive.
type CachedPrice struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Region     string       `gorm:"type:text;not null;index:idx_region_item,unique"`
	Item       string       `gorm:"type:text;not null;index:idx_region_item,unique"`
	State      State        `gorm:"type:text;not null"`
	Price      *float64
	Provenance string    `gorm:"type:text;not null"`
	ResolvedAt time.Time `gorm:"not null"`
}

func (CachedPrice) TableName() string { return "grocery_prices" }

// Stats summarizes cache contents for diagnostics.
type Stats struct {
	TotalRows       int64 `json:"total_rows"`
	PricedRows      int64 `json:"priced_rows"`
	UnavailableRows int64 `json:"unavailable_rows"`
	DistinctRegions int64 `json:"distinct_regions"`
	DistinctItems   int64 `json:"distinct_items"`
}

// Package domain defines the basket resolution results handed to the HTTP
// layer. A resolution always produces a result object; only durable-store
// failures surface as errors.
package domain

import (
	"context"
	"errors"

	pricecachedomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/pricecache/domain"
)

type DataSource string

const (
	// SourceFullCache: every item answered from the durable cache.
	SourceFullCache DataSource = "full-cache"
	// SourceMixed: at least one fresh provider fetch contributed.
	SourceMixed DataSource = "mixed-cache-and-fetch"
	// SourceQuotaFallback: monthly ceiling reached; missing items were
	// estimated from category fallbacks and nothing was cached.
	SourceQuotaFallback DataSource = "quota-exceeded-fallback"
	// SourceNoData: every item is confirmed unavailable; total is null.
	SourceNoData DataSource = "no-data-available"
	// SourceCategoryFallback: pipeline disabled; fixed category estimates
	// without touching cache or quota.
	SourceCategoryFallback DataSource = "category-fallback"
)

type BasketResult struct {
	Region string `json:"region"`
	// Prices maps item name to resolved (or estimated) price.
	Prices map[string]float64 `json:"individual_prices"`
	// Total is nil when no item could be priced.
	Total      *float64   `json:"total_basket_cost"`
	DataSource DataSource `json:"data_source"`
	CacheHits  int        `json:"cache_hits"`
	Fetches    int        `json:"api_calls_made"`
	// Unavailable lists items confirmed to have no usable price.
	Unavailable []string `json:"no_data_items,omitempty"`
	// Estimated lists items whose price is a fallback or coverage average
	// rather than an authoritative quote.
	Estimated []string `json:"estimated_items,omitempty"`
}

type RefreshSummary struct {
	RunID        string `json:"run_id"`
	TotalRegions int    `json:"total_regions"`
	Processed    int    `json:"processed_regions"`
	Skipped      int    `json:"skipped_regions"`
	Successes    int    `json:"successful"`
	Failures     int    `json:"failed"`
	TotalCalls   int    `json:"total_api_calls"`
	UsageAfter   int64  `json:"monthly_usage_after"`
}

type Status struct {
	Enabled        bool                    `json:"enabled"`
	QuotaCeiling   int64                   `json:"quota_ceiling"`
	QuotaUsed      int64                   `json:"quota_used"`
	QuotaRemaining int64                   `json:"quota_remaining"`
	Cache          *pricecachedomain.Stats `json:"cache"`
	BasketItems    []string                `json:"basket_items"`
}

type Service interface {
	// Resolve returns the basket cost for one region, cache-first.
	Resolve(ctx context.Context, region string) (*BasketResult, error)
	// Refresh warms the cache for many regions, skipping complete ones.
	Refresh(ctx context.Context, regions []string) (*RefreshSummary, error)
	Status(ctx context.Context) (*Status, error)
}

var ErrPipelineDisabled = errors.New("pipeline_disabled")

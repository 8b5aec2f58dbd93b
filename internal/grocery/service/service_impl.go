package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/bwmarrin/snowflake"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/basket"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/clock"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/config"
	grocerydomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/grocery/domain"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/observability"
	pricecachedomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/pricecache/domain"
	providerdomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/provider/domain"
	quotadomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/domain"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/ratelimit"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	Clock   clock.Clock
	Node    *snowflake.Node
	Basket  basket.Definition
	Cache   pricecachedomain.Repository
	Ledger  quotadomain.Ledger
	Gateway providerdomain.Gateway
	Limiter ratelimit.Limiter
	Metrics *observability.Metrics
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	node        *snowflake.Node
	basket      basket.Definition
	cache       pricecachedomain.Repository
	ledger      quotadomain.Ledger
	gateway     providerdomain.Gateway
	limiter     ratelimit.Limiter
	metrics     *observability.Metrics
	enabled     bool
	minCoverage float64
}

func NewService(p ServiceParam) grocerydomain.Service {
	enabled := p.Config.Provider.Enabled && p.Config.Provider.APIKey != ""
	return &service{
		db:          p.DB,
		log:         p.Log.Named("grocery.service"),
		clock:       p.Clock,
		node:        p.Node,
		basket:      p.Basket,
		cache:       p.Cache,
		ledger:      p.Ledger,
		gateway:     p.Gateway,
		limiter:     p.Limiter,
		metrics:     p.Metrics,
		enabled:     enabled,
		minCoverage: p.Config.Basket.MinCoverage,
	}
}

func (s *service) Resolve(ctx context.Context, region string) (*grocerydomain.BasketResult, error) {
	if !s.enabled {
		return s.disabledBasket(region), nil
	}

	priced := make(map[string]float64)
	var unavailable []string
	var needsFetch []basket.Item

	for _, item := range s.basket.Items {
		row, err := s.cache.Get(ctx, s.db, region, item.Name)
		if err != nil {
			return nil, fmt.Errorf("read price cache: %w", err)
		}
		switch {
		case row == nil:
			needsFetch = append(needsFetch, item)
		case row.State == pricecachedomain.StatePriced:
			priced[item.Name] = *row.Price
			s.metrics.CacheHits.Inc()
		default:
			// Confirmed unavailable is terminal until an explicit
			// refresh; never treated as a retryable miss.
			unavailable = append(unavailable, item.Name)
		}
	}
	cacheHits := len(priced)

	if len(needsFetch) == 0 {
		return s.aggregate(region, priced, unavailable, cacheHits, 0), nil
	}

	ok, err := s.ledger.CanSpend(ctx, int64(len(needsFetch)))
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if !ok {
		s.metrics.QuotaDenied.Inc()
		s.log.Warn("quota exhausted, serving fallback estimates",
			zap.String("region", region),
			zap.Int("missing_items", len(needsFetch)),
		)
		return s.quotaFallback(region, priced, unavailable, needsFetch, cacheHits, 0), nil
	}

	fetches := 0
	for i, item := range needsFetch {
		// Reserve quota before the call; this ordering is what makes
		// the ceiling unbreachable under concurrent resolutions.
		if err := s.ledger.TrySpend(ctx, 1); err != nil {
			if errors.Is(err, quotadomain.ErrQuotaExceeded) {
				s.metrics.QuotaDenied.Inc()
				return s.quotaFallback(region, priced, unavailable, needsFetch[i:], cacheHits, fetches), nil
			}
			return nil, fmt.Errorf("spend quota: %w", err)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		quote, err := s.gateway.FetchPrice(ctx, item, region)
		fetches++

		switch {
		case err != nil:
			s.metrics.ProviderCalls.WithLabelValues("error").Inc()
			s.log.Warn("provider fetch failed",
				zap.String("region", region),
				zap.String("item", item.Name),
				zap.Error(err),
			)
			if err := s.cacheUnavailable(ctx, region, item.Name, pricecachedomain.ProvenanceFetchError); err != nil {
				return nil, err
			}
			unavailable = append(unavailable, item.Name)
		case quote == nil:
			s.metrics.ProviderCalls.WithLabelValues("no_match").Inc()
			if err := s.cacheUnavailable(ctx, region, item.Name, pricecachedomain.ProvenanceNoData); err != nil {
				return nil, err
			}
			unavailable = append(unavailable, item.Name)
		default:
			s.metrics.ProviderCalls.WithLabelValues("priced").Inc()
			if err := s.cachePriced(ctx, region, item.Name, quote); err != nil {
				return nil, err
			}
			priced[item.Name] = quote.Price
		}
	}

	return s.aggregate(region, priced, unavailable, cacheHits, fetches), nil
}

func (s *service) cachePriced(ctx context.Context, region, item string, quote *providerdomain.Quote) error {
	price := quote.Price
	row := &pricecachedomain.CachedPrice{
		ID:         s.node.Generate(),
		Region:     region,
		Item:       item,
		State:      pricecachedomain.StatePriced,
		Price:      &price,
		Provenance: quote.Seller,
		ResolvedAt: s.clock.Now(ctx),
	}
	if err := s.cache.Upsert(ctx, s.db, row); err != nil {
		return fmt.Errorf("write price cache: %w", err)
	}
	return nil
}

func (s *service) cacheUnavailable(ctx context.Context, region, item, reason string) error {
	row := &pricecachedomain.CachedPrice{
		ID:         s.node.Generate(),
		Region:     region,
		Item:       item,
		State:      pricecachedomain.StateUnavailable,
		Provenance: reason,
		ResolvedAt: s.clock.Now(ctx),
	}
	if err := s.cache.Upsert(ctx, s.db, row); err != nil {
		return fmt.Errorf("write price cache: %w", err)
	}
	return nil
}

// aggregate builds the authoritative result. When priced coverage reaches
// the configured minimum but falls short of the full basket, missing items
// are filled with the average of priced values.
func (s *service) aggregate(region string, priced map[string]float64, unavailable []string, cacheHits, fetches int) *grocerydomain.BasketResult {
	source := grocerydomain.SourceFullCache
	if fetches > 0 {
		source = grocerydomain.SourceMixed
	}

	res := &grocerydomain.BasketResult{
		Region:      region,
		Prices:      make(map[string]float64, len(priced)),
		DataSource:  source,
		CacheHits:   cacheHits,
		Fetches:     fetches,
		Unavailable: unavailable,
	}
	for name, price := range priced {
		res.Prices[name] = price
	}

	if len(priced) == 0 {
		res.DataSource = grocerydomain.SourceNoData
		return res
	}

	sum := 0.0
	for _, price := range priced {
		sum += price
	}

	size := s.basket.Size()
	minPriced := int(math.Ceil(s.minCoverage * float64(size)))
	if len(priced) < size && len(priced) >= minPriced {
		avg := sum / float64(len(priced))
		for _, item := range s.basket.Items {
			if _, ok := res.Prices[item.Name]; ok {
				continue
			}
			res.Prices[item.Name] = round2(avg)
			res.Estimated = append(res.Estimated, item.Name)
			sum += avg
		}
	}

	total := round2(sum)
	res.Total = &total
	return res
}

// quotaFallback substitutes category estimates for items that could not be
// fetched. Estimates are never written to the cache.
func (s *service) quotaFallback(region string, priced map[string]float64, unavailable []string, missing []basket.Item, cacheHits, fetches int) *grocerydomain.BasketResult {
	res := &grocerydomain.BasketResult{
		Region:      region,
		Prices:      make(map[string]float64, len(priced)+len(missing)),
		DataSource:  grocerydomain.SourceQuotaFallback,
		CacheHits:   cacheHits,
		Fetches:     fetches,
		Unavailable: unavailable,
	}
	sum := 0.0
	for name, price := range priced {
		res.Prices[name] = price
		sum += price
	}
	for _, item := range missing {
		price := basket.FallbackPrice(item.Category)
		res.Prices[item.Name] = price
		res.Estimated = append(res.Estimated, item.Name)
		sum += price
	}
	total := round2(sum)
	res.Total = &total
	return res
}

// disabledBasket serves fixed category estimates without touching the cache
// or the quota ledger.
func (s *service) disabledBasket(region string) *grocerydomain.BasketResult {
	res := &grocerydomain.BasketResult{
		Region:     region,
		Prices:     make(map[string]float64, s.basket.Size()),
		DataSource: grocerydomain.SourceCategoryFallback,
	}
	sum := 0.0
	for _, item := range s.basket.Items {
		price := basket.FallbackPrice(item.Category)
		res.Prices[item.Name] = price
		res.Estimated = append(res.Estimated, item.Name)
		sum += price
	}
	total := round2(sum)
	res.Total = &total
	return res
}

func (s *service) Refresh(ctx context.Context, regions []string) (*grocerydomain.RefreshSummary, error) {
	if !s.enabled {
		return nil, grocerydomain.ErrPipelineDisabled
	}

	size := int64(s.basket.Size())
	names := s.basket.Names()

	// Pre-pass: cost the run before spending anything, and remember which
	// regions are already complete so they never reach the resolver.
	resolved := make(map[string]int64, len(regions))
	var projected int64
	for _, region := range regions {
		count, err := s.cache.CountResolved(ctx, s.db, region, names)
		if err != nil {
			return nil, fmt.Errorf("count resolved rows: %w", err)
		}
		resolved[region] = count
		projected += size - count
	}

	remaining, err := s.ledger.Remaining(ctx)
	if err != nil {
		return nil, fmt.Errorf("check quota: %w", err)
	}
	if projected > remaining {
		return nil, fmt.Errorf("%w: run needs %d calls, %d remaining this month",
			quotadomain.ErrQuotaInsufficient, projected, remaining)
	}

	summary := &grocerydomain.RefreshSummary{
		RunID:        uuid.NewString(),
		TotalRegions: len(regions),
	}

	for _, region := range regions {
		if resolved[region] >= size {
			summary.Skipped++
			s.metrics.RefreshRuns.WithLabelValues("skipped").Inc()
			continue
		}

		summary.Processed++
		result, err := s.Resolve(ctx, region)
		if err != nil {
			summary.Failures++
			s.metrics.RefreshRuns.WithLabelValues("failed").Inc()
			s.log.Warn("refresh failed for region",
				zap.String("run_id", summary.RunID),
				zap.String("region", region),
				zap.Error(err),
			)
			continue
		}

		summary.Successes++
		summary.TotalCalls += result.Fetches
		s.metrics.RefreshRuns.WithLabelValues("processed").Inc()
	}

	if used, err := s.ledger.Used(ctx); err != nil {
		// The run itself succeeded; a failed usage read only degrades the
		// summary.
		s.log.Warn("quota usage read failed after refresh",
			zap.String("run_id", summary.RunID),
			zap.Error(err),
		)
	} else {
		summary.UsageAfter = used
	}

	s.log.Info("batch refresh complete",
		zap.String("run_id", summary.RunID),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failures),
		zap.Int("total_calls", summary.TotalCalls),
	)
	return summary, nil
}

func (s *service) Status(ctx context.Context) (*grocerydomain.Status, error) {
	stats, err := s.cache.Stats(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("read cache stats: %w", err)
	}

	used, err := s.ledger.Used(ctx)
	if err != nil {
		return nil, fmt.Errorf("read quota usage: %w", err)
	}
	remaining := s.ledger.Ceiling() - used
	if remaining < 0 {
		remaining = 0
	}

	return &grocerydomain.Status{
		Enabled:        s.enabled,
		QuotaCeiling:   s.ledger.Ceiling(),
		QuotaUsed:      used,
		QuotaRemaining: remaining,
		Cache:          stats,
		BasketItems:    s.basket.Names(),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

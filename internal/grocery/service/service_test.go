package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/basket"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/clock"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/config"
	grocerydomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/grocery/domain"
	groceryservice "github.com/diyak0413/garden-state-grocery-gap-yay/internal/grocery/service"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/observability"
	pricecachedomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/pricecache/domain"
	pricecacherepo "github.com/diyak0413/garden-state-grocery-gap-yay/internal/pricecache/repository"
	providerdomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/provider/domain"
	quotadomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/domain"
	quotarepo "github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/repository"
	quotaservice "github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/service"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/ratelimit"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// stubGateway counts calls and answers from a per-item function.
type stubGateway struct {
	calls int
	fn    func(item basket.Item, region string) (*providerdomain.Quote, error)
}

func (g *stubGateway) FetchPrice(ctx context.Context, item basket.Item, region string) (*providerdomain.Quote, error) {
	g.calls++
	if g.fn == nil {
		return nil, nil
	}
	return g.fn(item, region)
}

type testEnv struct {
	svc    grocerydomain.Service
	db     *gorm.DB
	gw     *stubGateway
	ledger quotadomain.Ledger
	cache  pricecachedomain.Repository
	node   *snowflake.Node
}

func setup(t *testing.T, ceiling int64, enabled bool, gw *stubGateway) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&pricecachedomain.CachedPrice{}, &quotadomain.QuotaCounter{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{
		Provider: config.ProviderConfig{Enabled: enabled, APIKey: "test-key"},
		Quota:    config.QuotaConfig{MonthlyCeiling: ceiling},
		Basket:   config.BasketConfig{MinCoverage: 0.75},
	}
	fixed := clock.Fixed{T: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)}

	ledger := quotaservice.NewLedger(quotaservice.LedgerParam{
		DB:     db,
		Log:    zap.NewNop(),
		Config: cfg,
		Clock:  fixed,
		Repo:   quotarepo.Provide(),
	})

	cache := pricecacherepo.Provide()

	svc := groceryservice.NewService(groceryservice.ServiceParam{
		DB:      db,
		Log:     zap.NewNop(),
		Config:  cfg,
		Clock:   fixed,
		Node:    node,
		Basket:  basket.Default(),
		Cache:   cache,
		Ledger:  ledger,
		Gateway: gw,
		Limiter: ratelimit.NewDelay(0),
		Metrics: observability.NewTestMetrics(),
	})

	return &testEnv{svc: svc, db: db, gw: gw, ledger: ledger, cache: cache, node: node}
}

func (e *testEnv) seedPriced(t *testing.T, region, item string, price float64) {
	t.Helper()
	require.NoError(t, e.cache.Upsert(context.Background(), e.db, &pricecachedomain.CachedPrice{
		ID:         e.node.Generate(),
		Region:     region,
		Item:       item,
		State:      pricecachedomain.StatePriced,
		Price:      &price,
		Provenance: "Walmart.com",
		ResolvedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func (e *testEnv) seedUnavailable(t *testing.T, region, item, reason string) {
	t.Helper()
	require.NoError(t, e.cache.Upsert(context.Background(), e.db, &pricecachedomain.CachedPrice{
		ID:         e.node.Generate(),
		Region:     region,
		Item:       item,
		State:      pricecachedomain.StateUnavailable,
		Provenance: reason,
		ResolvedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func (e *testEnv) rowCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&pricecachedomain.CachedPrice{}).Count(&count).Error)
	return count
}

func quoteAll(price float64) func(basket.Item, string) (*providerdomain.Quote, error) {
	return func(basket.Item, string) (*providerdomain.Quote, error) {
		return &providerdomain.Quote{Price: price, Seller: "Walmart.com"}, nil
	}
}

func TestResolveDisabledPipelineUsesCategoryFallback(t *testing.T) {
	gw := &stubGateway{}
	env := setup(t, 100, false, gw)

	res, err := env.svc.Resolve(context.Background(), "07102")
	require.NoError(t, err)
	assert.Equal(t, grocerydomain.SourceCategoryFallback, res.DataSource)
	assert.Len(t, res.Prices, 8)
	assert.Len(t, res.Estimated, 8)
	require.NotNil(t, res.Total)
	assert.InDelta(t, 25.06, *res.Total, 0.001)

	// Neither the provider nor the stores were touched.
	assert.Equal(t, 0, gw.calls)
	assert.Equal(t, int64(0), env.rowCount(t))
	used, err := env.ledger.Used(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)
}

func TestResolveSecondPassIsFreeOfProviderCalls(t *testing.T) {
	gw := &stubGateway{fn: quoteAll(3.50)}
	env := setup(t, 100, true, gw)
	ctx := context.Background()

	first, err := env.svc.Resolve(ctx, "07102")
	require.NoError(t, err)
	assert.Equal(t, grocerydomain.SourceMixed, first.DataSource)
	assert.Equal(t, 8, first.Fetches)
	assert.Equal(t, 0, first.CacheHits)
	require.NotNil(t, first.Total)
	assert.InDelta(t, 28.00, *first.Total, 0.001)

	usedAfterFirst, err := env.ledger.Used(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), usedAfterFirst)

	second, err := env.svc.Resolve(ctx, "07102")
	require.NoError(t, err)
	assert.Equal(t, grocerydomain.SourceFullCache, second.DataSource)
	assert.Equal(t, 0, second.Fetches)
	assert.Equal(t, 8, second.CacheHits)
	require.NotNil(t, second.Total)
	assert.InDelta(t, 28.00, *second.Total, 0.001)

	assert.Equal(t, 8, gw.calls)
	usedAfterSecond, err := env.ledger.Used(ctx)
	require.NoError(t, err)
	assert.Equal(t, usedAfterFirst, usedAfterSecond)
}

func TestResolveAllUnavailableIsNotAnError(t *testing.T) {
	gw := &stubGateway{fn: func(basket.Item, string) (*providerdomain.Quote, error) {
		return nil, nil
	}}
	env := setup(t, 100, true, gw)
	ctx := context.Background()

	res, err := env.svc.Resolve(ctx, "07001")
	require.NoError(t, err)
	assert.Equal(t, grocerydomain.SourceNoData, res.DataSource)
	assert.Nil(t, res.Total)
	assert.Empty(t, res.Prices)
	assert.Len(t, res.Unavailable, 8)
	assert.Equal(t, 8, res.Fetches)

	// Sentinels are durable: the next resolution re-fetches nothing.
	res2, err := env.svc.Resolve(ctx, "07001")
	require.NoError(t, err)
	assert.Equal(t, grocerydomain.SourceNoData, res2.DataSource)
	assert.Nil(t, res2.Total)
	assert.Equal(t, 0, res2.Fetches)
	assert.Equal(t, 8, gw.calls)

	row, err := env.cache.Get(ctx, env.db, "07001", "Eggs (1 dozen, large)")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, pricecachedomain.StateUnavailable, row.State)
	assert.Equal(t, pricecachedomain.ProvenanceNoData, row.Provenance)
}

func TestResolveCoverageAveragingFillsMissingItems(t *testing.T) {
	prices := map[string]float64{
		"Brown Rice (2 lb bag)":                     3.00,
		"Whole Wheat Bread (20 oz loaf)":            2.00,
		"Low-Fat Milk (1 gallon)":                   3.50,
		"Boneless Skinless Chicken Breast (per lb)": 5.00,
		"Eggs (1 dozen, large)":                     2.50,
		"Dry Black Beans (1 lb bag)":                1.50,
	}
	gw := &stubGateway{fn: func(item basket.Item, _ string) (*providerdomain.Quote, error) {
		price, ok := prices[item.Name]
		if !ok {
			return nil, nil
		}
		return &providerdomain.Quote{Price: price, Seller: "Walmart.com"}, nil
	}}
	env := setup(t, 100, true, gw)

	res, err := env.svc.Resolve(context.Background(), "08540")
	require.NoError(t, err)
	assert.Equal(t, grocerydomain.SourceMixed, res.DataSource)

	// 6 of 8 priced: the two missing items are filled with the average of
	// the priced values (17.50 / 6), so total = 17.50 + 2 * 2.9167.
	require.NotNil(t, res.Total)
	assert.InDelta(t, 23.33, *res.Total, 0.01)
	assert.ElementsMatch(t, []string{"Apples (3 lb bag)", "Fresh Broccoli (1 lb)"}, res.Estimated)
	assert.ElementsMatch(t, []string{"Apples (3 lb bag)", "Fresh Broccoli (1 lb)"}, res.Unavailable)
	assert.Len(t, res.Prices, 8)
}

func TestResolveQuotaExhaustedFallbackWritesNothing(t *testing.T) {
	gw := &stubGateway{fn: quoteAll(3.50)}
	env := setup(t, 0, true, gw)
	ctx := context.Background()

	// 5 items already cached; 3 would need fetching but the ceiling is 0.
	env.seedPriced(t, "07102", "Brown Rice (2 lb bag)", 3.00)
	env.seedPriced(t, "07102", "Whole Wheat Bread (20 oz loaf)", 2.00)
	env.seedPriced(t, "07102", "Low-Fat Milk (1 gallon)", 3.50)
	env.seedPriced(t, "07102", "Boneless Skinless Chicken Breast (per lb)", 5.00)
	env.seedPriced(t, "07102", "Eggs (1 dozen, large)", 2.50)

	res, err := env.svc.Resolve(ctx, "07102")
	require.NoError(t, err)
	assert.Equal(t, grocerydomain.SourceQuotaFallback, res.DataSource)
	assert.Equal(t, 5, res.CacheHits)
	assert.Equal(t, 0, res.Fetches)
	assert.Equal(t, 0, gw.calls)
	assert.Len(t, res.Estimated, 3)

	// Fallback estimates are not authoritative and never hit the cache.
	assert.Equal(t, int64(5), env.rowCount(t))
	used, err := env.ledger.Used(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)

	// apples 2.23 + broccoli 2.23 + beans 1.78 on top of 16.00 cached.
	require.NotNil(t, res.Total)
	assert.InDelta(t, 22.24, *res.Total, 0.001)
}

func TestResolveTransientFailureCachedAsFetchError(t *testing.T) {
	gw := &stubGateway{fn: func(basket.Item, string) (*providerdomain.Quote, error) {
		return nil, providerdomain.ErrProviderUnavailable
	}}
	env := setup(t, 100, true, gw)
	ctx := context.Background()

	res, err := env.svc.Resolve(ctx, "07306")
	require.NoError(t, err)
	assert.Equal(t, grocerydomain.SourceNoData, res.DataSource)
	assert.Nil(t, res.Total)
	assert.Equal(t, 8, res.Fetches)

	row, err := env.cache.Get(ctx, env.db, "07306", "Brown Rice (2 lb bag)")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, pricecachedomain.StateUnavailable, row.State)
	assert.Equal(t, pricecachedomain.ProvenanceFetchError, row.Provenance)

	// Errors still consume quota; an attempted call always counts.
	used, err := env.ledger.Used(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), used)

	// Not retried until an explicit refresh overwrites the sentinel.
	_, err = env.svc.Resolve(ctx, "07306")
	require.NoError(t, err)
	assert.Equal(t, 8, gw.calls)
}

func TestRefreshSkipsCompleteRegions(t *testing.T) {
	gw := &stubGateway{fn: quoteAll(3.50)}
	env := setup(t, 100, true, gw)
	ctx := context.Background()

	// Region 07102 fully resolved: 7 priced + 1 confirmed unavailable.
	items := basket.Default().Items
	for _, item := range items[:7] {
		env.seedPriced(t, "07102", item.Name, 3.00)
	}
	env.seedUnavailable(t, "07102", items[7].Name, pricecachedomain.ProvenanceNoData)

	summary, err := env.svc.Refresh(ctx, []string{"07102", "08540"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalRegions)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 0, summary.Failures)
	assert.Equal(t, 8, summary.TotalCalls)
	assert.Equal(t, int64(8), summary.UsageAfter)
	assert.NotEmpty(t, summary.RunID)

	// The complete region contributed zero provider calls.
	assert.Equal(t, 8, gw.calls)
}

// flakyLedger delegates to a real ledger but fails Used after a fixed
// number of reads.
type flakyLedger struct {
	quotadomain.Ledger
	failAfter int
	reads     int
}

func (l *flakyLedger) Used(ctx context.Context) (int64, error) {
	l.reads++
	if l.reads > l.failAfter {
		return 0, errors.New("ledger read failed")
	}
	return l.Ledger.Used(ctx)
}

func TestRefreshToleratesUsageReadFailure(t *testing.T) {
	gw := &stubGateway{fn: quoteAll(3.50)}
	env := setup(t, 100, true, gw)

	// Reads 1 and 2 serve the pre-pass and the resolver's quota gate; the
	// summary's usage-after read is the third.
	flaky := &flakyLedger{Ledger: env.ledger, failAfter: 2}
	svc := groceryservice.NewService(groceryservice.ServiceParam{
		DB:  env.db,
		Log: zap.NewNop(),
		Config: config.Config{
			Provider: config.ProviderConfig{Enabled: true, APIKey: "test-key"},
			Quota:    config.QuotaConfig{MonthlyCeiling: 100},
			Basket:   config.BasketConfig{MinCoverage: 0.75},
		},
		Clock:   clock.Fixed{T: time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)},
		Node:    env.node,
		Basket:  basket.Default(),
		Cache:   env.cache,
		Ledger:  flaky,
		Gateway: gw,
		Limiter: ratelimit.NewDelay(0),
		Metrics: observability.NewTestMetrics(),
	})

	summary, err := svc.Refresh(context.Background(), []string{"07102"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 8, summary.TotalCalls)
	// Usage-after degrades to zero instead of failing the run.
	assert.Equal(t, int64(0), summary.UsageAfter)
}

func TestRefreshAbortsWhenProjectedCallsExceedQuota(t *testing.T) {
	gw := &stubGateway{fn: quoteAll(3.50)}
	env := setup(t, 4, true, gw)

	_, err := env.svc.Refresh(context.Background(), []string{"07102", "08540"})
	assert.ErrorIs(t, err, quotadomain.ErrQuotaInsufficient)
	assert.Equal(t, 0, gw.calls)
	assert.Equal(t, int64(0), env.rowCount(t))
}

func TestRefreshDisabledPipeline(t *testing.T) {
	env := setup(t, 100, false, &stubGateway{})

	_, err := env.svc.Refresh(context.Background(), []string{"07102"})
	assert.True(t, errors.Is(err, grocerydomain.ErrPipelineDisabled))
}

func TestStatusReportsQuotaAndCache(t *testing.T) {
	gw := &stubGateway{fn: quoteAll(3.50)}
	env := setup(t, 100, true, gw)
	ctx := context.Background()

	_, err := env.svc.Resolve(ctx, "07102")
	require.NoError(t, err)

	status, err := env.svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.Equal(t, int64(100), status.QuotaCeiling)
	assert.Equal(t, int64(8), status.QuotaUsed)
	assert.Equal(t, int64(92), status.QuotaRemaining)
	require.NotNil(t, status.Cache)
	assert.Equal(t, int64(8), status.Cache.TotalRows)
	assert.Equal(t, int64(8), status.Cache.PricedRows)
	assert.Len(t, status.BasketItems, 8)
}

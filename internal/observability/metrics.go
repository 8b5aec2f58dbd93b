package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's prometheus collectors. Registered once on the
// default registry so the gin /metrics endpoint picks them up.
type Metrics struct {
	ProviderCalls *prometheus.CounterVec
	CacheHits     prometheus.Counter
	QuotaDenied   prometheus.Counter
	RefreshRuns   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grocery_provider_calls_total",
			Help: "External pricing lookups by outcome (priced, no_match, error).",
		}, []string{"outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grocery_cache_hits_total",
			Help: "Basket items served from the durable price cache.",
		}),
		QuotaDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grocery_quota_denied_total",
			Help: "Fetch batches denied by the monthly quota ledger.",
		}),
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grocery_refresh_regions_total",
			Help: "Regions handled by batch refresh, by status (processed, skipped, failed).",
		}, []string{"status"}),
	}
	prometheus.MustRegister(m.ProviderCalls, m.CacheHits, m.QuotaDenied, m.RefreshRuns)
	return m
}

// NewTestMetrics returns unregistered collectors for use in tests.
func NewTestMetrics() *Metrics {
	return &Metrics{
		ProviderCalls: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_provider_calls_total"}, []string{"outcome"}),
		CacheHits:     prometheus.NewCounter(prometheus.CounterOpts{Name: "test_cache_hits_total"}),
		QuotaDenied:   prometheus.NewCounter(prometheus.CounterOpts{Name: "test_quota_denied_total"}),
		RefreshRuns:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_refresh_regions_total"}, []string{"status"}),
	}
}

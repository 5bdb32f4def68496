package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the dataset service.
type Metrics struct {
	Builds      prometheus.Counter
	BuildErrors *prometheus.CounterVec
}

// NewMetrics registers the service metrics with reg. cacheStats, when
// non-nil, is sampled on scrape to report cumulative cache hits and misses.
func NewMetrics(reg prometheus.Registerer, cacheStats func() (hits, misses uint64)) *Metrics {
	m := &Metrics{
		Builds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wbdata_dataset_builds_total",
			Help: "Number of dataset build requests.",
		}),
		BuildErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wbdata_dataset_build_errors_total",
			Help: "Number of failed dataset builds by failure kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.Builds, m.BuildErrors)

	if cacheStats != nil {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "wbdata_cache_hits_total",
			Help: "Number of dataset cache hits.",
		}, func() float64 {
			hits, _ := cacheStats()
			return float64(hits)
		}))
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "wbdata_cache_misses_total",
			Help: "Number of dataset cache misses.",
		}, func() float64 {
			_, misses := cacheStats()
			return float64(misses)
		}))
	}

	return m
}

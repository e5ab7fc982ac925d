// Package metrics holds the prometheus collectors for catalog fetches and query
// resolution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "yieldscout"

type Collector struct {
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec
	PoolsKept     prometheus.Gauge
	Resolutions   *prometheus.CounterVec
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_duration_seconds",
			Help:      "Latency of pool catalog fetches from the yields aggregator.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_errors_total",
			Help:      "Failed catalog fetches by error type.",
		}, []string{"chain", "type"}),
		PoolsKept: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_pools_kept",
			Help:      "Pools kept after chain and activity filtering in the last fetch.",
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_resolutions_total",
			Help:      "Query resolutions by outcome kind and matcher stage.",
		}, []string{"kind", "stage"}),
	}
	if reg != nil {
		reg.MustRegister(c.FetchDuration, c.FetchErrors, c.PoolsKept, c.Resolutions)
	}
	return c
}

func (c *Collector) ObserveFetch(chain string, took time.Duration, kept int, errType string) {
	if c == nil {
		return
	}
	c.FetchDuration.WithLabelValues(chain).Observe(took.Seconds())
	if errType != "" {
		c.FetchErrors.WithLabelValues(chain, errType).Inc()
		return
	}
	c.PoolsKept.Set(float64(kept))
}

func (c *Collector) ObserveResolution(kind, stage string) {
	if c == nil {
		return
	}
	if stage == "" {
		stage = "none"
	}
	c.Resolutions.WithLabelValues(kind, stage).Inc()
}

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks cache hit/miss counts and current size.
type Metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	size   prometheus.Gauge
}

// NewMetrics creates and registers cache metrics labeled with the cache
// name (e.g. "dex", "stats") on the given registerer.
func NewMetrics(reg prometheus.Registerer, name string) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "sited_cache_hits_total",
			Help:        "Cache hits.",
			ConstLabels: prometheus.Labels{"cache": name},
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "sited_cache_misses_total",
			Help:        "Cache misses, including expired entries.",
			ConstLabels: prometheus.Labels{"cache": name},
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "sited_cache_entries",
			Help:        "Current number of cache entries.",
			ConstLabels: prometheus.Labels{"cache": name},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.size)
	}
	return m
}

// RecordHit increments the hit counter.
func (m *Metrics) RecordHit() { m.hits.Inc() }

// RecordMiss increments the miss counter.
func (m *Metrics) RecordMiss() { m.misses.Inc() }

// SetSize records the current entry count.
func (m *Metrics) SetSize(n int) { m.size.Set(float64(n)) }

// Package metrics exposes Prometheus collectors for the virtual file server.
// Collectors live on a private registry so tests and multiple app instances
// never collide on the global default registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dropview"

// Resolve outcomes.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Collector groups all dropview metrics.
type Collector struct {
	registry *prometheus.Registry

	resolveTotal    *prometheus.CounterVec
	syncTotal       *prometheus.CounterVec
	syncDuration    *prometheus.HistogramVec
	volatileEntries prometheus.Gauge
}

// New creates a Collector with its own registry, including Go runtime collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		resolveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Virtual file lookups by answering tier and outcome",
		}, []string{"tier", "outcome"}),
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Durable synchronization phases by command and result",
		}, []string{"command", "result"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of durable synchronization phases",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		volatileEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "volatile_entries",
			Help:      "Number of files held by the in-process tier",
		}),
	}

	reg.MustRegister(
		c.resolveTotal,
		c.syncTotal,
		c.syncDuration,
		c.volatileEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveResolve records one lookup. tier is empty for a full miss.
func (c *Collector) ObserveResolve(tier, outcome string) {
	if c == nil {
		return
	}
	if tier == "" {
		tier = "none"
	}
	c.resolveTotal.WithLabelValues(tier, outcome).Inc()
}

// ObserveSync records a finished durable phase.
func (c *Collector) ObserveSync(command string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.syncTotal.WithLabelValues(command, result).Inc()
	c.syncDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// SetVolatileEntries updates the in-process tier size gauge.
func (c *Collector) SetVolatileEntries(n int) {
	if c == nil {
		return
	}
	c.volatileEntries.Set(float64(n))
}

// Registry exposes the underlying registry (tests use it with testutil).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

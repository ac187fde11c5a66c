package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records remote cart synchronisation outcomes.
type CartMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	orphaned prometheus.Counter
}

// NewCartMetrics registers the cart sync metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_sync_duration_seconds",
		Help:    "Duration of remote cart operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_success_total",
		Help: "Remote cart operations that succeeded.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_sync_failure_total",
		Help: "Remote cart operations that failed.",
	}, []string{"op"})
	orphaned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_orphaned_items_total",
		Help: "Cart items dropped because their product is missing or unpriced.",
	})
	reg.MustRegister(duration, success, failure, orphaned)
	return &CartMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		orphaned: orphaned,
	}
}

// Observe records one remote operation with its outcome.
func (c *CartMetrics) Observe(op string, elapsed time.Duration, err error) {
	if c == nil || c.duration == nil {
		return
	}
	label := normalizeLabel(op)
	c.duration.WithLabelValues(label).Observe(elapsed.Seconds())
	if err != nil {
		c.failure.WithLabelValues(label).Inc()
		return
	}
	c.success.WithLabelValues(label).Inc()
}

// AddOrphaned counts invalid items filtered out of a load.
func (c *CartMetrics) AddOrphaned(n int) {
	if c == nil || c.orphaned == nil || n <= 0 {
		return
	}
	c.orphaned.Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

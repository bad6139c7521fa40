// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "pagesmith"

// Collector implements ports.Metrics on its own Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	BroadcastsTotal   prometheus.Counter
	BroadcastReach    prometheus.Histogram
	PolicyDenialTotal *prometheus.CounterVec
}

// NewCollector creates a Collector with a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "router",
			Name:      "requests_total",
			Help:      "Total number of router requests by type and result code",
		}, []string{"type", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "router",
			Name:      "request_duration_seconds",
			Help:      "Duration of router requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "broadcast",
			Name:      "messages_total",
			Help:      "Total number of reload broadcasts sent",
		}),
		BroadcastReach: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "broadcast",
			Name:      "delivered_contexts",
			Help:      "Number of page contexts that accepted each broadcast",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		PolicyDenialTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "security",
			Name:      "policy_denials_total",
			Help:      "Total number of plugins blocked by the security policy",
		}, []string{"operation"}),
	}

	reg.MustRegister(c.RequestsTotal, c.RequestDuration, c.BroadcastsTotal, c.BroadcastReach, c.PolicyDenialTotal)
	return c
}

// ObserveRequest records one handled router request.
func (c *Collector) ObserveRequest(requestType string, code string, elapsed time.Duration) {
	if code == "" {
		code = "OK"
	}
	c.RequestsTotal.WithLabelValues(requestType, code).Inc()
	c.RequestDuration.WithLabelValues(requestType).Observe(elapsed.Seconds())
}

// ObserveBroadcast records one broadcast.
func (c *Collector) ObserveBroadcast(delivered int) {
	c.BroadcastsTotal.Inc()
	c.BroadcastReach.Observe(float64(delivered))
}

// ObservePolicyDenial records a plugin blocked by the policy.
func (c *Collector) ObservePolicyDenial(operation string) {
	c.PolicyDenialTotal.WithLabelValues(operation).Inc()
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

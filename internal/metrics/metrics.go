// Package metrics records pipeline and scheduler telemetry. Sinks are
// fire-and-forget: callers never observe errors from them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "photowall"

// Event names passed to Sink.Count.
const (
	EventDelivered   = "delivered"
	EventMismatch    = "delivered_mismatch"
	EventStale       = "stale"
	EventFailed      = "failed"
	EventPlaceholder = "placeholder"
	EventPoolFull    = "pool_saturated"
	EventAdvanced    = "advanced"
	EventSourceError = "source_error"
	EventGuardBreach = "loader_guard_breach"
)

// Sink receives stage timings, event counts, and the in-flight run gauge.
type Sink interface {
	StageTiming(stage string, elapsed time.Duration)
	Count(event string)
	ActiveRuns(delta int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) StageTiming(string, time.Duration) {}
func (Nop) Count(string)                      {}
func (Nop) ActiveRuns(int)                    {}

// Prometheus records into a dedicated registry.
type Prometheus struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	events        *prometheus.CounterVec
	activeRuns    prometheus.Gauge
}

// NewPrometheus builds a sink backed by a fresh registry that also carries the
// Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Pipeline stage latency in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"stage"}, // resolve/load/orient/resize/display
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of engine and scheduler events",
			},
			[]string{"event"},
		),
		activeRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_runs",
				Help:      "Pipeline runs currently executing",
			},
		),
	}
}

func (p *Prometheus) StageTiming(stage string, elapsed time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (p *Prometheus) Count(event string) {
	p.events.WithLabelValues(event).Inc()
}

func (p *Prometheus) ActiveRuns(delta int) {
	p.activeRuns.Add(float64(delta))
}

// Registry exposes the underlying registry for tests and custom collectors.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

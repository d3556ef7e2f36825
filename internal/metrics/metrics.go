package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settlement outcomes used as the "outcome" label.
const (
	OutcomeDelivered   = "delivered"
	OutcomeValidation  = "validation_error"
	OutcomeNotFound    = "not_found"
	OutcomeConflict    = "conflict"
	OutcomePersistence = "persistence_error"
	OutcomeError       = "error"
)

// Event results used as the "result" label.
const (
	EventPublished = "published"
	EventFailed    = "failed"
	EventDropped   = "dropped"
)

// Metrics holds the delivery service collectors on a dedicated registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	settlements        *prometheus.CounterVec
	events             *prometheus.CounterVec
	settlementDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		settlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivery_settlements_total",
				Help: "Settlement attempts by outcome",
			},
			[]string{"outcome"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "delivery_events_total",
				Help: "OrderDelivered events by publish result",
			},
			[]string{"result"},
		),
		settlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "delivery_settlement_duration_seconds",
			Help:    "Duration of settlement attempts in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
	reg.MustRegister(
		m.settlements,
		m.events,
		m.settlementDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveSettlement counts one settlement attempt and records its duration.
func (m *Metrics) ObserveSettlement(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(outcome).Inc()
	m.settlementDuration.Observe(d.Seconds())
}

func (m *Metrics) EventResult(result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

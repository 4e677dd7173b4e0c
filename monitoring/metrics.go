// Package monitoring exposes Prometheus metrics and the live history feed.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pricecast"

// Prediction outcomes used as the "outcome" label.
const (
	OutcomeSaved        = "saved"
	OutcomeUnsaved      = "unsaved"
	OutcomeInvalidInput = "invalid_input"
	OutcomeModelError   = "model_error"
)

// Metrics holds the service's collectors on a private registry so tests can
// build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Predictions       *prometheus.CounterVec
	PredictionLatency prometheus.Histogram
	PersistenceErrors *prometheus.CounterVec
	HistorySize       prometheus.Gauge
	WSClients         prometheus.Gauge
}

// NewMetrics registers the service collectors plus the Go and process
// collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome",
		}, []string{"outcome"}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent in model inference",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
		PersistenceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Persistence failures by operation",
		}, []string{"op"}),
		HistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "history_rows",
			Help:      "Rows returned by the most recent history read",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected live history clients",
		}),
	}
}

// ObservePrediction records one request's outcome and inference time.
func (m *Metrics) ObservePrediction(outcome string, took time.Duration) {
	m.Predictions.WithLabelValues(outcome).Inc()
	if outcome != OutcomeInvalidInput {
		m.PredictionLatency.Observe(took.Seconds())
	}
}

// PersistenceFailed counts a store failure for op.
func (m *Metrics) PersistenceFailed(op string) {
	m.PersistenceErrors.WithLabelValues(op).Inc()
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

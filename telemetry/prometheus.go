// Package telemetry exports resolution metrics to Prometheus.
package telemetry

import (
	"encoding/json"
	"net/http"
	"time"

	pmagentspec "github.com/Azure/PMAgent-Spec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics records candidate attempts and engine operations.
type PrometheusMetrics struct {
	fetchAttempts     *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

var _ pmagentspec.Observer = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the collectors with registerer, or with the
// default registerer when nil.
func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		fetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmagent_spec_fetch_attempts_total",
				Help: "Candidate fetch attempts by resource class, tier and outcome",
			},
			[]string{"class", "tier", "outcome"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pmagent_spec_fetch_duration_seconds",
				Help:    "Duration of candidate fetch attempts in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"class", "tier"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pmagent_spec_operations_total",
				Help: "Engine operations by name and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pmagent_spec_operation_duration_seconds",
				Help:    "Duration of engine operations in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
	}
}

// ObserveFetch implements pmagentspec.Observer.
func (p *PrometheusMetrics) ObserveFetch(class pmagentspec.Class, tier pmagentspec.Tier, outcome pmagentspec.Outcome, d time.Duration) {
	p.fetchAttempts.WithLabelValues(class.String(), tier.String(), string(outcome)).Inc()
	p.fetchDuration.WithLabelValues(class.String(), tier.String()).Observe(d.Seconds())
}

// ObserveOperation records one engine operation. status is "ok" or an error
// kind such as "not_found".
func (p *PrometheusMetrics) ObserveOperation(operation, status string, d time.Duration) {
	p.operations.WithLabelValues(operation, status).Inc()
	p.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// HealthReport is the body served on /healthz.
type HealthReport struct {
	Status string `json:"status"`
}

// Handler serves /metrics from gatherer (the default gatherer when nil) and
// /healthz.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthReport{Status: "ok"})
	}))
	return mux
}

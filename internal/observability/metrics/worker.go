package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the NATS request/reply worker.
type WorkerMetrics struct {
	registry *prometheus.Registry
	pipeline *PipelineMetrics
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "requests_total",
			Help:      "Total NATS ask requests by subject and outcome.",
		},
		[]string{"service", "subject", "outcome"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "request_duration_seconds",
			Help:      "NATS ask request duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "subject", "outcome"},
	)

	registry.MustRegister(requestTotal, requestDuration)

	return &WorkerMetrics{
		registry:        registry,
		pipeline:        NewPipelineMetrics(registry, service),
		service:         service,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) Pipeline() *PipelineMetrics {
	return m.pipeline
}

func (m *WorkerMetrics) ObserveRequest(subject, outcome string, duration time.Duration) {
	m.requestTotal.WithLabelValues(m.service, subject, outcome).Inc()
	m.requestDuration.WithLabelValues(m.service, subject, outcome).Observe(duration.Seconds())
}

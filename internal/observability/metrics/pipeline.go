package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "groundedqa"

// PipelineMetrics records query pipeline behaviour. It satisfies
// ports.QueryObserver.
type PipelineMetrics struct {
	service string

	stageDuration     *prometheus.HistogramVec
	queriesTotal      *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	sources           *prometheus.HistogramVec
	verificationScore *prometheus.HistogramVec
	verificationSkips *prometheus.CounterVec
	rerankFallbacks   *prometheus.CounterVec
}

func NewPipelineMetrics(registry prometheus.Registerer, service string) *PipelineMetrics {
	m := &PipelineMetrics{
		service: service,
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each query pipeline stage in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"service", "stage"},
		),
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "queries_total",
				Help:      "Total answered questions by outcome.",
			},
			[]string{"service", "outcome"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "duration_seconds",
				Help:      "End-to-end query duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "outcome"},
		),
		sources: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "sources",
				Help:      "Distinct cited sources per successful answer.",
				Buckets:   []float64{0, 1, 2, 3, 4, 5, 8},
			},
			[]string{"service"},
		),
		verificationScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "verification",
				Name:      "score",
				Help:      "Entailment probability of answers given their context.",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
			[]string{"service"},
		),
		verificationSkips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "verification",
				Name:      "unavailable_total",
				Help:      "Answers returned without a verification score.",
			},
			[]string{"service"},
		),
		rerankFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rag",
				Name:      "rerank_fallback_total",
				Help:      "Queries that fell back to fused order because reranking failed.",
			},
			[]string{"service"},
		),
	}

	registry.MustRegister(
		m.stageDuration,
		m.queriesTotal,
		m.queryDuration,
		m.sources,
		m.verificationScore,
		m.verificationSkips,
		m.rerankFallbacks,
	)
	return m
}

func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveOutcome(kind string, sources int, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	m.queriesTotal.WithLabelValues(m.service, kind).Inc()
	m.queryDuration.WithLabelValues(m.service, kind).Observe(duration.Seconds())
	if kind == "ok" {
		m.sources.WithLabelValues(m.service).Observe(float64(sources))
	}
}

func (m *PipelineMetrics) ObserveVerification(score *float64) {
	if score == nil {
		m.verificationSkips.WithLabelValues(m.service).Inc()
		return
	}
	m.verificationScore.WithLabelValues(m.service).Observe(*score)
}

func (m *PipelineMetrics) ObserveRerankFallback() {
	m.rerankFallbacks.WithLabelValues(m.service).Inc()
}

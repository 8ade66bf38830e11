package question

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Attempt outcomes recorded by the pipeline.
const (
	outcomeInserted      = "inserted"
	outcomeDuplicate     = "duplicate"
	outcomeParseFailure  = "parse_failure"
	outcomeProviderError = "provider_error"
	outcomeStorageError  = "storage_error"
)

// Metrics exposes pipeline and producer counters.
type Metrics struct {
	attempts           *prometheus.CounterVec
	providerLatency    prometheus.Histogram
	topicsCreated      prometheus.Counter
	producerIterations *prometheus.CounterVec
}

// NewMetrics registers collectors on reg. A nil reg yields unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbank",
			Subsystem: "acquisition",
			Name:      "attempts_total",
			Help:      "Acquisition attempts by outcome.",
		}, []string{"outcome"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizbank",
			Subsystem: "acquisition",
			Name:      "provider_seconds",
			Help:      "Latency of provider generate calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		topicsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quizbank",
			Subsystem: "acquisition",
			Name:      "topics_created_total",
			Help:      "Topics registered lazily by the pipeline.",
		}),
		producerIterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizbank",
			Subsystem: "producer",
			Name:      "iterations_total",
			Help:      "Background producer iterations by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.providerLatency, m.topicsCreated, m.producerIterations)
	}
	return m
}

func (m *Metrics) attempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeProvider(seconds float64) {
	if m == nil {
		return
	}
	m.providerLatency.Observe(seconds)
}

func (m *Metrics) topicCreated() {
	if m == nil {
		return
	}
	m.topicsCreated.Inc()
}

func (m *Metrics) iteration(result string) {
	if m == nil {
		return
	}
	m.producerIterations.WithLabelValues(result).Inc()
}

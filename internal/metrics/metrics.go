// Package metrics exposes interview counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	interviewsStarted   *prometheus.CounterVec
	interviewsCompleted prometheus.Counter
	questionsAsked      prometheus.Counter
	analysesGenerated   prometheus.Counter
	apiCalls            *prometheus.CounterVec
	apiDuration         prometheus.Histogram
	sectionAdvances     *prometheus.CounterVec
	persistFailures     *prometheus.CounterVec
	staleWrites         prometheus.Counter
	analysisFallbacks   *prometheus.CounterVec
	activeSessions      prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		interviewsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Interviews started, by transport",
		}, []string{"transport"}),
		interviewsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_sessions_completed_total",
			Help: "Interviews that reached the ended phase",
		}),
		questionsAsked: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_questions_asked_total",
			Help: "Interviewer turns sent to candidates",
		}),
		analysesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_analyses_generated_total",
			Help: "Gradings produced, fallbacks included",
		}),
		apiCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_model_calls_total",
			Help: "Language model calls by status",
		}, []string{"status"}),
		apiDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_model_call_duration_seconds",
			Help:    "Duration of language model calls",
			Buckets: prometheus.DefBuckets,
		}),
		sectionAdvances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_section_advances_total",
			Help: "Section changes by trigger",
		}, []string{"trigger"}),
		persistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_persistence_failures_total",
			Help: "Failed writes of interview progress",
		}, []string{"op"}),
		staleWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_persistence_stale_writes_total",
			Help: "Writes rejected because a newer version was stored",
		}),
		analysisFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_analysis_fallbacks_total",
			Help: "Gradings replaced by the neutral fallback",
		}, []string{"reason"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "interview_active_sessions",
			Help: "Sessions held in memory",
		}),
	}
}

func (m *Metrics) IncrementInterviewsStarted(transport string) {
	m.interviewsStarted.WithLabelValues(transport).Inc()
}

func (m *Metrics) IncrementInterviewsCompleted() {
	m.interviewsCompleted.Inc()
}

func (m *Metrics) IncrementQuestionsAsked() {
	m.questionsAsked.Inc()
}

func (m *Metrics) IncrementAnalysesGenerated() {
	m.analysesGenerated.Inc()
}

// ObserveAPICall records one model call.
func (m *Metrics) ObserveAPICall(success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.apiCalls.WithLabelValues(status).Inc()
	m.apiDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrementSectionAdvance(trigger string) {
	m.sectionAdvances.WithLabelValues(trigger).Inc()
}

func (m *Metrics) IncrementPersistenceFailure(op string) {
	m.persistFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) IncrementStaleWrite() {
	m.staleWrites.Inc()
}

func (m *Metrics) IncrementAnalysisFallback(reason string) {
	m.analysisFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

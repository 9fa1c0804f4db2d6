package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "calendar_helper"

// Metrics groups the collectors of the service. A nil *Metrics records nothing.
type Metrics struct {
	llmRequests      *prometheus.CounterVec
	llmDuration      *prometheus.HistogramVec
	pipelineRequests *prometheus.CounterVec
	pipelineEvents   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Number of completion requests by prompt program and status",
		}, []string{"program", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Time spent waiting for the completion service",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"program"}),
		pipelineRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_requests_total",
			Help:      "Number of pipeline calls by entry point and result",
		}, []string{"entry", "result"}),
		pipelineEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_events_total",
			Help:      "Number of events returned by the pipeline",
		}, []string{"entry"}),
	}
	if reg != nil {
		reg.MustRegister(m.llmRequests, m.llmDuration, m.pipelineRequests, m.pipelineEvents)
	}
	return m
}

func (m *Metrics) ObserveLLM(program string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmRequests.WithLabelValues(program, status).Inc()
	m.llmDuration.WithLabelValues(program).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObservePipeline(entry, result string, events int) {
	if m == nil {
		return
	}
	m.pipelineRequests.WithLabelValues(entry, result).Inc()
	if events > 0 {
		m.pipelineEvents.WithLabelValues(entry).Add(float64(events))
	}
}

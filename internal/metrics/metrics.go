// Package metrics exposes Prometheus collectors for the wizard, the LLM
// clients and the worker pool.
package metrics

import (
	"net/http"
	"time"

	"github.com/alexanderramin/sitepilot/internal/llm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	stepsCompleted *prometheus.CounterVec
	stepFailures   *prometheus.CounterVec
	dispatches     *prometheus.CounterVec
	updates        *prometheus.CounterVec
	updatePanics   prometheus.Counter

	llmCalls   *prometheus.CounterVec
	llmLatency *prometheus.HistogramVec

	tasksInFlight prometheus.Gauge
	taskDuration  prometheus.Histogram
	tasksRejected prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitepilot_steps_completed_total",
			Help: "Wizard steps marked complete, by step flag and completion path.",
		}, []string{"step", "path"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitepilot_step_failures_total",
			Help: "Step handler failures that left the flag unset.",
		}, []string{"step"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitepilot_dispatches_total",
			Help: "Dispatcher resolutions by target.",
		}, []string{"target"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitepilot_updates_total",
			Help: "Inbound chat updates by kind.",
		}, []string{"kind"}),
		updatePanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitepilot_update_panics_total",
			Help: "Updates whose handling panicked.",
		}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitepilot_llm_calls_total",
			Help: "Generative backend calls by task and status.",
		}, []string{"task", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sitepilot_llm_call_duration_seconds",
			Help:    "Generative backend call latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"task"}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sitepilot_worker_tasks_in_flight",
			Help: "Background tasks currently running.",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sitepilot_worker_task_duration_seconds",
			Help:    "Background task duration.",
			Buckets: prometheus.DefBuckets,
		}),
		tasksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitepilot_worker_tasks_rejected_total",
			Help: "Tasks refused because the project already had one running.",
		}),
	}
	m.registry.MustRegister(
		m.stepsCompleted, m.stepFailures, m.dispatches, m.updates, m.updatePanics,
		m.llmCalls, m.llmLatency,
		m.tasksInFlight, m.taskDuration, m.tasksRejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Wizard events.

func (m *Metrics) StepCompleted(step, path string) {
	m.stepsCompleted.WithLabelValues(step, path).Inc()
}

func (m *Metrics) StepFailed(step string) {
	m.stepFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) Dispatched(target string) {
	m.dispatches.WithLabelValues(target).Inc()
}

func (m *Metrics) UpdateHandled(kind string) {
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) UpdatePanicked() {
	m.updatePanics.Inc()
}

// OnCallComplete implements llm.Observer.
func (m *Metrics) OnCallComplete(e llm.LLMCallEvent) {
	status := "ok"
	if !e.Success {
		status = e.ErrorCode
		if status == "" {
			status = "error"
		}
	}
	m.llmCalls.WithLabelValues(string(e.Task), status).Inc()
	m.llmLatency.WithLabelValues(string(e.Task)).Observe(float64(e.LatencyMs) / 1000)
}

// Worker events; Metrics implements worker.Observer.

func (m *Metrics) TaskStarted(string) {
	m.tasksInFlight.Inc()
}

func (m *Metrics) TaskFinished(_ string, elapsed time.Duration, _ bool) {
	m.tasksInFlight.Dec()
	m.taskDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) TaskRejected(string) {
	m.tasksRejected.Inc()
}

var _ llm.Observer = (*Metrics)(nil)

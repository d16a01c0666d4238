package observability

import (
	"context"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flowengine"

// Metrics holds the engine collectors.
type Metrics struct {
	runs         *prometheus.CounterVec
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	iterations   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs by outcome",
			},
			[]string{"outcome"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of visited nodes by handler and status",
			},
			[]string{"handler", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of handler executions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"handler"},
		),
		iterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_iterations",
				Help:      "Iterations consumed per run",
				Buckets:   prometheus.LinearBuckets(1, 5, 10),
			},
		),
	}
	reg.MustRegister(m.runs, m.steps, m.stepDuration, m.iterations)
	return m
}

// Outcome labels for runs_total.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeExhausted = "exhausted"
)

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			handler := e.Handler
			if handler == "" {
				handler = "none"
			}
			m.steps.WithLabelValues(handler, string(e.Status)).Inc()
			if e.Status != domain.StatusSkipped {
				m.stepDuration.WithLabelValues(handler).Observe(e.Duration.Seconds())
			}
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			outcome := OutcomeCompleted
			switch {
			case e.Failed:
				outcome = OutcomeFailed
			case e.Exhausted:
				outcome = OutcomeExhausted
			}
			m.runs.WithLabelValues(outcome).Inc()
			m.iterations.Observe(float64(e.Iterations))
		},
	}
}

// RegisterPoolGauge exposes the number of handlers currently executing.
func RegisterPoolGauge(reg prometheus.Registerer, active func() float64) {
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_handlers",
			Help:      "Handlers currently executing on the dispatcher pool",
		},
		active,
	))
}

// Package metrics counts engine transitions for Prometheus.
package metrics

import (
	"net/http"

	"pmflow/app/workflow"
	"pmflow/pkg/contextx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pmflow"

// Recorder is a workflow.Listener that keeps its counters on a private
// registry, so several engines (and tests) never collide.
type Recorder struct {
	registry *prometheus.Registry

	transitions *prometheus.CounterVec
	requests    *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	failures    prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "State transitions emitted by the engine, by kind.",
			},
			[]string{"kind"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Process requests reaching a status, by status.",
			},
			[]string{"status"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_created_total",
				Help:      "Tokens created, by element type.",
			},
			[]string{"element_type"},
		),
		failures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "script_failures_total",
				Help:      "Script and service task actions that failed.",
			},
		),
	}
	r.registry.MustRegister(r.transitions, r.requests, r.tokens, r.failures)
	r.registry.MustRegister(collectors.NewGoCollector())
	return r
}

func (r *Recorder) OnTransition(_ *contextx.Context, t workflow.Transition) {
	r.transitions.WithLabelValues(t.Kind).Inc()
	switch t.Kind {
	case workflow.RequestStarted, workflow.RequestCompleted, workflow.RequestCanceled, workflow.RequestFailed:
		r.requests.WithLabelValues(t.To).Inc()
	case workflow.TokenCreated:
		r.tokens.WithLabelValues(t.ElementType).Inc()
	case workflow.TokenFailed:
		r.failures.Inc()
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

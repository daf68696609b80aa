// Package metrics exports focus arbitration metrics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osa030/focusbox/internal/domain/focus"
)

const namespace = "focusbox"

// Observer records focus requests and signals. It satisfies the arbiter's Observer.
type Observer struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	signals    *prometheus.CounterVec
	authorized prometheus.Gauge
	delayed    prometheus.Gauge
	resume     prometheus.Gauge
}

// NewObserver creates an observer with its own registry.
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "focus_requests_total",
			Help:      "Focus requests by outcome.",
		}, []string{"result"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "focus_signals_total",
			Help:      "Focus change signals handled by the arbiter.",
		}, []string{"signal"}),
		authorized: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_authorized",
			Help:      "1 while the bridge holds audio focus.",
		}),
		delayed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "playback_delayed",
			Help:      "1 while a focus request waits for a delayed grant.",
		}),
		resume: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resume_on_focus_gain",
			Help:      "1 while playback waits to resume after a transient loss.",
		}),
	}
	o.registry.MustRegister(
		o.requests, o.signals, o.authorized, o.delayed, o.resume,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

// FocusRequested counts a request outcome.
func (o *Observer) FocusRequested(result focus.RequestResult, state focus.State) {
	o.requests.WithLabelValues(result.String()).Inc()
	o.setState(state)
}

// FocusChanged counts a handled signal.
func (o *Observer) FocusChanged(signal focus.Signal, state focus.State) {
	o.signals.WithLabelValues(signal.String()).Inc()
	o.setState(state)
}

func (o *Observer) setState(state focus.State) {
	o.authorized.Set(flag(state.PlaybackAuthorized))
	o.delayed.Set(flag(state.PlaybackDelayed))
	o.resume.Set(flag(state.ResumeOnFocusGain))
}

// Registry returns the registry holding the focus metrics.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

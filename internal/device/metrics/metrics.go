// Package metrics exposes the engine's Prometheus instruments on a private
// registry. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finn"

// Trigger outcomes.
const (
	TriggerOnline   = "online"
	TriggerQueued   = "queued"
	TriggerRejected = "rejected"
)

type Metrics struct {
	registry *prometheus.Registry

	pairingPolls prometheus.Counter
	triggers     *prometheus.CounterVec
	resubmits    *prometheus.CounterVec
	queueDepth   prometheus.Gauge
	online       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pairingPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairing_polls_total",
			Help:      "Pairing status polls sent to CORE.",
		}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_triggers_total",
			Help:      "Action triggers by outcome.",
		}, []string{"outcome"}),
		resubmits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offline_resubmits_total",
			Help:      "Offline queue resubmissions by result.",
		}, []string{"result"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offline_queue_depth",
			Help:      "Trigger records waiting in the offline queue.",
		}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_online",
			Help:      "1 when CORE is reachable.",
		}),
	}

	m.registry.MustRegister(
		m.pairingPolls, m.triggers, m.resubmits, m.queueDepth, m.online,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePoll() {
	if m == nil {
		return
	}
	m.pairingPolls.Inc()
}

func (m *Metrics) ObserveTrigger(outcome string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveResubmits(succeeded, failed int) {
	if m == nil {
		return
	}
	m.resubmits.WithLabelValues("succeeded").Add(float64(succeeded))
	m.resubmits.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) SetOnline(v bool) {
	if m == nil {
		return
	}
	if v {
		m.online.Set(1)
	} else {
		m.online.Set(0)
	}
}

// Package metrics exposes console activity as Prometheus metrics.
package metrics

import (
	"github.com/dennisdiepolder/monti/console/internal/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "console"

// Recorder turns console events into metrics. It is an events.Notifier.
type Recorder struct {
	callsStarted        *prometheus.CounterVec
	callsEnded          *prometheus.CounterVec
	callsMissed         prometheus.Counter
	callsRejected       prometheus.Counter
	callsTransferred    prometheus.Counter
	callsParked         prometheus.Counter
	callDuration        prometheus.Histogram
	holdDuration        prometheus.Histogram
	ringDuration        prometheus.Histogram
	wrapUpsCompleted    *prometheus.CounterVec
	dispositionRequired prometheus.Counter
	presenceChanges     *prometheus.CounterVec
	wsClients           prometheus.Gauge
}

// NewRecorder registers the console metrics with reg
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	callBuckets := []float64{15, 30, 60, 120, 300, 600, 1200, 1800}

	return &Recorder{
		callsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_started_total",
			Help:      "Call sessions started, by direction.",
		}, []string{"direction"}),
		callsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_ended_total",
			Help:      "Call sessions ended, by end reason.",
		}, []string{"reason"}),
		callsMissed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_missed_total",
			Help:      "Incoming calls that rang out unanswered.",
		}),
		callsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_rejected_total",
			Help:      "Incoming calls rejected by the agent.",
		}),
		callsTransferred: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_transferred_total",
			Help:      "Calls handed off to another destination.",
		}),
		callsParked: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_parked_total",
			Help:      "Calls parked on a slot.",
		}),
		callDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Talk time of completed call sessions.",
			Buckets:   callBuckets,
		}),
		holdDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_hold_seconds",
			Help:      "Accumulated hold time of completed call sessions.",
			Buckets:   []float64{0, 10, 30, 60, 120, 300, 600},
		}),
		ringDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ring_seconds",
			Help:      "How long incoming calls rang before they were answered.",
			Buckets:   []float64{1, 2, 5, 10, 15, 20, 30},
		}),
		wrapUpsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wrapups_completed_total",
			Help:      "Completed wrap-ups, by disposition.",
		}, []string{"disposition"}),
		dispositionRequired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disposition_required_total",
			Help:      "Attempts to leave wrap-up without a disposition.",
		}),
		presenceChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_changes_total",
			Help:      "Presence transitions, by target status.",
		}, []string{"status"}),
		wsClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected event stream clients.",
		}),
	}
}

// Notify records ev
func (r *Recorder) Notify(ev types.Event) {
	switch ev.Type {
	case types.EventCallStarted:
		if ev.Session != nil {
			r.callsStarted.WithLabelValues(string(ev.Session.Direction)).Inc()
		}
	case types.EventCallAnswered:
		r.ringDuration.Observe(float64(ev.RingSeconds))
	case types.EventCallEnded:
		r.callsEnded.WithLabelValues(string(ev.EndReason)).Inc()
		if ev.Session != nil {
			r.callDuration.Observe(float64(ev.Session.DurationSeconds))
			r.holdDuration.Observe(float64(ev.Session.HoldSeconds))
		}
	case types.EventCallMissed:
		r.callsMissed.Inc()
	case types.EventCallRejected:
		r.callsRejected.Inc()
	case types.EventCallTransferred:
		r.callsTransferred.Inc()
	case types.EventCallParked:
		r.callsParked.Inc()
	case types.EventWrapUpCompleted:
		if ev.Disposition != nil {
			r.wrapUpsCompleted.WithLabelValues(ev.Disposition.Value).Inc()
		}
	case types.EventDispositionRequired:
		r.dispositionRequired.Inc()
	case types.EventPresenceChanged:
		r.presenceChanges.WithLabelValues(string(ev.Status)).Inc()
	}
}

// SetWebSocketClients records the number of connected stream clients
func (r *Recorder) SetWebSocketClients(n int) {
	r.wsClients.Set(float64(n))
}

// StatusSource reports how many agents are in each presence status
type StatusSource interface {
	StatusCounts() map[types.PresenceStatus]int
}

// StatusCollector reads agent presence at scrape time
type StatusCollector struct {
	source StatusSource
	desc   *prometheus.Desc
}

// NewStatusCollector creates a collector over source. Register it with a prometheus.Registerer.
func NewStatusCollector(source StatusSource) *StatusCollector {
	return &StatusCollector{
		source: source,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "agents"),
			"Agents with an open console, by presence status.",
			[]string{"status"}, nil,
		),
	}
}

func (c *StatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *StatusCollector) Collect(ch chan<- prometheus.Metric) {
	counts := c.source.StatusCounts()
	for _, status := range types.AllStatuses {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(counts[status]), string(status))
	}
}

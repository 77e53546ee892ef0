// Package metrics exposes Prometheus metrics for transfers and the task
// pool, and serves them over HTTP.
//
// All recording methods are nil-safe: a nil *Metrics records nothing, so
// callers can pass nil when metrics are disabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/dittoio/pkg/transfer"
)

const namespace = "dittoio"

// Label names.
const (
	LabelDirection = "direction"
	LabelStatus    = "status"
	LabelHandler   = "handler"
)

// Metrics records transfer lifecycle metrics. It implements
// transfer.Observer; subscribe it to the Tracker.
type Metrics struct {
	created  *prometheus.CounterVec
	finished *prometheus.CounterVec
	open     *prometheus.GaugeVec
	duration *prometheus.HistogramVec
}

var _ transfer.Observer = (*Metrics)(nil)

// NewMetrics creates the transfer metrics and registers them with registry
// when it is non-nil.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transfers",
				Name:      "created_total",
				Help:      "Transfer records created, by direction",
			},
			[]string{LabelDirection},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "transfers",
				Name:      "finished_total",
				Help:      "Transfers that reached a terminal status",
			},
			[]string{LabelDirection, LabelStatus, LabelHandler},
		),
		open: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "transfers",
				Name:      "open",
				Help:      "Transfer records not yet in a terminal status",
			},
			[]string{LabelDirection},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "transfers",
				Name:      "duration_milliseconds",
				Help:      "Time spent in the handler per transfer",
				Buckets: []float64{
					10,     // 10ms - local copies
					100,    // 100ms
					500,    // 500ms - small objects
					1000,   // 1s
					5000,   // 5s - medium objects
					30000,  // 30s
					120000, // 2m - large datasets
					600000, // 10m
				},
			},
			[]string{LabelDirection, LabelStatus},
		),
	}

	if registry != nil {
		registry.MustRegister(m.created, m.finished, m.open, m.duration)
	}
	return m
}

// OnStatusChanged implements transfer.Observer.
func (m *Metrics) OnStatusChanged(rec transfer.Record) {
	if m == nil {
		return
	}
	dir := rec.Direction.String()

	switch {
	case rec.Status == transfer.Unspecified:
		m.created.WithLabelValues(dir).Inc()
		m.open.WithLabelValues(dir).Inc()
	case rec.Status.IsTerminal():
		status := rec.Status.String()
		m.finished.WithLabelValues(dir, status, rec.HandlerName).Inc()
		m.open.WithLabelValues(dir).Dec()
		if rec.StartedAt != nil {
			m.duration.WithLabelValues(dir, status).Observe(float64(rec.Duration().Milliseconds()))
		}
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/dittoio/pkg/scheduler"
)

var (
	descPoolPending = prometheus.NewDesc(
		"dittoio_pool_pending_tasks",
		"Tasks accepted by the pool and waiting for a worker",
		[]string{"priority"}, nil,
	)
	descPoolRunning = prometheus.NewDesc(
		"dittoio_pool_running_tasks",
		"Tasks currently running",
		nil, nil,
	)
	descPoolWorkers = prometheus.NewDesc(
		"dittoio_pool_workers",
		"Configured worker count",
		nil, nil,
	)
	descPoolCompleted = prometheus.NewDesc(
		"dittoio_pool_completed_tasks_total",
		"Tasks that returned normally",
		nil, nil,
	)
	descPoolPanicked = prometheus.NewDesc(
		"dittoio_pool_panicked_tasks_total",
		"Tasks that panicked",
		nil, nil,
	)
	descPoolRejected = prometheus.NewDesc(
		"dittoio_pool_rejected_tasks_total",
		"Submissions refused because a queue was full or the pool stopped",
		nil, nil,
	)
)

// PoolSource is what the pool collector reads.
type PoolSource interface {
	Stats() scheduler.Stats
	Workers() int
}

type poolCollector struct {
	pool PoolSource
}

var _ prometheus.Collector = &poolCollector{}

// NewPoolCollector returns a collector that reads pool statistics at
// scrape time.
func NewPoolCollector(pool PoolSource) prometheus.Collector {
	return &poolCollector{pool: pool}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descPoolPending
	ch <- descPoolRunning
	ch <- descPoolWorkers
	ch <- descPoolCompleted
	ch <- descPoolPanicked
	ch <- descPoolRejected
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.pool.Stats()
	ch <- prometheus.MustNewConstMetric(descPoolPending, prometheus.GaugeValue, float64(st.PendingHigh), scheduler.PriorityHigh.String())
	ch <- prometheus.MustNewConstMetric(descPoolPending, prometheus.GaugeValue, float64(st.PendingNormal), scheduler.PriorityNormal.String())
	ch <- prometheus.MustNewConstMetric(descPoolRunning, prometheus.GaugeValue, float64(st.Running))
	ch <- prometheus.MustNewConstMetric(descPoolWorkers, prometheus.GaugeValue, float64(c.pool.Workers()))
	ch <- prometheus.MustNewConstMetric(descPoolCompleted, prometheus.CounterValue, float64(st.Completed))
	ch <- prometheus.MustNewConstMetric(descPoolPanicked, prometheus.CounterValue, float64(st.Panicked))
	ch <- prometheus.MustNewConstMetric(descPoolRejected, prometheus.CounterValue, float64(st.Rejected))
}

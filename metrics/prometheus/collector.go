// Package prometheus exposes a Controller's counters snapshot as a
// Prometheus collector, so a process embedding the admission controller
// can register it alongside its other metrics without the core package
// taking a dependency on any particular exposition format.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nulone/mcp-backpressure/counters"
)

// SnapshotFunc returns the current counters snapshot of a controller. It
// is satisfied by (*backpressure.Controller).Snapshot.
type SnapshotFunc func() counters.Snapshot

// Collector adapts a SnapshotFunc into a prometheus.Collector. It is
// stateless between scrapes: every Collect call re-reads the snapshot.
type Collector struct {
	snapshot SnapshotFunc

	active           *prometheus.Desc
	queued           *prometheus.Desc
	rejectedTotal    *prometheus.Desc
	rejectedByReason *prometheus.Desc
}

// NewCollector creates a Collector under namespace, reading from snapshot
// on every Collect.
func NewCollector(namespace string, snapshot SnapshotFunc) *Collector {
	return &Collector{
		snapshot: snapshot,
		active: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "active"),
			"Number of requests currently executing.",
			nil, nil,
		),
		queued: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "queued"),
			"Number of requests currently parked in the wait queue.",
			nil, nil,
		),
		rejectedTotal: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rejected_total"),
			"Cumulative number of rejected admission attempts.",
			nil, nil,
		),
		rejectedByReason: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rejected_by_reason_total"),
			"Cumulative number of rejected admission attempts, by reason.",
			[]string{"reason"}, nil,
		),
	}
}

// MustRegister registers c with the default Prometheus registry and
// panics if registration fails.
func (c *Collector) MustRegister() {
	prometheus.MustRegister(c)
}

// Unregister removes c from the default Prometheus registry.
func (c *Collector) Unregister() {
	prometheus.Unregister(c)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.queued
	ch <- c.rejectedTotal
	ch <- c.rejectedByReason
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()

	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(snap.Active))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(snap.Queued))
	ch <- prometheus.MustNewConstMetric(c.rejectedTotal, prometheus.CounterValue, float64(snap.RejectedTotal))

	ch <- prometheus.MustNewConstMetric(c.rejectedByReason, prometheus.CounterValue,
		float64(snap.RejectedConcurrencyLimit), string(counters.ReasonConcurrencyLimit))
	ch <- prometheus.MustNewConstMetric(c.rejectedByReason, prometheus.CounterValue,
		float64(snap.RejectedQueueFull), string(counters.ReasonQueueFull))
	ch <- prometheus.MustNewConstMetric(c.rejectedByReason, prometheus.CounterValue,
		float64(snap.RejectedQueueTimeout), string(counters.ReasonQueueTimeout))
}

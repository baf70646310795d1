// Package promstats exports reactive.System counters as Prometheus metrics.
package promstats

import (
	"github.com/delaneyj/watchparty/reactive"
	"github.com/prometheus/client_golang/prometheus"
)

// Source returns a stats snapshot. Collect runs on the scrape goroutine, so a
// System confined to an event loop should be read through the loop.
type Source func() reactive.Stats

type Collector struct {
	source Source

	watchers      *prometheus.Desc
	flushes       *prometheus.Desc
	runs          *prometheus.Desc
	runaways      *prometheus.Desc
	notifications *prometheus.Desc
	errors        *prometheus.Desc
	warnings      *prometheus.Desc
	queued        *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func New(namespace string, labels prometheus.Labels, source Source) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "reactive", name), help, nil, labels)
	}
	return &Collector{
		source:        source,
		watchers:      desc("watchers_created_total", "Watchers created."),
		flushes:       desc("flushes_total", "Scheduler flushes."),
		runs:          desc("watcher_runs_total", "Watcher re-evaluations."),
		runaways:      desc("runaways_total", "Watchers halted for re-triggering themselves within one flush."),
		notifications: desc("notifications_total", "Dep notifications."),
		errors:        desc("errors_total", "Errors handed to the error handler."),
		warnings:      desc("warnings_total", "Warnings handed to the warn handler."),
		queued:        desc("queued_watchers", "Watchers waiting for the next flush."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.watchers
	ch <- c.flushes
	ch <- c.runs
	ch <- c.runaways
	ch <- c.notifications
	ch <- c.errors
	ch <- c.warnings
	ch <- c.queued
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.source()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.watchers, st.Watchers)
	counter(c.flushes, st.Flushes)
	counter(c.runs, st.Runs)
	counter(c.runaways, st.Runaways)
	counter(c.notifications, st.Notifications)
	counter(c.errors, st.Errors)
	counter(c.warnings, st.Warnings)
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(st.Queued))
}

package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HostCollector exports the per-host tables as Prometheus counters. Values are
// read from a fresh snapshot on every scrape.
type HostCollector struct {
	source Snapshotter

	messages *prometheus.Desc
	bytes    *prometheus.Desc
	methods  *prometheus.Desc
	statuses *prometheus.Desc
}

func NewHostCollector(source Snapshotter) *HostCollector {
	return &HostCollector{
		source: source,
		messages: prometheus.NewDesc(
			"httpspectra_host_messages_total",
			"HTTP messages per host and direction",
			[]string{"host", "direction"},
			nil,
		),
		bytes: prometheus.NewDesc(
			"httpspectra_host_bytes_total",
			"HTTP payload bytes per host and direction",
			[]string{"host", "direction"},
			nil,
		),
		methods: prometheus.NewDesc(
			"httpspectra_requests_by_method_total",
			"HTTP requests per method",
			[]string{"method"},
			nil,
		),
		statuses: prometheus.NewDesc(
			"httpspectra_responses_by_status_total",
			"HTTP responses per status line",
			[]string{"status"},
			nil,
		),
	}
}

func (c *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.messages
	ch <- c.bytes
	ch <- c.methods
	ch <- c.statuses
}

func (c *HostCollector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.source.Snapshot()

	for _, h := range snapshot.HostList() {
		ch <- prometheus.MustNewConstMetric(c.messages, prometheus.CounterValue, float64(h.OutMessages), h.Host, "out")
		ch <- prometheus.MustNewConstMetric(c.messages, prometheus.CounterValue, float64(h.InMessages), h.Host, "in")
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(h.OutBytes), h.Host, "out")
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.CounterValue, float64(h.InBytes), h.Host, "in")
	}
	for method, n := range snapshot.Methods {
		ch <- prometheus.MustNewConstMetric(c.methods, prometheus.CounterValue, float64(n), method)
	}
	for status, n := range snapshot.StatusCodes {
		ch <- prometheus.MustNewConstMetric(c.statuses, prometheus.CounterValue, float64(n), status)
	}
}

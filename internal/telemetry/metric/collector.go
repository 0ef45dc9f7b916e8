package metric

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CountFunc returns the number of stored entries.
type CountFunc func(ctx context.Context) (int, error)

// EntriesCollector reports the stored entry count at scrape time.
//
// A failed count is reported through the up gauge rather than failing the
// whole scrape.
type EntriesCollector struct {
	count   CountFunc
	timeout time.Duration

	entriesDesc *prometheus.Desc
	upDesc      *prometheus.Desc
}

// NewEntriesCollector creates a collector around count.
func NewEntriesCollector(count CountFunc) *EntriesCollector {
	return &EntriesCollector{
		count:   count,
		timeout: 5 * time.Second,
		entriesDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "entries"),
			"Number of stored entries.",
			nil, nil,
		),
		upDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "up"),
			"Whether the last entry count succeeded (1) or failed (0).",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *EntriesCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entriesDesc
	ch <- c.upDesc
}

// Collect implements prometheus.Collector.
func (c *EntriesCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	n, err := c.count(ctx)
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.upDesc, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.entriesDesc, prometheus.GaugeValue, float64(n))
}

// RegisterEntries registers an EntriesCollector on the registry.
func (r *Registry) RegisterEntries(count CountFunc) {
	r.reg.MustRegister(NewEntriesCollector(count))
}

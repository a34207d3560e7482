// Package rhmetrics exports a rhmap.Map's internal shape and resize
// activity as Prometheus metrics, the way aristanetworks-goarista's
// cmd/ocprometheus turns collected state into a prometheus.Collector.
package rhmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gocrmap/rhmap"
)

// StatsSource is satisfied by *rhmap.Map[K, V] for any K, V.
type StatsSource interface {
	Stats() rhmap.Stats
}

// Collector adapts a StatsSource into a prometheus.Collector and a
// rhmap.ResizeObserver. Register it with prometheus.MustRegister and pass it
// as rhmap.WithObserver(collector) when constructing the map it watches.
//
// Because a Map must be constructed with its observer already in hand
// (rhmap.WithObserver is a New-time option) while the Collector needs the
// finished Map as its StatsSource, construction is necessarily two-phase:
// build the Collector, build the Map with WithObserver(collector), then call
// Bind so Collect has somewhere to read from.
type Collector struct {
	mu     sync.RWMutex
	source StatsSource

	primarySize      *prometheus.Desc
	secondarySize    *prometheus.Desc
	primaryBuckets   *prometheus.Desc
	secondaryBuckets *prometheus.Desc
	largestBucket    *prometheus.Desc
	resizing         *prometheus.Desc

	resizeTotal    prometheus.Counter
	resizeDuration prometheus.Histogram
}

// NewCollector returns a Collector reading from source, with the given
// constant labels attached to every metric it exports.
func NewCollector(source StatsSource, labels prometheus.Labels) *Collector {
	return &Collector{
		source: source,
		primarySize: prometheus.NewDesc(
			"rhmap_primary_size", "Number of entries in the primary table.", nil, labels),
		secondarySize: prometheus.NewDesc(
			"rhmap_secondary_size", "Number of entries in the secondary table.", nil, labels),
		primaryBuckets: prometheus.NewDesc(
			"rhmap_primary_buckets", "Number of buckets in the primary table.", nil, labels),
		secondaryBuckets: prometheus.NewDesc(
			"rhmap_secondary_buckets", "Number of buckets in the secondary table.", nil, labels),
		largestBucket: prometheus.NewDesc(
			"rhmap_largest_bucket", "Size of the largest bucket across both tables.", nil, labels),
		resizing: prometheus.NewDesc(
			"rhmap_resizing", "1 if a resize episode is currently in progress, 0 otherwise.", nil, labels),
		resizeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rhmap_resize_total",
			Help:        "Total number of completed resize episodes.",
			ConstLabels: labels,
		}),
		resizeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "rhmap_resize_duration_seconds",
			Help:        "Wall-clock duration of completed resize episodes.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.primarySize
	ch <- c.secondarySize
	ch <- c.primaryBuckets
	ch <- c.secondaryBuckets
	ch <- c.largestBucket
	ch <- c.resizing
	c.resizeTotal.Describe(ch)
	c.resizeDuration.Describe(ch)
}

// Bind attaches (or replaces) the StatsSource Collect reads from. Safe to
// call concurrently with Collect.
func (c *Collector) Bind(source StatsSource) {
	c.mu.Lock()
	c.source = source
	c.mu.Unlock()
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	source := c.source
	c.mu.RUnlock()
	if source == nil {
		return
	}
	st := source.Stats()

	ch <- prometheus.MustNewConstMetric(c.primarySize, prometheus.GaugeValue, float64(st.PrimarySize))
	ch <- prometheus.MustNewConstMetric(c.secondarySize, prometheus.GaugeValue, float64(st.SecondarySize))
	ch <- prometheus.MustNewConstMetric(c.primaryBuckets, prometheus.GaugeValue, float64(st.PrimaryBuckets))
	ch <- prometheus.MustNewConstMetric(c.secondaryBuckets, prometheus.GaugeValue, float64(st.SecondaryBuckets))
	ch <- prometheus.MustNewConstMetric(c.largestBucket, prometheus.GaugeValue, float64(st.LargestBucket))

	resizing := 0.0
	if st.Resizing {
		resizing = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.resizing, prometheus.GaugeValue, resizing)

	c.resizeTotal.Collect(ch)
	c.resizeDuration.Collect(ch)
}

// ObserveResizeBegin implements rhmap.ResizeObserver. It is a no-op: the
// gauges above already reflect bucket counts mid-resize via Collect.
func (c *Collector) ObserveResizeBegin(primaryBuckets, secondaryBuckets uint64) {}

// ObserveResizeDone implements rhmap.ResizeObserver, recording the
// completed episode's duration and bumping the resize counter.
func (c *Collector) ObserveResizeDone(d time.Duration) {
	c.resizeTotal.Inc()
	c.resizeDuration.Observe(d.Seconds())
}

// Package promstats exposes accessor counters as Prometheus metrics.
// The snapshot is taken at scrape time, so registering a Collector adds no
// work to the accessor's hot path.
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veiloq/cascade"
)

type Collector struct {
	stats func() cascade.StatsSnapshot

	cacheHits  *prometheus.Desc
	fileHits   *prometheus.Desc
	sourceHits *prometheus.Desc
	misses     *prometheus.Desc
	writes     *prometheus.Desc
	hitRatio   *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// New builds a collector over stats, typically the accessor's Stats method.
// labels become constant labels on every metric; pass something like
// prometheus.Labels{"accessor": "faqs"} when several accessors share a
// registry, or nil for a single one.
func New(stats func() cascade.StatsSnapshot, labels prometheus.Labels) *Collector {
	return &Collector{
		stats: stats,
		cacheHits: prometheus.NewDesc("cascade_cache_hits_total",
			"Lookups served by the fast cache.", nil, labels),
		fileHits: prometheus.NewDesc("cascade_file_hits_total",
			"Lookups served by the persisted file layer.", nil, labels),
		sourceHits: prometheus.NewDesc("cascade_source_hits_total",
			"Lookups served by the relational source.", nil, labels),
		misses: prometheus.NewDesc("cascade_misses_total",
			"Lookups that fell through every layer.", nil, labels),
		writes: prometheus.NewDesc("cascade_cache_writes_total",
			"Successful cache writes from any path.", nil, labels),
		hitRatio: prometheus.NewDesc("cascade_cache_hit_ratio",
			"Fraction of lookups served by the fast cache.", nil, labels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheHits
	ch <- c.fileHits
	ch <- c.sourceHits
	ch <- c.misses
	ch <- c.writes
	ch <- c.hitRatio
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(s.CacheHits))
	ch <- prometheus.MustNewConstMetric(c.fileHits, prometheus.CounterValue, float64(s.FileHits))
	ch <- prometheus.MustNewConstMetric(c.sourceHits, prometheus.CounterValue, float64(s.SourceHits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.writes, prometheus.CounterValue, float64(s.Writes))
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, s.HitRatio())
}

package promstats

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/veiloq/cascade"
)

func snap() cascade.StatsSnapshot {
	return cascade.StatsSnapshot{
		CacheHits:  3,
		FileHits:   2,
		SourceHits: 1,
		Misses:     2,
		Writes:     4,
	}
}

func TestCollectorExportsCounters(t *testing.T) {
	col := New(func() cascade.StatsSnapshot { return snap() }, nil)

	require.Equal(t, 6, testutil.CollectAndCount(col))

	expected := `
# HELP cascade_cache_hits_total Lookups served by the fast cache.
# TYPE cascade_cache_hits_total counter
cascade_cache_hits_total 3
# HELP cascade_file_hits_total Lookups served by the persisted file layer.
# TYPE cascade_file_hits_total counter
cascade_file_hits_total 2
# HELP cascade_misses_total Lookups that fell through every layer.
# TYPE cascade_misses_total counter
cascade_misses_total 2
`
	require.NoError(t, testutil.CollectAndCompare(col, strings.NewReader(expected),
		"cascade_cache_hits_total", "cascade_file_hits_total", "cascade_misses_total"))
}

func TestCollectorHitRatio(t *testing.T) {
	// 3 cache hits out of 8 lookups
	col := New(func() cascade.StatsSnapshot { return snap() }, nil)

	expected := `
# HELP cascade_cache_hit_ratio Fraction of lookups served by the fast cache.
# TYPE cascade_cache_hit_ratio gauge
cascade_cache_hit_ratio 0.375
`
	require.NoError(t, testutil.CollectAndCompare(col, strings.NewReader(expected),
		"cascade_cache_hit_ratio"))
}

func TestCollectorConstLabels(t *testing.T) {
	col := New(func() cascade.StatsSnapshot { return snap() },
		prometheus.Labels{"accessor": "faqs"})

	expected := `
# HELP cascade_source_hits_total Lookups served by the relational source.
# TYPE cascade_source_hits_total counter
cascade_source_hits_total{accessor="faqs"} 1
`
	require.NoError(t, testutil.CollectAndCompare(col, strings.NewReader(expected),
		"cascade_source_hits_total"))
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	col := New(func() cascade.StatsSnapshot { return snap() }, nil)
	require.NoError(t, reg.Register(col))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 6)
}

package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPerformanceTrackerStats(t *testing.T) {
	tracker := NewPerformanceTracker(zap.NewNop())

	for i := 1; i <= 100; i++ {
		tracker.Record("db_query", float64(i), "ms")
	}

	stats, ok := tracker.Stats("db_query")
	require.True(t, ok)
	assert.Equal(t, 100, stats.Count)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 100.0, stats.Max)
	assert.Equal(t, 50.5, stats.Avg)
	assert.Equal(t, 50.0, stats.P50)
	assert.Equal(t, 95.0, stats.P95)
	assert.Equal(t, 99.0, stats.P99)
	assert.Equal(t, "ms", stats.Unit)
}

func TestPerformanceTrackerStatsUnknownOperation(t *testing.T) {
	tracker := NewPerformanceTracker(zap.NewNop())

	_, ok := tracker.Stats("never_recorded")
	assert.False(t, ok)
}

func TestPerformanceTrackerSampleCap(t *testing.T) {
	tracker := NewPerformanceTracker(zap.NewNop())

	for i := 0; i < maxSamplesPerOperation+200; i++ {
		tracker.Record("hot_path", float64(i), "ms")
	}

	stats, ok := tracker.Stats("hot_path")
	require.True(t, ok)
	assert.Equal(t, maxSamplesPerOperation, stats.Count)
	// Oldest samples are pruned first.
	assert.Equal(t, 200.0, stats.Min)
	assert.Equal(t, float64(maxSamplesPerOperation+199), stats.Max)
}

func TestPerformanceTrackerAllStatsSorted(t *testing.T) {
	tracker := NewPerformanceTracker(zap.NewNop())

	tracker.Record("zeta", 1, "ms")
	tracker.Record("alpha", 2, "ms")
	tracker.Record("mid", 3, "ms")

	all := tracker.AllStats()
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Operation)
	assert.Equal(t, "mid", all[1].Operation)
	assert.Equal(t, "zeta", all[2].Operation)
}

func TestPercentileSingleSample(t *testing.T) {
	values := []float64{42}
	assert.Equal(t, 42.0, percentile(values, 50))
	assert.Equal(t, 42.0, percentile(values, 99))
}

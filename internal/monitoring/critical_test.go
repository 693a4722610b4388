package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCriticalTracker(retention time.Duration) *CriticalTracker {
	return NewCriticalTracker(zap.NewNop(), retention)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		value     float64
		threshold float64
		want      MetricStatus
	}{
		{"well below threshold", 10, 100, MetricNormal},
		{"just below warning band", 79.9, 100, MetricNormal},
		{"at warning band", 80, 100, MetricWarning},
		{"inside warning band", 99.9, 100, MetricWarning},
		{"exactly at threshold", 100, 100, MetricCritical},
		{"above threshold", 150, 100, MetricCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.value, tt.threshold))
		})
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name     string
		previous float64
		current  float64
		want     Trend
	}{
		{"small increase is stable", 100, 104, TrendStable},
		{"small decrease is stable", 100, 96, TrendStable},
		{"large increase", 100, 110, TrendIncreasing},
		{"large decrease", 100, 90, TrendDecreasing},
		{"boundary change is not stable", 100, 105, TrendIncreasing},
		{"negative previous, rising", -100, -50, TrendIncreasing},
		{"negative previous, falling", -100, -150, TrendDecreasing},
		{"negative previous, small move is stable", -100, -102, TrendStable},
		{"negative to positive", -10, 10, TrendIncreasing},
		{"zero previous, positive current", 0, 5, TrendIncreasing},
		{"zero previous, zero current", 0, 0, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, trend(tt.previous, tt.current))
		})
	}
}

func TestCriticalTrackerRecord(t *testing.T) {
	tracker := newTestCriticalTracker(time.Hour)

	first := tracker.Record("latency_ms", 100, 1000)
	assert.Equal(t, MetricNormal, first.Status)
	assert.Equal(t, TrendStable, first.Trend)

	second := tracker.Record("latency_ms", 900, 1000)
	assert.Equal(t, MetricWarning, second.Status)
	assert.Equal(t, TrendIncreasing, second.Trend)

	third := tracker.Record("latency_ms", 1000, 1000)
	assert.Equal(t, MetricCritical, third.Status)
}

func TestCriticalTrackerLatestOnePerName(t *testing.T) {
	tracker := newTestCriticalTracker(time.Hour)

	tracker.Record("cpu", 10, 100)
	tracker.Record("cpu", 20, 100)
	tracker.Record("cpu", 30, 100)
	tracker.Record("memory", 50, 100)

	latest := tracker.Latest()
	require.Len(t, latest, 2)
	for _, m := range latest {
		if m.Name == "cpu" {
			assert.Equal(t, 30.0, m.Value)
		}
	}
}

func TestCriticalTrackerLatestSortedByStatus(t *testing.T) {
	tracker := newTestCriticalTracker(time.Hour)

	tracker.Record("a_normal", 10, 100)
	tracker.Record("b_critical", 200, 100)
	tracker.Record("c_warning", 85, 100)
	tracker.Record("d_critical", 150, 100)

	latest := tracker.Latest()
	require.Len(t, latest, 4)
	assert.Equal(t, "b_critical", latest[0].Name)
	assert.Equal(t, "d_critical", latest[1].Name)
	assert.Equal(t, "c_warning", latest[2].Name)
	assert.Equal(t, "a_normal", latest[3].Name)
}

func TestCriticalTrackerRetentionPrune(t *testing.T) {
	tracker := newTestCriticalTracker(50 * time.Millisecond)

	tracker.Record("m", 100, 1000)
	time.Sleep(80 * time.Millisecond)

	// The old sample has aged out, so the trend has no predecessor.
	m := tracker.Record("m", 500, 1000)
	assert.Equal(t, TrendStable, m.Trend)

	latest := tracker.Latest()
	require.Len(t, latest, 1)
	assert.Equal(t, 500.0, latest[0].Value)
}

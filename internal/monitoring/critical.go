package monitoring

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/logistix-app/logistix/pkg/metrics"
)

// MetricStatus classifies a sample against its threshold.
type MetricStatus string

const (
	MetricNormal   MetricStatus = "normal"
	MetricWarning  MetricStatus = "warning"
	MetricCritical MetricStatus = "critical"
)

// Trend compares a sample to the immediately preceding one.
type Trend string

const (
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// warningFraction of the threshold marks the warning band.
const warningFraction = 0.8

// trendStablePercent is the absolute percent change below which a sample is
// considered stable relative to its predecessor.
const trendStablePercent = 5.0

// CriticalMetric is a named numeric sample classified against a static
// threshold.
type CriticalMetric struct {
	Name      string       `json:"name"`
	Value     float64      `json:"value"`
	Threshold float64      `json:"threshold"`
	Status    MetricStatus `json:"status"`
	Trend     Trend        `json:"trend"`
	Timestamp time.Time    `json:"timestamp"`
}

// CriticalTracker keeps per-metric sample series in memory, pruned by age on
// each write.
type CriticalTracker struct {
	logger    *zap.Logger
	mu        sync.Mutex
	series    map[string][]CriticalMetric
	retention time.Duration
}

// NewCriticalTracker creates a tracker with the given retention window.
func NewCriticalTracker(logger *zap.Logger, retention time.Duration) *CriticalTracker {
	return &CriticalTracker{
		logger:    logger.Named("critical"),
		series:    make(map[string][]CriticalMetric),
		retention: retention,
	}
}

// Record appends a sample, classifying it against the threshold and deriving
// the trend from the previous retained sample. Samples older than the
// retention window are filtered out first.
func (c *CriticalTracker) Record(name string, value, threshold float64) CriticalMetric {
	now := time.Now()
	cutoff := now.Add(-c.retention)

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.series[name][:0]
	for _, m := range c.series[name] {
		if m.Timestamp.After(cutoff) {
			kept = append(kept, m)
		}
	}

	metric := CriticalMetric{
		Name:      name,
		Value:     value,
		Threshold: threshold,
		Status:    classify(value, threshold),
		Trend:     TrendStable,
		Timestamp: now,
	}
	if len(kept) > 0 {
		metric.Trend = trend(kept[len(kept)-1].Value, value)
	}

	c.series[name] = append(kept, metric)

	metrics.CriticalMetricStatus.WithLabelValues(name).Set(statusLevel(metric.Status))
	return metric
}

// Latest returns the most recent sample per metric name, sorted by status
// priority: critical first, then warning, then normal.
func (c *CriticalTracker) Latest() []CriticalMetric {
	c.mu.Lock()
	out := make([]CriticalMetric, 0, len(c.series))
	for _, series := range c.series {
		if len(series) > 0 {
			out = append(out, series[len(series)-1])
		}
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		pi, pj := statusLevel(out[i].Status), statusLevel(out[j].Status)
		if pi != pj {
			return pi > pj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func classify(value, threshold float64) MetricStatus {
	switch {
	case value >= threshold:
		return MetricCritical
	case value >= warningFraction*threshold:
		return MetricWarning
	default:
		return MetricNormal
	}
}

func trend(previous, current float64) Trend {
	if previous == 0 {
		switch {
		case current > 0:
			return TrendIncreasing
		case current < 0:
			return TrendDecreasing
		default:
			return TrendStable
		}
	}
	change := (current - previous) / math.Abs(previous) * 100
	if math.Abs(change) < trendStablePercent {
		return TrendStable
	}
	// Direction follows the delta, independent of the previous sample's sign.
	if current > previous {
		return TrendIncreasing
	}
	return TrendDecreasing
}

func statusLevel(s MetricStatus) float64 {
	switch s {
	case MetricCritical:
		return 2
	case MetricWarning:
		return 1
	default:
		return 0
	}
}

package monitoring

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// maxSamplesPerOperation caps each per-operation sample list.
const maxSamplesPerOperation = 1000

// PerformanceMetric is one recorded sample for a named operation.
type PerformanceMetric struct {
	Name      string    `json:"name"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// OperationStats summarizes the retained samples of one operation.
type OperationStats struct {
	Operation string  `json:"operation"`
	Unit      string  `json:"unit"`
	Count     int     `json:"count"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Avg       float64 `json:"avg"`
	P50       float64 `json:"p50"`
	P95       float64 `json:"p95"`
	P99       float64 `json:"p99"`
}

// PerformanceTracker keeps per-operation sample lists in memory, capped at
// maxSamplesPerOperation each, oldest dropped first.
type PerformanceTracker struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	samples map[string][]PerformanceMetric
}

// NewPerformanceTracker creates an empty tracker.
func NewPerformanceTracker(logger *zap.Logger) *PerformanceTracker {
	return &PerformanceTracker{
		logger:  logger.Named("performance"),
		samples: make(map[string][]PerformanceMetric),
	}
}

// Record appends a sample for the operation, pruning the oldest entries past
// the cap.
func (p *PerformanceTracker) Record(operation string, value float64, unit string) {
	metric := PerformanceMetric{
		Name:      operation,
		Value:     value,
		Unit:      unit,
		Timestamp: time.Now(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	list := append(p.samples[operation], metric)
	if len(list) > maxSamplesPerOperation {
		list = list[len(list)-maxSamplesPerOperation:]
	}
	p.samples[operation] = list
}

// Stats computes summary statistics for one operation. The second return is
// false when no samples exist.
func (p *PerformanceTracker) Stats(operation string) (OperationStats, bool) {
	p.mu.RLock()
	list := p.samples[operation]
	values := make([]float64, len(list))
	unit := ""
	for i, m := range list {
		values[i] = m.Value
		unit = m.Unit
	}
	p.mu.RUnlock()

	if len(values) == 0 {
		return OperationStats{}, false
	}

	sort.Float64s(values)
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return OperationStats{
		Operation: operation,
		Unit:      unit,
		Count:     len(values),
		Min:       values[0],
		Max:       values[len(values)-1],
		Avg:       sum / float64(len(values)),
		P50:       percentile(values, 50),
		P95:       percentile(values, 95),
		P99:       percentile(values, 99),
	}, true
}

// AllStats returns stats for every tracked operation, sorted by name.
func (p *PerformanceTracker) AllStats() []OperationStats {
	p.mu.RLock()
	operations := make([]string, 0, len(p.samples))
	for op := range p.samples {
		operations = append(operations, op)
	}
	p.mu.RUnlock()

	sort.Strings(operations)
	stats := make([]OperationStats, 0, len(operations))
	for _, op := range operations {
		if s, ok := p.Stats(op); ok {
			stats = append(stats, s)
		}
	}
	return stats
}

// percentile uses the nearest-rank method on an ascending-sorted slice.
func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

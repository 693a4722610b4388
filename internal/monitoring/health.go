package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/logistix-app/logistix/pkg/metrics"
)

// Status is the outcome of a single probe or of the system as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the point-in-time outcome of one named probe.
type CheckResult struct {
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Duration  time.Duration  `json:"duration"`
	CheckedAt time.Time      `json:"checked_at"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthSummary counts check outcomes; the three fields always sum to the
// number of registered checks.
type HealthSummary struct {
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
}

// SystemHealth aggregates all probe outcomes. It is recomputed per call and
// never persisted.
type SystemHealth struct {
	Status    Status        `json:"status"`
	CheckedAt time.Time     `json:"checked_at"`
	Duration  time.Duration `json:"duration"`
	Checks    []CheckResult `json:"checks"`
	Summary   HealthSummary `json:"summary"`
}

// CheckFunc probes one subsystem.
type CheckFunc func(ctx context.Context) CheckResult

// HealthService runs registered probes concurrently with per-probe timeouts.
type HealthService struct {
	logger       *zap.Logger
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	checkTimeout time.Duration
}

// NewHealthService creates a health service with no registered checks.
func NewHealthService(logger *zap.Logger) *HealthService {
	return &HealthService{
		logger:       logger.Named("health"),
		checks:       make(map[string]CheckFunc),
		checkTimeout: 10 * time.Second,
	}
}

// Register adds or replaces a named check.
func (h *HealthService) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Check runs every registered probe concurrently and aggregates the outcome.
// Overall status is unhealthy if any probe is unhealthy, degraded if any is
// degraded, healthy otherwise.
func (h *HealthService) Check(ctx context.Context) *SystemHealth {
	start := time.Now()

	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.RUnlock()

	results := make([]CheckResult, 0, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, h.checkTimeout)
			defer cancel()

			result := check(checkCtx)
			result.Name = name

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	summary := HealthSummary{}
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusHealthy:
			summary.Healthy++
			metrics.HealthCheckStatus.WithLabelValues(r.Name).Set(2)
		case StatusDegraded:
			summary.Degraded++
			metrics.HealthCheckStatus.WithLabelValues(r.Name).Set(1)
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		case StatusUnhealthy:
			summary.Unhealthy++
			metrics.HealthCheckStatus.WithLabelValues(r.Name).Set(0)
			overall = StatusUnhealthy
		}
	}

	return &SystemHealth{
		Status:    overall,
		CheckedAt: time.Now(),
		Duration:  time.Since(start),
		Checks:    results,
		Summary:   summary,
	}
}

// Live reports process liveness; it never fails while the process can answer.
func (h *HealthService) Live() CheckResult {
	return CheckResult{
		Name:      "process",
		Status:    StatusHealthy,
		CheckedAt: time.Now(),
	}
}

// DatabaseCheck probes the GORM connection pool.
func DatabaseCheck(db *gorm.DB) CheckFunc {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{CheckedAt: start, Details: make(map[string]any)}

		if db == nil {
			result.Status = StatusUnhealthy
			result.Message = "database not configured"
			result.Duration = time.Since(start)
			return result
		}

		sqlDB, err := db.DB()
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = fmt.Sprintf("failed to get sql.DB: %v", err)
			result.Duration = time.Since(start)
			return result
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			result.Status = StatusUnhealthy
			result.Message = fmt.Sprintf("database ping failed: %v", err)
			result.Duration = time.Since(start)
			return result
		}

		stats := sqlDB.Stats()
		result.Details["open_connections"] = stats.OpenConnections
		result.Details["in_use"] = stats.InUse
		result.Details["idle"] = stats.Idle

		result.Status = StatusHealthy
		if stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
			result.Status = StatusDegraded
			result.Message = "connection pool exhausted"
		}
		result.Duration = time.Since(start)
		return result
	}
}

// RedisCheck probes the revocation cache.
func RedisCheck(client *redis.Client) CheckFunc {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{CheckedAt: start}

		if client == nil {
			result.Status = StatusDegraded
			result.Message = "redis not configured, revocation falls back to database"
			result.Duration = time.Since(start)
			return result
		}
		if err := client.Ping(ctx).Err(); err != nil {
			result.Status = StatusUnhealthy
			result.Message = fmt.Sprintf("redis ping failed: %v", err)
			result.Duration = time.Since(start)
			return result
		}
		result.Status = StatusHealthy
		result.Duration = time.Since(start)
		return result
	}
}

// UpstreamCheck probes an external HTTP endpoint. An unreachable upstream
// degrades the service rather than failing it; connectors report their own
// errors per request.
func UpstreamCheck(client *http.Client, url string) CheckFunc {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{CheckedAt: start}

		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("invalid upstream url: %v", err)
			result.Duration = time.Since(start)
			return result
		}

		resp, err := client.Do(req)
		if err != nil {
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("upstream unreachable: %v", err)
			result.Duration = time.Since(start)
			return result
		}
		resp.Body.Close()

		// Any HTTP answer counts as reachable; auth failures belong to the
		// per-user connectors.
		result.Status = StatusHealthy
		result.Details = map[string]any{"status_code": resp.StatusCode}
		result.Duration = time.Since(start)
		return result
	}
}

// MemoryCheck classifies heap usage against the configured percent thresholds.
func MemoryCheck(warningPct, criticalPct float64) CheckFunc {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{CheckedAt: start, Details: make(map[string]any)}

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		usedPct := float64(m.HeapAlloc) / float64(m.Sys) * 100
		result.Details["heap_alloc_bytes"] = m.HeapAlloc
		result.Details["sys_bytes"] = m.Sys
		result.Details["used_percent"] = usedPct
		result.Details["num_gc"] = m.NumGC

		switch {
		case usedPct >= criticalPct:
			result.Status = StatusUnhealthy
			result.Message = fmt.Sprintf("heap usage %.1f%% above critical threshold", usedPct)
		case usedPct >= warningPct:
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("heap usage %.1f%% above warning threshold", usedPct)
		default:
			result.Status = StatusHealthy
		}
		result.Duration = time.Since(start)
		return result
	}
}

// GoroutineCheck classifies goroutine count against absolute thresholds.
func GoroutineCheck(warning, critical float64) CheckFunc {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		count := runtime.NumGoroutine()
		result := CheckResult{
			CheckedAt: start,
			Details:   map[string]any{"goroutines": count},
		}
		switch {
		case float64(count) >= critical:
			result.Status = StatusUnhealthy
			result.Message = fmt.Sprintf("%d goroutines above critical threshold", count)
		case float64(count) >= warning:
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("%d goroutines above warning threshold", count)
		default:
			result.Status = StatusHealthy
		}
		result.Duration = time.Since(start)
		return result
	}
}

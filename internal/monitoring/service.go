package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/logistix-app/logistix/internal/config"
)

// SystemStatus is the aggregated view served by /api/status and the dashboard.
type SystemStatus struct {
	Status          Status           `json:"status"`
	Environment     string           `json:"environment"`
	Uptime          string           `json:"uptime"`
	Timestamp       time.Time        `json:"timestamp"`
	Health          *SystemHealth    `json:"health"`
	CriticalMetrics []CriticalMetric `json:"critical_metrics"`
	ActiveAlerts    int              `json:"active_alerts"`
	Performance     []OperationStats `json:"performance"`
}

// Service is the unified monitoring facade. It owns the health, performance,
// alerting and critical-metric services and runs the periodic collection loop.
type Service struct {
	logger      *zap.Logger
	cfg         config.MonitoringConfig
	environment string
	startedAt   time.Time

	Health      *HealthService
	Performance *PerformanceTracker
	Alerts      *AlertService
	Critical    *CriticalTracker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates the monitoring facade and its sibling services.
func NewService(logger *zap.Logger, cfg config.MonitoringConfig, environment string) *Service {
	log := logger.Named("monitoring")
	return &Service{
		logger:      log,
		cfg:         cfg,
		environment: environment,
		startedAt:   time.Now(),
		Health:      NewHealthService(log),
		Performance: NewPerformanceTracker(log),
		Alerts:      NewAlertService(log),
		Critical:    NewCriticalTracker(log, cfg.RetentionWindow),
	}
}

// Start launches the periodic collection loop. A disabled config is a no-op.
func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("monitoring disabled, collection loop not started")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.HealthCheckInterval)
		defer ticker.Stop()

		s.logger.Info("monitoring collection loop started",
			zap.Duration("interval", s.cfg.HealthCheckInterval))

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.collect(loopCtx)
			}
		}
	}()
}

// Stop cancels the collection loop and waits for it to exit.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("monitoring stopped")
}

// collect samples runtime metrics, runs the health checks and raises alerts
// for anything critical. Failures are logged, never retried.
func (s *Service) collect(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("monitoring collection panicked", zap.Any("panic", r))
		}
	}()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memPct := float64(m.HeapAlloc) / float64(m.Sys) * 100

	memMetric := s.Critical.Record("memory_used_percent", memPct, s.cfg.Thresholds.MemoryCriticalPercent)
	if memMetric.Status == MetricCritical {
		s.Alerts.Raise("memory", SeverityCritical, "Memory usage critical",
			fmt.Sprintf("heap usage at %.1f%% of reserved memory", memPct))
	}

	goroutines := float64(runtime.NumGoroutine())
	gorMetric := s.Critical.Record("goroutines", goroutines, s.cfg.Thresholds.GoroutineCritical)
	if gorMetric.Status == MetricCritical {
		s.Alerts.Raise("goroutines", SeverityCritical, "Goroutine count critical",
			fmt.Sprintf("%d goroutines running", int(goroutines)))
	}

	health := s.Health.Check(ctx)
	if health.Status == StatusUnhealthy {
		for _, check := range health.Checks {
			if check.Status == StatusUnhealthy {
				s.Alerts.Raise("health_check", SeverityCritical,
					fmt.Sprintf("Health check failed: %s", check.Name), check.Message)
			}
		}
	}
}

// RecordPerformance records one timed operation and classifies its latency
// against the response-time thresholds, raising an alert on a critical breach.
func (s *Service) RecordPerformance(operation string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	s.Performance.Record(operation, ms, "ms")

	metric := s.Critical.Record(operation+"_response_time", ms, s.cfg.Thresholds.ResponseTimeCriticalMs)
	if metric.Status == MetricCritical {
		s.Alerts.Raise("performance", SeverityWarning, "Slow operation",
			fmt.Sprintf("%s took %.0fms", operation, ms))
	}
}

// LogEvent writes a structured application event through the monitoring logger.
func (s *Service) LogEvent(level, message string, fields map[string]any) {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	switch level {
	case "debug":
		s.logger.Debug(message, zapFields...)
	case "warn":
		s.logger.Warn(message, zapFields...)
	case "error":
		s.logger.Error(message, zapFields...)
	default:
		s.logger.Info(message, zapFields...)
	}
}

// SystemStatus aggregates health, critical metrics, alerts and performance
// into one snapshot.
func (s *Service) SystemStatus(ctx context.Context) *SystemStatus {
	health := s.Health.Check(ctx)
	status := health.Status

	criticals := s.Critical.Latest()
	for _, m := range criticals {
		if m.Status == MetricCritical {
			status = StatusUnhealthy
			break
		}
		if m.Status == MetricWarning && status == StatusHealthy {
			status = StatusDegraded
		}
	}

	return &SystemStatus{
		Status:          status,
		Environment:     s.environment,
		Uptime:          time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp:       time.Now(),
		Health:          health,
		CriticalMetrics: criticals,
		ActiveAlerts:    s.Alerts.ActiveCount(),
		Performance:     s.Performance.AllStats(),
	}
}

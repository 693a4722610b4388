package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticCheck(status Status) CheckFunc {
	return func(ctx context.Context) CheckResult {
		return CheckResult{Status: status, CheckedAt: time.Now()}
	}
}

func TestHealthServiceAllHealthy(t *testing.T) {
	svc := NewHealthService(zap.NewNop())
	svc.Register("a", staticCheck(StatusHealthy))
	svc.Register("b", staticCheck(StatusHealthy))

	health := svc.Check(context.Background())
	assert.Equal(t, StatusHealthy, health.Status)
	assert.Equal(t, HealthSummary{Healthy: 2}, health.Summary)
}

func TestHealthServiceDegradedWins(t *testing.T) {
	svc := NewHealthService(zap.NewNop())
	svc.Register("a", staticCheck(StatusHealthy))
	svc.Register("b", staticCheck(StatusDegraded))

	health := svc.Check(context.Background())
	assert.Equal(t, StatusDegraded, health.Status)
}

func TestHealthServiceUnhealthyWins(t *testing.T) {
	svc := NewHealthService(zap.NewNop())
	svc.Register("a", staticCheck(StatusDegraded))
	svc.Register("b", staticCheck(StatusUnhealthy))
	svc.Register("c", staticCheck(StatusHealthy))

	health := svc.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, health.Status)
}

func TestHealthServiceSummarySumsToChecks(t *testing.T) {
	svc := NewHealthService(zap.NewNop())
	svc.Register("a", staticCheck(StatusHealthy))
	svc.Register("b", staticCheck(StatusDegraded))
	svc.Register("c", staticCheck(StatusUnhealthy))
	svc.Register("d", staticCheck(StatusHealthy))

	health := svc.Check(context.Background())
	require.Len(t, health.Checks, 4)
	total := health.Summary.Healthy + health.Summary.Degraded + health.Summary.Unhealthy
	assert.Equal(t, len(health.Checks), total)
}

func TestHealthServiceResultsSortedByName(t *testing.T) {
	svc := NewHealthService(zap.NewNop())
	svc.Register("zeta", staticCheck(StatusHealthy))
	svc.Register("alpha", staticCheck(StatusHealthy))
	svc.Register("mid", staticCheck(StatusHealthy))

	health := svc.Check(context.Background())
	require.Len(t, health.Checks, 3)
	assert.Equal(t, "alpha", health.Checks[0].Name)
	assert.Equal(t, "mid", health.Checks[1].Name)
	assert.Equal(t, "zeta", health.Checks[2].Name)
}

func TestHealthServiceNoChecks(t *testing.T) {
	svc := NewHealthService(zap.NewNop())
	health := svc.Check(context.Background())
	assert.Equal(t, StatusHealthy, health.Status)
	assert.Empty(t, health.Checks)
}

func TestHealthServiceRegisterReplaces(t *testing.T) {
	svc := NewHealthService(zap.NewNop())
	svc.Register("db", staticCheck(StatusUnhealthy))
	svc.Register("db", staticCheck(StatusHealthy))

	health := svc.Check(context.Background())
	require.Len(t, health.Checks, 1)
	assert.Equal(t, StatusHealthy, health.Status)
}

func TestLive(t *testing.T) {
	svc := NewHealthService(zap.NewNop())
	result := svc.Live()
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Equal(t, "process", result.Name)
}

func TestRedisCheckNilClient(t *testing.T) {
	check := RedisCheck(nil)
	result := check(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
}

func TestGoroutineCheckThresholds(t *testing.T) {
	healthy := GoroutineCheck(100000, 200000)(context.Background())
	assert.Equal(t, StatusHealthy, healthy.Status)

	unhealthy := GoroutineCheck(0, 1)(context.Background())
	assert.Equal(t, StatusUnhealthy, unhealthy.Status)
}

func TestUpstreamCheckReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	// A 403 still means the upstream is reachable.
	result := UpstreamCheck(server.Client(), server.URL)(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Equal(t, http.StatusForbidden, result.Details["status_code"])
}

func TestUpstreamCheckUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	result := UpstreamCheck(&http.Client{Timeout: time.Second}, url)(context.Background())
	assert.Equal(t, StatusDegraded, result.Status)
	assert.NotEmpty(t, result.Message)
}

func TestMemoryCheckHealthyWithGenerousThresholds(t *testing.T) {
	result := MemoryCheck(99, 100)(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Contains(t, result.Details, "used_percent")
}

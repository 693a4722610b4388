package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPRequestsTotal counts handled HTTP requests by route, method and status.
var HTTPRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "logistix_http_requests_total",
		Help: "Total number of HTTP requests handled",
	},
	[]string{"path", "method", "status"},
)

// HTTPRequestDuration records request latency distribution per route.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "logistix_http_request_duration_seconds",
		Help:    "Latency in seconds to serve HTTP requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"path", "method"},
)

// Monitoring subsystem gauges
var (
	ActiveAlerts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logistix_alerts_active",
			Help: "Number of unresolved alerts by severity",
		},
		[]string{"severity"},
	)

	CriticalMetricStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logistix_critical_metric_status",
			Help: "Status of tracked critical metrics (0=normal, 1=warning, 2=critical)",
		},
		[]string{"metric"},
	)

	HealthCheckStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logistix_health_check_status",
			Help: "Latest health check outcome (0=unhealthy, 1=degraded, 2=healthy)",
		},
		[]string{"check"},
	)
)

// Integration connector metrics
var (
	IntegrationSyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logistix_integration_syncs_total",
			Help: "Total integration sync attempts by provider and result",
		},
		[]string{"provider", "result"},
	)

	MarketAnalysesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logistix_market_analyses_total",
			Help: "Total Vinted market analyses performed",
		},
	)
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logistix_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logistix_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logistix_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal, HTTPRequestDuration)
	prometheus.MustRegister(ActiveAlerts, CriticalMetricStatus, HealthCheckStatus)
	prometheus.MustRegister(IntegrationSyncsTotal, MarketAnalysesTotal)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)
}

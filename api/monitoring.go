package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/api/responses"
	"github.com/logistix-app/logistix/internal/monitoring"
)

func (s *Server) getHealth(c *gin.Context) {
	report := s.monitoring.Health.Check(c.Request.Context())

	status := http.StatusOK
	if report.Status == monitoring.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (s *Server) getReadiness(c *gin.Context) {
	report := s.monitoring.Health.Check(c.Request.Context())
	ready := report.Status != monitoring.StatusUnhealthy

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ready":     ready,
		"timestamp": time.Now().UTC(),
		"summary":   report.Summary,
	})
}

func (s *Server) getLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitoring.Health.Live())
}

func (s *Server) getMetricsJSON(c *gin.Context) {
	responses.Success(c, gin.H{
		"critical_metrics": s.monitoring.Critical.Latest(),
		"performance":      s.monitoring.Performance.AllStats(),
	})
}

func (s *Server) getStatus(c *gin.Context) {
	responses.Success(c, s.monitoring.SystemStatus(c.Request.Context()))
}

func (s *Server) getAlerts(c *gin.Context) {
	filter := monitoring.AlertFilter{
		Severity:       monitoring.AlertSeverity(c.Query("severity")),
		Type:           c.Query("type"),
		UnresolvedOnly: c.Query("unresolved") == "true",
	}
	responses.Success(c, s.monitoring.Alerts.Alerts(filter))
}

func (s *Server) resolveAlert(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		responses.BadRequest(c, "invalid alert id")
		return
	}
	if err := s.monitoring.Alerts.Resolve(alertID); err != nil {
		responses.NotFound(c, "alert not found")
		return
	}
	responses.Success(c, gin.H{"resolved": true})
}

func (s *Server) getDashboard(c *gin.Context) {
	status := s.monitoring.SystemStatus(c.Request.Context())
	alerts := s.monitoring.Alerts.Alerts(monitoring.AlertFilter{UnresolvedOnly: true})

	responses.Success(c, gin.H{
		"status":        status,
		"active_alerts": alerts,
	})
}

var dashboardUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// dashboardPushInterval is how often the live dashboard stream refreshes.
const dashboardPushInterval = 5 * time.Second

// dashboardWS streams the system status to a dashboard client until it
// disconnects.
func (s *Server) dashboardWS(c *gin.Context) {
	conn, err := dashboardUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("dashboard websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(dashboardPushInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		status := s.monitoring.SystemStatus(ctx)
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(status); err != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

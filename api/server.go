package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/logistix-app/logistix/api/responses"
	"github.com/logistix-app/logistix/internal/identities"
	"github.com/logistix-app/logistix/internal/integrations"
	"github.com/logistix-app/logistix/internal/monitoring"
	"github.com/logistix-app/logistix/internal/settings"
	"github.com/logistix-app/logistix/pkg/metrics"
)

// Context keys set by the auth middleware.
const (
	ctxUserID    = "userID"
	ctxSessionID = "sessionID"
)

// Server is the HTTP API server.
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	logger       *zap.Logger
	identities   identities.IdentityService
	settings     *settings.Service
	integrations *integrations.Service
	analyzer     *integrations.MarketAnalyzer
	monitoring   *monitoring.Service
	validator    *validator.Validate
}

// NewServer creates the API server with all routes registered.
func NewServer(
	logger *zap.Logger,
	identitySvc identities.IdentityService,
	settingsSvc *settings.Service,
	integrationsSvc *integrations.Service,
	analyzer *integrations.MarketAnalyzer,
	monitoringSvc *monitoring.Service,
) *Server {
	server := &Server{
		logger:       logger.Named("api"),
		identities:   identitySvc,
		settings:     settingsSvc,
		integrations: integrationsSvc,
		analyzer:     analyzer,
		monitoring:   monitoringSvc,
		validator:    validator.New(),
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("logistix-api"))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(server.metricsMiddleware())

	server.router = router
	server.registerRoutes()
	return server
}

// Router returns the internal Gin engine for testing purposes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	s.logger.Info("starting API server", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	// Monitoring surface, public
	mon := s.router.Group("/api")
	{
		mon.GET("/health", s.getHealth)
		mon.GET("/health/ready", s.getReadiness)
		mon.GET("/health/live", s.getLiveness)
		mon.GET("/metrics", s.getMetricsJSON)
		mon.GET("/metrics/prometheus", gin.WrapH(promhttp.Handler()))
		mon.GET("/status", s.getStatus)
		mon.GET("/alerts", s.getAlerts)
		mon.POST("/alerts/:id/resolve", s.resolveAlert)
		mon.GET("/dashboard", s.getDashboard)
		mon.GET("/dashboard/ws", s.dashboardWS)
	}

	v1 := s.router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", s.register)
		auth.POST("/login", s.login)
		auth.POST("/2fa", s.verify2FA)
		auth.POST("/logout", s.authRequired(), s.logout)
	}

	private := v1.Group("")
	private.Use(s.authRequired())
	{
		profile := private.Group("/profile")
		{
			profile.GET("", s.getProfile)
			profile.PUT("", s.updateProfile)
			profile.PUT("/password", s.changePassword)
			profile.POST("/2fa/setup", s.setup2FA)
			profile.POST("/2fa/enable", s.enable2FA)
			profile.POST("/2fa/disable", s.disable2FA)
		}

		settingsGroup := private.Group("/settings")
		{
			settingsGroup.GET("", s.getSettings)
			settingsGroup.PUT("", s.updateSettings)
			settingsGroup.GET("/enrichment/config", s.getEnrichmentConfig)
			settingsGroup.PUT("/enrichment/config", s.updateEnrichmentConfig)
			settingsGroup.GET("/enrichment/status", s.getEnrichmentStatus)
		}

		sessions := private.Group("/sessions")
		{
			sessions.GET("", s.listSessions)
			sessions.DELETE("/:id", s.deleteSession)
			sessions.DELETE("", s.deleteOtherSessions)
		}

		integrationsGroup := private.Group("/integrations")
		{
			superbuy := integrationsGroup.Group("/superbuy")
			{
				superbuy.POST("/connect", s.connectIntegration(integrations.ProviderSuperbuy))
				superbuy.GET("/status", s.integrationStatus(integrations.ProviderSuperbuy))
				superbuy.DELETE("/disconnect", s.disconnectIntegration(integrations.ProviderSuperbuy))
				superbuy.POST("/sync", s.syncSuperbuy)
			}
			vinted := integrationsGroup.Group("/vinted")
			{
				vinted.POST("/connect", s.connectIntegration(integrations.ProviderVinted))
				vinted.GET("/status", s.integrationStatus(integrations.ProviderVinted))
				vinted.DELETE("/disconnect", s.disconnectIntegration(integrations.ProviderVinted))
				vinted.POST("/analyze", s.analyzeMarket)
				vinted.GET("/analyses", s.listAnalyses)
				vinted.DELETE("/analyses/:id", s.deleteAnalysis)
			}
		}
	}
}

// metricsMiddleware records prometheus counters and feeds the performance
// tracker with per-route latency.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		elapsed := time.Since(start)
		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(path, method, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(path, method).Observe(elapsed.Seconds())

		if s.monitoring != nil {
			s.monitoring.RecordPerformance(method+" "+path, elapsed)
		}
	}
}

// authRequired validates the bearer token and stores user and session IDs on
// the context.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			responses.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		userID, sessionID, err := s.identities.ValidateToken(c.Request.Context(), token)
		if err != nil {
			responses.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxSessionID, sessionID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet(ctxUserID).(uuid.UUID)
}

func currentSessionID(c *gin.Context) uuid.UUID {
	return c.MustGet(ctxSessionID).(uuid.UUID)
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/logistix-app/logistix/api"
	"github.com/logistix-app/logistix/internal/config"
	"github.com/logistix-app/logistix/internal/database"
	"github.com/logistix-app/logistix/internal/identities"
	"github.com/logistix-app/logistix/internal/integrations"
	"github.com/logistix-app/logistix/internal/monitoring"
	"github.com/logistix-app/logistix/internal/settings"
	"github.com/logistix-app/logistix/pkg/logger"
	"github.com/logistix-app/logistix/pkg/metrics"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, cfg); err != nil {
		log.Fatal("fatal", zap.Error(err))
	}
}

func run(log *zap.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := initTracing(log, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer tracerShutdown()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database ready",
		zap.String("driver", cfg.Database.Driver))

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable, session revocation will use the database only",
				zap.Error(err))
		}
		cancel()
		defer redisClient.Close()
	}

	monitoringSvc := monitoring.NewService(log, cfg.Monitoring, cfg.Environment)
	monitoringSvc.Health.Register("database", monitoring.DatabaseCheck(db))
	monitoringSvc.Health.Register("redis", monitoring.RedisCheck(redisClient))
	monitoringSvc.Health.Register("memory", monitoring.MemoryCheck(
		cfg.Monitoring.Thresholds.MemoryWarningPercent,
		cfg.Monitoring.Thresholds.MemoryCriticalPercent))
	monitoringSvc.Health.Register("goroutines", monitoring.GoroutineCheck(
		cfg.Monitoring.Thresholds.GoroutineWarning,
		cfg.Monitoring.Thresholds.GoroutineCritical))
	upstreamClient := &http.Client{Timeout: cfg.Integrations.RequestTimeout}
	monitoringSvc.Health.Register("superbuy_upstream",
		monitoring.UpstreamCheck(upstreamClient, cfg.Integrations.SuperbuyBaseURL))
	monitoringSvc.Health.Register("vinted_upstream",
		monitoring.UpstreamCheck(upstreamClient, cfg.Integrations.VintedBaseURL))
	monitoringSvc.Start(ctx)
	defer monitoringSvc.Stop()

	go reportPoolStats(ctx, db)

	identitySvc, err := identities.NewService(log, db, redisClient, cfg.JWT.Secret, cfg.JWT.ExpirationHours)
	if err != nil {
		return fmt.Errorf("failed to create identity service: %w", err)
	}
	settingsSvc := settings.NewService(log, db)

	superbuy := integrations.NewSuperbuyClient(log, cfg.Integrations.SuperbuyBaseURL, cfg.Integrations.RequestTimeout)
	vinted := integrations.NewVintedClient(log, cfg.Integrations.VintedBaseURL, cfg.Integrations.RequestTimeout)
	integrationsSvc := integrations.NewService(log, db, superbuy, vinted)
	analyzer := integrations.NewMarketAnalyzer(log, db, vinted, integrationsSvc)

	server := api.NewServer(log, identitySvc, settingsSvc, integrationsSvc, analyzer, monitoringSvc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// initTracing installs a stdout trace exporter. Development keeps every span,
// other environments sample.
func initTracing(log *zap.Logger, environment string) (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	sampler := sdktrace.TraceIDRatioBased(0.1)
	if environment == "development" {
		sampler = sdktrace.AlwaysSample()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}, nil
}

// reportPoolStats exports connection-pool gauges every 15 seconds.
func reportPoolStats(ctx context.Context, db *gorm.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := database.Stats(db)
			if err != nil {
				continue
			}
			metrics.DBOpenConns.WithLabelValues("primary").Set(float64(stats.OpenConnections))
			metrics.DBIdleConns.WithLabelValues("primary").Set(float64(stats.Idle))
			metrics.DBInUseConns.WithLabelValues("primary").Set(float64(stats.InUse))
		}
	}
}

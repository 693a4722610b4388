package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds GORM connection settings.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig holds the session-revocation cache settings.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	ExpirationHours int    `mapstructure:"expiration_hours"`
}

// Thresholds are the static limits critical metrics are classified against.
type Thresholds struct {
	ResponseTimeWarningMs  float64 `mapstructure:"response_time_warning_ms"`
	ResponseTimeCriticalMs float64 `mapstructure:"response_time_critical_ms"`
	MemoryWarningPercent   float64 `mapstructure:"memory_warning_percent"`
	MemoryCriticalPercent  float64 `mapstructure:"memory_critical_percent"`
	GoroutineWarning       float64 `mapstructure:"goroutine_warning"`
	GoroutineCritical      float64 `mapstructure:"goroutine_critical"`
}

// MonitoringConfig controls the unified monitoring subsystem.
type MonitoringConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	RetentionWindow     time.Duration `mapstructure:"retention_window"`
	Thresholds          Thresholds    `mapstructure:"thresholds"`
}

// IntegrationsConfig holds upstream marketplace endpoints.
type IntegrationsConfig struct {
	SuperbuyBaseURL string        `mapstructure:"superbuy_base_url"`
	VintedBaseURL   string        `mapstructure:"vinted_base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// Config is the full application configuration.
type Config struct {
	Environment  string             `mapstructure:"environment"`
	LogLevel     string             `mapstructure:"log_level"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	Integrations IntegrationsConfig `mapstructure:"integrations"`
}

// LoadConfig loads the application configuration: defaults first, then an
// optional YAML file, then environment variables on top.
func LoadConfig() (*Config, error) {
	config := &Config{
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "logistix.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			DB:      0,
			Enabled: false,
		},
		JWT: JWTConfig{
			Secret:          "change-me-in-production",
			ExpirationHours: 24,
		},
		Monitoring: MonitoringConfig{
			Enabled:             true,
			HealthCheckInterval: 30 * time.Second,
			RetentionWindow:     time.Hour,
			Thresholds: Thresholds{
				ResponseTimeWarningMs:  500,
				ResponseTimeCriticalMs: 2000,
				MemoryWarningPercent:   75,
				MemoryCriticalPercent:  90,
				GoroutineWarning:       1000,
				GoroutineCritical:      5000,
			},
		},
		Integrations: IntegrationsConfig{
			SuperbuyBaseURL: "https://front.superbuy.com",
			VintedBaseURL:   "https://www.vinted.fr",
			RequestTimeout:  15 * time.Second,
		},
	}

	// Optional YAML file overlay
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/logistix")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		if err := viper.Unmarshal(config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// Environment variable overrides
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		config.Environment = env
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if port, err := strconv.Atoi(os.Getenv("SERVER_PORT")); err == nil {
		config.Server.Port = port
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if redisAddr := os.Getenv("REDIS_ADDRESS"); redisAddr != "" {
		config.Redis.Address = redisAddr
		config.Redis.Enabled = true
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if redisDB, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		config.Redis.DB = redisDB
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		config.JWT.Secret = jwtSecret
	}
	if jwtExpHours, err := strconv.Atoi(os.Getenv("JWT_EXPIRATION_HOURS")); err == nil {
		config.JWT.ExpirationHours = jwtExpHours
	}
	if enabled := os.Getenv("MONITORING_ENABLED"); enabled != "" {
		config.Monitoring.Enabled = enabled == "true"
	}
	if interval, err := time.ParseDuration(os.Getenv("HEALTH_CHECK_INTERVAL")); err == nil {
		config.Monitoring.HealthCheckInterval = interval
	}
	if window, err := time.ParseDuration(os.Getenv("METRIC_RETENTION_WINDOW")); err == nil {
		config.Monitoring.RetentionWindow = window
	}
	loadThresholdOverrides(&config.Monitoring.Thresholds)
	if base := os.Getenv("SUPERBUY_BASE_URL"); base != "" {
		config.Integrations.SuperbuyBaseURL = base
	}
	if base := os.Getenv("VINTED_BASE_URL"); base != "" {
		config.Integrations.VintedBaseURL = base
	}

	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

func loadThresholdOverrides(t *Thresholds) {
	overrides := map[string]*float64{
		"RESPONSE_TIME_WARNING_MS":  &t.ResponseTimeWarningMs,
		"RESPONSE_TIME_CRITICAL_MS": &t.ResponseTimeCriticalMs,
		"MEMORY_WARNING_PERCENT":    &t.MemoryWarningPercent,
		"MEMORY_CRITICAL_PERCENT":   &t.MemoryCriticalPercent,
		"GOROUTINE_WARNING":         &t.GoroutineWarning,
		"GOROUTINE_CRITICAL":        &t.GoroutineCritical,
	}
	for name, target := range overrides {
		if v, err := strconv.ParseFloat(os.Getenv(name), 64); err == nil {
			*target = v
		}
	}
}

func validate(c *Config) error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Monitoring.HealthCheckInterval < time.Second {
		return fmt.Errorf("health check interval too small: %s", c.Monitoring.HealthCheckInterval)
	}
	return nil
}

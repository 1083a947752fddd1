package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Business  BusinessConfig  `mapstructure:"business"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL          string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLife  time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	StatusSweepSpec   string `mapstructure:"SCHEDULER_STATUS_SWEEP_SPEC"`
	FullReconcileSpec string `mapstructure:"SCHEDULER_FULL_RECONCILE_SPEC"`
	Timezone          string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

// BusinessConfig carries the reporting and reconciliation thresholds. The
// direction cutoffs are heuristics for dashboard arrows, not invariants.
type BusinessConfig struct {
	OverdueMonths       int     `mapstructure:"OVERDUE_MONTHS"`
	WaitlistCount       int     `mapstructure:"WAITLIST_COUNT"`
	RecentPayersLimit   int     `mapstructure:"RECENT_PAYERS_LIMIT"`
	PaidGoodPercent     float64 `mapstructure:"PAID_GOOD_PERCENT"`
	PendingGoodPercent  float64 `mapstructure:"PENDING_GOOD_PERCENT"`
	WaitlistGoodPercent float64 `mapstructure:"WAITLIST_GOOD_PERCENT"`
	CollectionGoodPct   float64 `mapstructure:"COLLECTION_GOOD_PERCENT"`
	ReportCacheTTL      string  `mapstructure:"REPORT_CACHE_TTL"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("OVERDUE_MONTHS", 3)
	viper.SetDefault("WAITLIST_COUNT", 3)
	viper.SetDefault("RECENT_PAYERS_LIMIT", 20)
	viper.SetDefault("PAID_GOOD_PERCENT", 50.0)
	viper.SetDefault("PENDING_GOOD_PERCENT", 50.0)
	viper.SetDefault("WAITLIST_GOOD_PERCENT", 20.0)
	viper.SetDefault("COLLECTION_GOOD_PERCENT", 80.0)
	viper.SetDefault("REPORT_CACHE_TTL", "5m")
	// Hourly status sweep, daily full reconcile at midnight (6-field cron)
	viper.SetDefault("SCHEDULER_STATUS_SWEEP_SPEC", "0 0 * * * *")
	viper.SetDefault("SCHEDULER_FULL_RECONCILE_SPEC", "0 0 0 * * *")
	viper.SetDefault("SCHEDULER_TIMEZONE", "Asia/Kolkata")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Business.OverdueMonths <= 0 {
		return fmt.Errorf("OVERDUE_MONTHS must be greater than 0")
	}

	if c.Business.WaitlistCount <= 0 {
		return fmt.Errorf("WAITLIST_COUNT must be greater than 0")
	}

	if c.Business.RecentPayersLimit <= 0 {
		return fmt.Errorf("RECENT_PAYERS_LIMIT must be greater than 0")
	}

	if _, err := time.ParseDuration(c.Business.ReportCacheTTL); err != nil {
		return fmt.Errorf("REPORT_CACHE_TTL must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetReportCacheTTL returns the analytics cache TTL as duration
func (c *Config) GetReportCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.ReportCacheTTL)
	return ttl
}

// SetupLogger configures the global logrus logger from LoggingConfig.
func (c *Config) SetupLogger() {
	if c.Logging.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

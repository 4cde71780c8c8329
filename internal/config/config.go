// Package config loads service configuration from defaults, an optional YAML file, a .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MaxUploadSize is the hard ceiling for a single resume file.
const MaxUploadSize = 50 * 1024 * 1024

// Config is the service configuration.
type Config struct {
	Server        ServerConfig      `mapstructure:"server"`
	Database      DatabaseConfig    `mapstructure:"database"`
	Worker        WorkerConfig      `mapstructure:"worker"`
	JWT           JWTConfig         `mapstructure:"jwt"`
	Redis         RedisConfig       `mapstructure:"redis"`
	RateLimit     RateLimitConfig   `mapstructure:"rate_limit"`
	Retry         RetryConfig       `mapstructure:"retry"`
	Uploads       UploadConfig      `mapstructure:"uploads"`
	SavedSearches SavedSearchConfig `mapstructure:"saved_searches"`
	Health        HealthConfig      `mapstructure:"health"`
	Sweep         SweepConfig       `mapstructure:"sweep"`
	Logging       LoggingConfig     `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// WorkerConfig points at the external analysis worker.
type WorkerConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RateLimitConfig selects the limiter store and default rule. Whitelist and Blacklist are
// comma-separated IPs.
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Store         string        `mapstructure:"store"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	DefaultLimit  int           `mapstructure:"default_limit"`
	DefaultWindow time.Duration `mapstructure:"default_window"`
	Whitelist     string        `mapstructure:"whitelist"`
	Blacklist     string        `mapstructure:"blacklist"`
}

type RetryConfig struct {
	Concurrency     int           `mapstructure:"concurrency"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
}

type UploadConfig struct {
	MaxFileSize int64 `mapstructure:"max_file_size"`
}

type SavedSearchConfig struct {
	MaxPerUser int `mapstructure:"max_per_user"`
}

// HealthConfig holds the position health thresholds.
type HealthConfig struct {
	DeadlineCriticalDays int `mapstructure:"deadline_critical_days"`
	StuckCritical        int `mapstructure:"stuck_critical"`
	StuckWarning         int `mapstructure:"stuck_warning"`
	OpenCriticalDays     int `mapstructure:"open_critical_days"`
	OpenWarningDays      int `mapstructure:"open_warning_days"`
	StuckIdleDays        int `mapstructure:"stuck_idle_days"`
}

// SweepConfig bounds how long a job may sit in one state before the sweeper acts.
type SweepConfig struct {
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
	QueuedTimeout     time.Duration `mapstructure:"queued_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envAliases maps config keys to the flat variable names used in deployment manifests.
var envAliases = map[string]string{
	"logging.level":  "LOG_LEVEL",
	"logging.format": "LOG_FORMAT",
	"server.port":    "PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("database.url", "")

	v.SetDefault("worker.url", "")
	v.SetDefault("worker.api_key", "")
	v.SetDefault("worker.timeout", 30*time.Second)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiration_hours", 24)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.store", "memory")
	v.SetDefault("rate_limit.key_prefix", "candidate-hub:rl:")
	v.SetDefault("rate_limit.default_limit", 300)
	v.SetDefault("rate_limit.default_window", time.Minute)
	v.SetDefault("rate_limit.whitelist", "")
	v.SetDefault("rate_limit.blacklist", "")

	v.SetDefault("retry.concurrency", 5)
	v.SetDefault("retry.dispatch_timeout", 2*time.Minute)

	v.SetDefault("uploads.max_file_size", MaxUploadSize)

	v.SetDefault("saved_searches.max_per_user", 20)

	v.SetDefault("health.deadline_critical_days", 3)
	v.SetDefault("health.stuck_critical", 3)
	v.SetDefault("health.stuck_warning", 1)
	v.SetDefault("health.open_critical_days", 60)
	v.SetDefault("health.open_warning_days", 30)
	v.SetDefault("health.stuck_idle_days", 7)

	v.SetDefault("sweep.processing_timeout", 30*time.Minute)
	v.SetDefault("sweep.queued_timeout", 10*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads configuration. configFile may be empty, in which case config.yaml is looked up
// in ./configs and the working directory and is optional. A .env file in the working
// directory is loaded first without overriding variables already set.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges. Settings only some commands need are checked by
// ValidateServe.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Worker.Timeout <= 0 {
		errs = append(errs, errors.New("worker.timeout must be positive"))
	}
	if err := c.JWT.validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required when rate_limit.store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("rate_limit.store must be memory or redis, got %q", c.RateLimit.Store))
	}
	if c.RateLimit.DefaultLimit < 0 {
		errs = append(errs, errors.New("rate_limit.default_limit must be non-negative"))
	}
	if c.RateLimit.DefaultWindow <= 0 {
		errs = append(errs, errors.New("rate_limit.default_window must be positive"))
	}

	if c.Retry.Concurrency < 1 || c.Retry.Concurrency > 10 {
		errs = append(errs, fmt.Errorf("retry.concurrency must be between 1 and 10, got %d", c.Retry.Concurrency))
	}
	if c.Uploads.MaxFileSize <= 0 || c.Uploads.MaxFileSize > MaxUploadSize {
		errs = append(errs, fmt.Errorf("uploads.max_file_size must be between 1 and %d bytes", MaxUploadSize))
	}
	if c.SavedSearches.MaxPerUser < 1 {
		errs = append(errs, errors.New("saved_searches.max_per_user must be at least 1"))
	}

	h := c.Health
	if h.StuckWarning < 1 || h.StuckCritical < h.StuckWarning {
		errs = append(errs, errors.New("health.stuck_warning must be at least 1 and not above health.stuck_critical"))
	}
	if h.OpenWarningDays < 1 || h.OpenCriticalDays < h.OpenWarningDays {
		errs = append(errs, errors.New("health.open_warning_days must be at least 1 and not above health.open_critical_days"))
	}
	if h.DeadlineCriticalDays < 0 || h.StuckIdleDays < 1 {
		errs = append(errs, errors.New("health.deadline_critical_days must be non-negative and health.stuck_idle_days positive"))
	}

	if c.Sweep.ProcessingTimeout <= 0 || c.Sweep.QueuedTimeout <= 0 {
		errs = append(errs, errors.New("sweep timeouts must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateServe checks the settings the API server cannot start without.
func (c *Config) ValidateServe() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Worker.URL == "" {
		errs = append(errs, errors.New("WORKER_URL is required"))
	}
	return errors.Join(errs...)
}

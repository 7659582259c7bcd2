package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/medibook/realtime/internal/envutil"
	"github.com/medibook/realtime/internal/slogging"
	"gopkg.in/yaml.v3"
)

// Config holds all client configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds the remote API endpoint configuration
type ServerConfig struct {
	// BaseURL is the booking API origin, http(s) or ws(s) scheme
	BaseURL          string        `yaml:"base_url" env:"SERVER_BASE_URL"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"SERVER_HANDSHAKE_TIMEOUT"`
}

// NotificationsConfig holds notification delivery tuning
type NotificationsConfig struct {
	// RetryInterval is the fixed reconnection interval while disconnected
	RetryInterval time.Duration `yaml:"retry_interval" env:"NOTIFICATIONS_RETRY_INTERVAL"`
	// DedupWindow is the time window within which two frames carrying the same
	// category and appointment id are considered the same business event
	DedupWindow time.Duration `yaml:"dedup_window" env:"NOTIFICATIONS_DEDUP_WINDOW"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level" env:"LOGGING_LEVEL"`
	IsDev            bool   `yaml:"is_dev" env:"LOGGING_IS_DEV"`
	LogDir           string `yaml:"log_dir" env:"LOGGING_LOG_DIR"`
	MaxAgeDays       int    `yaml:"max_age_days" env:"LOGGING_MAX_AGE_DAYS"`
	MaxSizeMB        int    `yaml:"max_size_mb" env:"LOGGING_MAX_SIZE_MB"`
	MaxBackups       int    `yaml:"max_backups" env:"LOGGING_MAX_BACKUPS"`
	AlsoLogToConsole bool   `yaml:"also_log_to_console" env:"LOGGING_ALSO_LOG_TO_CONSOLE"`
}

// Default returns the configuration defaults used when neither file nor
// environment provides a value
func Default() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:          "http://localhost:8080",
			HandshakeTimeout: 10 * time.Second,
		},
		Notifications: NotificationsConfig{
			RetryInterval: 5 * time.Second,
			DedupWindow:   3 * time.Second,
		},
		Logging: LoggingConfig{
			Level:            "info",
			AlsoLogToConsole: true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, in that precedence order (env wins).
// An empty path skips file loading; a missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 - path is operator supplied
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.BaseURL, "SERVER_BASE_URL")
	setDuration(&c.Server.HandshakeTimeout, "SERVER_HANDSHAKE_TIMEOUT")

	setDuration(&c.Notifications.RetryInterval, "NOTIFICATIONS_RETRY_INTERVAL")
	setDuration(&c.Notifications.DedupWindow, "NOTIFICATIONS_DEDUP_WINDOW")

	setString(&c.Logging.Level, "LOGGING_LEVEL")
	setBool(&c.Logging.IsDev, "LOGGING_IS_DEV")
	setString(&c.Logging.LogDir, "LOGGING_LOG_DIR")
	setInt(&c.Logging.MaxAgeDays, "LOGGING_MAX_AGE_DAYS")
	setInt(&c.Logging.MaxSizeMB, "LOGGING_MAX_SIZE_MB")
	setInt(&c.Logging.MaxBackups, "LOGGING_MAX_BACKUPS")
	setBool(&c.Logging.AlsoLogToConsole, "LOGGING_ALSO_LOG_TO_CONSOLE")
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if c.Notifications.RetryInterval <= 0 {
		return fmt.Errorf("notifications.retry_interval must be positive, got %s", c.Notifications.RetryInterval)
	}
	if c.Notifications.DedupWindow < 0 {
		return fmt.Errorf("notifications.dedup_window must not be negative, got %s", c.Notifications.DedupWindow)
	}
	return nil
}

// SloggingConfig converts the logging section into the slogging package config
func (c *Config) SloggingConfig() slogging.Config {
	return slogging.Config{
		Level:            slogging.ParseLogLevel(c.Logging.Level),
		IsDev:            c.Logging.IsDev,
		LogDir:           c.Logging.LogDir,
		MaxAgeDays:       c.Logging.MaxAgeDays,
		MaxSizeMB:        c.Logging.MaxSizeMB,
		MaxBackups:       c.Logging.MaxBackups,
		AlsoLogToConsole: c.Logging.AlsoLogToConsole,
	}
}

func setString(target *string, key string) {
	if v := envutil.Get(key, ""); v != "" {
		*target = v
	}
}

func setBool(target *bool, key string) {
	if v := envutil.Get(key, ""); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*target = parsed
		} else {
			slogging.Get().Warn("Invalid boolean for %s: %s", key, v)
		}
	}
}

func setInt(target *int, key string) {
	if v := envutil.Get(key, ""); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*target = parsed
		} else {
			slogging.Get().Warn("Invalid integer for %s: %s", key, v)
		}
	}
}

func setDuration(target *time.Duration, key string) {
	if v := envutil.Get(key, ""); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*target = parsed
		} else {
			slogging.Get().Warn("Invalid duration for %s: %s", key, v)
		}
	}
}

package config

import (
	"os"
	"time"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/extractor"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
)

// Default values for configuration.
const (
	DefaultTimezone        = "Local"
	DefaultMaxBatch        = 100
	DefaultListenAddr      = ":5000"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStorePath       = "tasks.db"
	DefaultWebhookTimeout  = 10 * time.Second
)

// Environment variable names.
const (
	EnvTimezone   = "ACC_TIMEZONE"
	EnvDBPath     = "ACC_DB_PATH"
	EnvListenAddr = "ACC_LISTEN_ADDR"
	EnvLogLevel   = "ACC_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timezone:   DefaultTimezone,
		Vocabulary: extractor.DefaultVocabulary(),
		Limits: LimitsConfig{
			DeadlineContext: extractor.DefaultContextLimit,
			FocusWindow:     extractor.DefaultFocusWindow,
			MaxBatch:        DefaultMaxBatch,
		},
		Server: ServerConfig{
			ListenAddr:      DefaultListenAddr,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			CORSOrigins:     []string{"*"},
		},
		Store: StoreConfig{Path: DefaultStorePath},
		Log:   logging.LogConfig{Level: "info", Format: "json"},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if tz := os.Getenv(EnvTimezone); tz != "" {
		c.Timezone = tz
	}
	if path := os.Getenv(EnvDBPath); path != "" {
		c.Store.Path = path
	}
	if addr := os.Getenv(EnvListenAddr); addr != "" {
		c.Server.ListenAddr = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

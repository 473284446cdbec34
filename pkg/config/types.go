// Package config provides configuration loading and validation for acc.
package config

import (
	"time"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/extractor"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Timezone is the IANA zone used as "now" for relative dates.
	// "Local" uses the host zone.
	Timezone string `yaml:"timezone"`

	// PreferFuture resolves ambiguous dates to the next occurrence.
	PreferFuture *bool `yaml:"prefer_future,omitempty"`

	Vocabulary extractor.Vocabulary `yaml:"vocabulary,omitempty"`
	Limits     LimitsConfig         `yaml:"limits"`
	Server     ServerConfig         `yaml:"server"`
	Store      StoreConfig          `yaml:"store"`
	Log        logging.LogConfig    `yaml:"log"`
	Webhooks   []WebhookConfig      `yaml:"webhooks,omitempty"`

	// location is the loaded Timezone (populated during validation).
	location *time.Location
}

// Location returns the validated time zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// PreferFutureDates reports the effective prefer_future setting (default
// true).
func (c *Config) PreferFutureDates() bool {
	return c.PreferFuture == nil || *c.PreferFuture
}

// LimitsConfig bounds text spans and batch work.
type LimitsConfig struct {
	// DeadlineContext is the number of characters kept after a trigger.
	DeadlineContext int `yaml:"deadline_context"`

	// FocusWindow is the maximum focused span length.
	FocusWindow int `yaml:"focus_window"`

	// MaxBatch is the largest batch accepted by the HTTP API.
	MaxBatch int `yaml:"max_batch"`

	// Workers bounds batch concurrency. 0 means one per CPU.
	Workers int `yaml:"workers"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. "*" allows any.
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// StoreConfig configures the task database.
type StoreConfig struct {
	// Path is the SQLite file. ":memory:" keeps tasks in memory.
	Path string `yaml:"path"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnDeadlines fires only when a message resolved to a
	// date (default).
	WebhookTriggerOnDeadlines WebhookTrigger = "on_deadlines"
	// WebhookTriggerAlways fires after every batch.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending batch reports.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty"`

	// Trigger defaults to "on_deadlines".
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

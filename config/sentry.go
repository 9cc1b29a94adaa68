package config

import "time"

// SentryConfig controls error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN         string `json:"dsn"`
	Environment string `json:"environment"`
	Release     string `json:"release"`
	// ServerName tags every event with the reporting instance.
	ServerName       string  `json:"server_name"`
	TracesSampleRate float64 `json:"traces_sample_rate" validate:"gte=0,lte=1"`
	AttachStacktrace bool    `json:"attach_stacktrace"`
	Debug            bool    `json:"debug"`
	// FlushTimeoutSeconds bounds how long shutdown waits for queued events.
	FlushTimeoutSeconds int `json:"flush_timeout_seconds" validate:"gte=0"`
}

// SetDefaults applies sane defaults.
func (c *SentryConfig) SetDefaults() {
	if c.ServerName == "" {
		c.ServerName = "howareya"
	}
	if c.FlushTimeoutSeconds == 0 {
		c.FlushTimeoutSeconds = 2
	}
}

// FlushTimeout returns FlushTimeoutSeconds as a duration.
func (c SentryConfig) FlushTimeout() time.Duration {
	return time.Duration(c.FlushTimeoutSeconds) * time.Second
}

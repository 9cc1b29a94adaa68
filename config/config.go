// Package config loads the service configuration from a YAML or JSON file
// with HOWAREYA_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/raikasdev/howareya/core/booking"
	"github.com/raikasdev/howareya/core/metrics"
	"github.com/raikasdev/howareya/infra/calcom"
	"github.com/raikasdev/howareya/trigger"
)

// EnvPrefix marks environment overrides. "__" separates nesting levels,
// e.g. HOWAREYA_TRIGGER__SECRET sets trigger.secret.
const EnvPrefix = "HOWAREYA_"

type Config struct {
	CalCom  calcom.Config  `json:"calcom"`
	Booking booking.Config `json:"booking"`
	Store   StoreConfig    `json:"store"`
	Trigger trigger.Config `json:"trigger"`
	Metrics metrics.Config `json:"metrics"`
	Sentry  SentryConfig   `json:"sentry"`
	Log     LogConfig      `json:"log"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "howareya.db"
	}
}

// LogConfig controls process-wide log output.
type LogConfig struct {
	Level  string `json:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Pretty bool   `json:"pretty"`
}

// SetDefaults applies sane defaults.
func (c *LogConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

var validate = validator.New()

// Load reads path, applies environment overrides and validates the
// result. An empty path loads from the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.CalCom.SetDefaults()
	c.Booking.SetDefaults()
	c.Store.SetDefaults()
	c.Trigger.SetDefaults()
	c.Sentry.SetDefaults()
	c.Log.SetDefaults()
}

// Validate runs struct tag validation and the per-section checks.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return errors.Join(
		c.Booking.Validate(),
		c.Trigger.Validate(),
	)
}

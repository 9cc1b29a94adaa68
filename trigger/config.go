package trigger

import (
	"errors"
	"fmt"
	"time"

	"github.com/raikasdev/howareya/infra/mqtt"
)

const (
	DefaultCron     = "0 12 * * *"
	DefaultTimezone = "UTC"
	DefaultAddress  = ":8080"
)

// Config configures the cron sweep, the HTTP surface and the optional MQTT
// subscription.
type Config struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
	Address  string `json:"address"`
	// Secret is the bearer credential required by the HTTP endpoints.
	Secret string `json:"secret" validate:"required"`
	// RunTimeoutSeconds bounds a single cron run. 0 means no bound.
	RunTimeoutSeconds int          `json:"run_timeout_seconds" validate:"gte=0"`
	MQTT              *mqtt.Config `json:"mqtt,omitempty"`
}

// SetDefaults fills in unset fields.
func (c *Config) SetDefaults() {
	if c.Cron == "" {
		c.Cron = DefaultCron
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.MQTT != nil {
		c.MQTT.SetDefaults()
	}
}

// Validate checks the schedule and time zone.
func (c Config) Validate() error {
	if c.Secret == "" {
		return errors.New("trigger.secret is required")
	}
	if _, err := cronParser.Parse(c.Cron); err != nil {
		return fmt.Errorf("trigger.cron %q: %w", c.Cron, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("trigger.timezone %q: %w", c.Timezone, err)
	}
	if c.MQTT != nil && c.MQTT.Broker == "" {
		return errors.New("trigger.mqtt.broker is required when mqtt is configured")
	}
	return nil
}

// RunTimeout returns the cron run bound, or 0.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

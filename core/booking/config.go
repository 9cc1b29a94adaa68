package booking

import (
	"fmt"
	"time"
)

const defaultNotes = "Automatically scheduled using howareya"

// persistTimeout bounds the write that records a remote booking.
const persistTimeout = 10 * time.Second

// Config holds the booking policy knobs.
type Config struct {
	// LeadDays is how far ahead of now the search window starts.
	LeadDays int `json:"lead_days" validate:"gte=0"`
	// HorizonDays is how far ahead of now the search window ends.
	HorizonDays int `json:"horizon_days" validate:"gte=0"`
	// DefaultDurationMinutes is used when the event type reports no length.
	DefaultDurationMinutes int    `json:"default_duration_minutes" validate:"gte=0"`
	Notes                  string `json:"notes"`
	// MaxParallelContacts bounds concurrent contacts per user; 0 is unbounded.
	MaxParallelContacts int `json:"max_parallel_contacts" validate:"gte=0"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.LeadDays == 0 {
		c.LeadDays = 2
	}
	if c.HorizonDays == 0 {
		c.HorizonDays = 10
	}
	if c.DefaultDurationMinutes == 0 {
		c.DefaultDurationMinutes = 15
	}
	if c.Notes == "" {
		c.Notes = defaultNotes
	}
	if c.MaxParallelContacts == 0 {
		c.MaxParallelContacts = 8
	}
}

// Validate checks that the search window is not empty.
func (c Config) Validate() error {
	if c.HorizonDays <= c.LeadDays {
		return fmt.Errorf("horizon_days (%d) must be greater than lead_days (%d)", c.HorizonDays, c.LeadDays)
	}
	return nil
}

// DefaultDuration returns DefaultDurationMinutes as a duration.
func (c Config) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationMinutes) * time.Minute
}

package calcom

import "time"

const (
	DefaultAPIURL    = "https://api.cal.com/api/v1"
	DefaultPublicURL = "https://cal.com/api/trpc/public"
)

// Config holds connection settings for the scheduling service.
type Config struct {
	// APIURL is the base of the authenticated REST API.
	APIURL string `json:"api_url" validate:"omitempty,url"`
	// PublicURL is the base of the unauthenticated booking page API.
	PublicURL      string  `json:"public_url" validate:"omitempty,url"`
	TimeoutSeconds int     `json:"timeout_seconds" validate:"gte=0"`
	RatePerSecond  float64 `json:"rate_per_second" validate:"gte=0"`
	Burst          int     `json:"burst" validate:"gte=0"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.PublicURL == "" {
		c.PublicURL = DefaultPublicURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 5
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
}

// Timeout returns the per-request timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Frequency is how often a contact should be met.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

// TimePreference is a same-day band of local hours in which a meeting may start.
type TimePreference string

const (
	PreferAny       TimePreference = "any"
	PreferMorning   TimePreference = "morning"
	PreferLunchtime TimePreference = "lunchtime"
	PreferAfternoon TimePreference = "afternoon"
	PreferEvening   TimePreference = "evening"
)

// Valid reports whether p is a known preference. Empty means any.
func (p TimePreference) Valid() bool {
	switch p {
	case "", PreferAny, PreferMorning, PreferLunchtime, PreferAfternoon, PreferEvening:
		return true
	}
	return false
}

// Allows reports whether a meeting starting at the given local hour (0-23)
// falls inside the preference band. Unknown preferences behave like "any".
func (p TimePreference) Allows(hour int) bool {
	switch p {
	case PreferMorning:
		return hour < 11
	case PreferLunchtime:
		return hour >= 11 && hour < 14
	case PreferAfternoon:
		return hour >= 14 && hour < 17
	case PreferEvening:
		return hour >= 17
	default:
		return true
	}
}

// Contact is a recurring-meeting intent owned by a user.
type Contact struct {
	ID             int64
	OwnerID        string
	Name           string
	MeetingURL     string
	Frequency      Frequency
	TimePreference TimePreference
	// LatestMeeting is nil when the contact has never been booked.
	LatestMeeting *time.Time
	CreatedAt     time.Time
}

// Validate checks the fields a contact needs before it can be stored.
func (c Contact) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("contact %d: owner is required", c.ID)
	}
	if !c.Frequency.Valid() {
		return fmt.Errorf("contact %d: unknown frequency %q", c.ID, c.Frequency)
	}
	if !c.TimePreference.Valid() {
		return fmt.Errorf("contact %d: unknown time preference %q", c.ID, c.TimePreference)
	}
	_, _, err := c.BookingPage()
	return err
}

// BookingPage returns the organizer username and event slug encoded in the
// first two non-empty path segments of the meeting URL.
func (c Contact) BookingPage() (username, eventSlug string, err error) {
	if strings.TrimSpace(c.MeetingURL) == "" {
		return "", "", fmt.Errorf("contact %d: empty meeting url", c.ID)
	}
	u, err := url.Parse(c.MeetingURL)
	if err != nil {
		return "", "", fmt.Errorf("contact %d: parse meeting url: %w", c.ID, err)
	}
	var segs []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) < 2 {
		return "", "", fmt.Errorf("contact %d: meeting url %q has no username/event path", c.ID, c.MeetingURL)
	}
	return segs[0], segs[1], nil
}

// User owns contacts. An empty APIKey means the user has not connected a
// scheduling account.
type User struct {
	ID     string
	Name   string
	Email  string
	APIKey string
}

// Connected reports whether the user has an API key.
func (u User) Connected() bool { return strings.TrimSpace(u.APIKey) != "" }

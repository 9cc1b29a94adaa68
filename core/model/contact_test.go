package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactBookingPage(t *testing.T) {
	c := Contact{ID: 1, MeetingURL: "https://cal.com/alice/30min"}
	user, slug, err := c.BookingPage()
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "30min", slug)

	c.MeetingURL = "https://cal.com//bob//coffee/extra?x=1"
	user, slug, err = c.BookingPage()
	require.NoError(t, err)
	assert.Equal(t, "bob", user)
	assert.Equal(t, "coffee", slug)
}

func TestContactBookingPageMalformed(t *testing.T) {
	for _, raw := range []string{"", "https://cal.com", "https://cal.com/", "https://cal.com/alice", "://bad"} {
		c := Contact{ID: 7, MeetingURL: raw}
		_, _, err := c.BookingPage()
		assert.Error(t, err, raw)
	}
}

func TestTimePreferenceAllows(t *testing.T) {
	cases := []struct {
		pref TimePreference
		hour int
		want bool
	}{
		{PreferMorning, 10, true},
		{PreferMorning, 11, false},
		{PreferLunchtime, 11, true},
		{PreferLunchtime, 13, true},
		{PreferLunchtime, 14, false},
		{PreferAfternoon, 14, true},
		{PreferAfternoon, 17, false},
		{PreferEvening, 16, false},
		{PreferEvening, 17, true},
		{PreferAny, 3, true},
		{TimePreference("brunch"), 3, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.pref.Allows(c.hour), "%s@%d", c.pref, c.hour)
	}
}

func TestDateRangeContains(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	r := DateRange{Start: start, End: start.Add(3 * time.Hour)}
	assert.True(t, r.Contains(start, 15*time.Minute))
	assert.True(t, r.Contains(start.Add(165*time.Minute), 15*time.Minute))
	assert.False(t, r.Contains(start.Add(-time.Minute), 15*time.Minute))
	assert.False(t, r.Contains(start.Add(170*time.Minute), 15*time.Minute))
}

func TestEventTypeDuration(t *testing.T) {
	assert.Equal(t, 15*time.Minute, EventType{}.Duration(15*time.Minute))
	assert.Equal(t, 45*time.Minute, EventType{DurationMinutes: 45}.Duration(15*time.Minute))
}

func TestUserConnected(t *testing.T) {
	assert.False(t, User{ID: "u"}.Connected())
	assert.False(t, User{ID: "u", APIKey: "  "}.Connected())
	assert.True(t, User{ID: "u", APIKey: "cal_live_x"}.Connected())
}

func TestContactValidate(t *testing.T) {
	ok := Contact{OwnerID: "u1", MeetingURL: "https://cal.com/alice/coffee", Frequency: FrequencyMonthly}
	require.NoError(t, ok.Validate())

	withPref := ok
	withPref.TimePreference = PreferEvening
	require.NoError(t, withPref.Validate())

	cases := map[string]func(*Contact){
		"no owner":       func(c *Contact) { c.OwnerID = "" },
		"bad frequency":  func(c *Contact) { c.Frequency = "daily" },
		"bad preference": func(c *Contact) { c.TimePreference = "midnight" },
		"no event slug":  func(c *Contact) { c.MeetingURL = "https://cal.com/alice" },
		"empty url":      func(c *Contact) { c.MeetingURL = "" },
	}
	for name, mutate := range cases {
		c := ok
		mutate(&c)
		assert.Error(t, c.Validate(), name)
	}
}

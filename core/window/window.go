// Package window decides when a contact is due for a new meeting and which
// time range slot queries should cover.
package window

import (
	"math"
	"time"

	"github.com/raikasdev/howareya/core/model"
)

const day = 24 * time.Hour

// thresholds are shorter than the nominal period so a meeting can be
// rebooked a little early.
var thresholds = map[model.Frequency]int{
	model.FrequencyWeekly:    4,
	model.FrequencyBiweekly:  11,
	model.FrequencyMonthly:   25,
	model.FrequencyQuarterly: 85,
	model.FrequencyAnnually:  350,
}

// Threshold returns the minimum number of whole days between meetings for f.
func Threshold(f model.Frequency) (int, bool) {
	d, ok := thresholds[f]
	return d, ok
}

// DaysSince returns the elapsed days from t to now rounded to the nearest
// whole day, halves rounding up.
func DaysSince(t, now time.Time) int {
	return int(math.Floor(now.Sub(t).Hours()/24 + 0.5))
}

// IsDue reports whether a contact last met at latest should be booked again.
func IsDue(latest *time.Time, f model.Frequency, force bool, now time.Time) bool {
	if force || latest == nil {
		return true
	}
	threshold, ok := Threshold(f)
	if !ok {
		return true
	}
	return DaysSince(*latest, now) >= threshold
}

// Calculator bounds slot searches to [now+Lead, now+Horizon).
type Calculator struct {
	Lead    time.Duration
	Horizon time.Duration
}

// NewCalculator builds a Calculator from whole-day offsets. Non-positive
// values fall back to 2 and 10 days.
func NewCalculator(leadDays, horizonDays int) Calculator {
	if leadDays <= 0 {
		leadDays = 2
	}
	if horizonDays <= leadDays {
		horizonDays = leadDays + 8
	}
	return Calculator{Lead: time.Duration(leadDays) * day, Horizon: time.Duration(horizonDays) * day}
}

// SearchWindow returns the lookahead range used for free/busy and slot queries.
func (c Calculator) SearchWindow(now time.Time) (from, to time.Time) {
	return now.Add(c.Lead), now.Add(c.Horizon)
}

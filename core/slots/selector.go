// Package slots picks a meeting start time from the candidate slots
// published for an event.
package slots

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/raikasdev/howareya/core/model"
)

// PickFunc returns an index in [0, n). It must be safe for concurrent use
// when the Selector is shared between goroutines.
type PickFunc func(n int) int

// Selector filters candidate slots against organizer availability and the
// contact's time preference, then picks one of the survivors.
type Selector struct {
	pick PickFunc
}

// NewSelector returns a Selector using pick for tie-breaking. A nil pick
// selects uniformly at random.
func NewSelector(pick PickFunc) *Selector {
	if pick == nil {
		pick = rand.IntN
	}
	return &Selector{pick: pick}
}

// Filter returns the candidates that fit entirely inside one of the free
// ranges and whose local start hour in loc satisfies pref, in ascending order.
func (s *Selector) Filter(candidates []time.Time, free []model.DateRange, pref model.TimePreference, loc *time.Location, d time.Duration) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	var out []time.Time
	for _, c := range candidates {
		if !fits(c, free, d) {
			continue
		}
		if !pref.Allows(c.In(loc).Hour()) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Select returns a qualifying slot, or false when none qualifies.
func (s *Selector) Select(candidates []time.Time, free []model.DateRange, pref model.TimePreference, loc *time.Location, d time.Duration) (time.Time, bool) {
	ok := s.Filter(candidates, free, pref, loc, d)
	if len(ok) == 0 {
		return time.Time{}, false
	}
	i := s.pick(len(ok))
	if i < 0 || i >= len(ok) {
		i = 0
	}
	return ok[i], true
}

func fits(t time.Time, free []model.DateRange, d time.Duration) bool {
	for _, r := range free {
		if r.Contains(t, d) {
			return true
		}
	}
	return false
}

package model

import "time"

// Outcome classifies what happened to a single contact during a run.
type Outcome string

const (
	OutcomeBooked        Outcome = "booked"
	OutcomeNotDue        Outcome = "not_due"
	OutcomeMalformedURL  Outcome = "malformed_url"
	OutcomeUnavailable   Outcome = "unavailable"
	OutcomeNoSlot        Outcome = "no_slot"
	OutcomeBookingFailed Outcome = "booking_failed"
	OutcomePersistFailed Outcome = "persist_failed"
	OutcomeNotConnected  Outcome = "not_connected"
	OutcomePanic         Outcome = "panic"
)

// Outcomes lists every outcome in a stable order.
var Outcomes = []Outcome{
	OutcomeBooked, OutcomeNotDue, OutcomeMalformedURL, OutcomeUnavailable,
	OutcomeNoSlot, OutcomeBookingFailed, OutcomePersistFailed,
	OutcomeNotConnected, OutcomePanic,
}

// ContactResult is the per-contact result of a run.
type ContactResult struct {
	ContactID int64
	OwnerID   string
	Outcome   Outcome
	// Start is set when a meeting was booked.
	Start  time.Time
	Reason string
}

// RunReport summarizes one invocation of the booking engine.
type RunReport struct {
	ID        string
	Trigger   string
	Forced    bool
	StartedAt time.Time
	Duration  time.Duration
	Results   []ContactResult
}

// Count returns how many results carry outcome o.
func (r RunReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Booked returns the results that produced a booking.
func (r RunReport) Booked() []ContactResult {
	var out []ContactResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeBooked {
			out = append(out, res)
		}
	}
	return out
}

// ScheduleRequest asks for an immediate forced run of one contact.
type ScheduleRequest struct {
	ContactID int64  `json:"id" validate:"required,gt=0"`
	OwnerID   string `json:"userId" validate:"required"`
}

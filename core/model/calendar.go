package model

import "time"

// Profile is the organizer identity behind an API key.
type Profile struct {
	UserID   string
	TimeZone string
	Locale   string
	Email    string
	Name     string
}

// EventType describes a public booking page event.
type EventType struct {
	ID              int64
	Title           string
	DurationMinutes int
}

// Duration returns the event length, falling back to def when the event
// reports none.
func (e EventType) Duration(def time.Duration) time.Duration {
	if e.DurationMinutes <= 0 {
		return def
	}
	return time.Duration(e.DurationMinutes) * time.Minute
}

// DateRange is a half-open [Start, End) interval in which the organizer is free.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether a meeting of length d starting at t fits in r.
func (r DateRange) Contains(t time.Time, d time.Duration) bool {
	return !t.Before(r.Start) && !t.Add(d).After(r.End)
}

// BookingRequest carries everything needed to create a booking.
type BookingRequest struct {
	EventTypeID     int64
	Start           time.Time
	DurationMinutes int
	AttendeeName    string
	AttendeeEmail   string
	TimeZone        string
	Locale          string
	Notes           string
	// IdempotencyKey is attached to the booking metadata so duplicate
	// bookings can be reconciled by an operator.
	IdempotencyKey string
}

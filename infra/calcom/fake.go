package calcom

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raikasdev/howareya/core/calapi"
	"github.com/raikasdev/howareya/core/model"
)

// Fake is an in-memory calapi.Client used by tests and dry runs.
type Fake struct {
	mu sync.Mutex

	// Profiles maps API keys to organizer profiles.
	Profiles map[string]model.Profile
	// FreeBusy maps organizer user ids to their open ranges.
	FreeBusy map[string][]model.DateRange
	// EventTypes maps "username/slug" to event types.
	EventTypes map[string]model.EventType
	// Slots maps "username/slug" to published start times.
	Slots map[string][]time.Time
	// BookingErr, when set, is returned by CreateBooking.
	BookingErr error
	// OnBook runs before a booking is recorded.
	OnBook func(req model.BookingRequest)

	Bookings []model.BookingRequest
	calls    map[string]int
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		Profiles:   map[string]model.Profile{},
		FreeBusy:   map[string][]model.DateRange{},
		EventTypes: map[string]model.EventType{},
		Slots:      map[string][]time.Time{},
		calls:      map[string]int{},
	}
}

var _ calapi.Client = (*Fake)(nil)

func key(username, slug string) string { return username + "/" + slug }

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Booked returns a copy of the recorded bookings.
func (f *Fake) Booked() []model.BookingRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.BookingRequest(nil), f.Bookings...)
}

func (f *Fake) GetProfile(_ context.Context, apiKey string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["profile"]++
	p, ok := f.Profiles[apiKey]
	if !ok {
		return model.Profile{}, fmt.Errorf("%w: profile: unknown api key", calapi.ErrUnavailable)
	}
	return p, nil
}

func (f *Fake) GetFreeBusy(_ context.Context, _, userID string, _, _ time.Time) ([]model.DateRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["availability"]++
	r, ok := f.FreeBusy[userID]
	if !ok {
		return nil, fmt.Errorf("%w: availability: unknown user", calapi.ErrUnavailable)
	}
	return append([]model.DateRange(nil), r...), nil
}

func (f *Fake) GetEventType(_ context.Context, username, eventSlug string) (model.EventType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["event_type"]++
	ev, ok := f.EventTypes[key(username, eventSlug)]
	if !ok {
		return model.EventType{}, fmt.Errorf("%w: event_type: not found", calapi.ErrUnavailable)
	}
	return ev, nil
}

func (f *Fake) GetCandidateSlots(_ context.Context, username, eventSlug string, from, to time.Time, _ string) ([]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["slots"]++
	all, ok := f.Slots[key(username, eventSlug)]
	if !ok {
		return nil, fmt.Errorf("%w: slots: not found", calapi.ErrUnavailable)
	}
	var out []time.Time
	for _, s := range all {
		if !s.Before(from) && s.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *Fake) CreateBooking(_ context.Context, _ string, req model.BookingRequest) error {
	f.mu.Lock()
	f.calls["booking"]++
	hook, err := f.OnBook, f.BookingErr
	f.mu.Unlock()
	if hook != nil {
		hook(req)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", calapi.ErrBookingFailed, err)
	}
	f.mu.Lock()
	f.Bookings = append(f.Bookings, req)
	f.mu.Unlock()
	return nil
}

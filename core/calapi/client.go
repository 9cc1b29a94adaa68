// Package calapi defines the contract the booking engine needs from the
// external scheduling service.
//
// Every read operation is best effort: transport failures, non-2xx
// responses and responses missing required fields are reported as errors
// wrapping ErrUnavailable, and callers skip the affected contact or user.
package calapi

import (
	"context"
	"errors"
	"time"

	"github.com/raikasdev/howareya/core/model"
)

var (
	// ErrUnavailable marks data that could not be fetched or decoded.
	ErrUnavailable = errors.New("scheduling api unavailable")
	// ErrBookingFailed marks a booking the remote end did not accept.
	ErrBookingFailed = errors.New("booking failed")
)

// Client is the scheduling service boundary.
type Client interface {
	// GetProfile resolves the organizer behind apiKey.
	GetProfile(ctx context.Context, apiKey string) (model.Profile, error)
	// GetFreeBusy lists the organizer's open ranges within [from, to).
	GetFreeBusy(ctx context.Context, apiKey, userID string, from, to time.Time) ([]model.DateRange, error)
	// GetEventType looks up a public event by owner username and slug.
	GetEventType(ctx context.Context, username, eventSlug string) (model.EventType, error)
	// GetCandidateSlots lists published bookable start times.
	GetCandidateSlots(ctx context.Context, username, eventSlug string, from, to time.Time, timeZone string) ([]time.Time, error)
	// CreateBooking books a slot. It is not idempotent remotely.
	CreateBooking(ctx context.Context, apiKey string, req model.BookingRequest) error
}

// IsUnavailable reports whether err means the data could not be obtained.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

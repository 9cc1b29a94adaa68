package calcom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikasdev/howareya/core/calapi"
	"github.com/raikasdev/howareya/core/model"
)

func TestFakeSlotsWindow(t *testing.T) {
	f := NewFake()
	base := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
	f.Slots["alice/coffee"] = []time.Time{base, base.Add(time.Hour), base.Add(48 * time.Hour)}

	got, err := f.GetCandidateSlots(context.Background(), "alice", "coffee", base, base.Add(24*time.Hour), "UTC")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, f.Calls("slots"))

	_, err = f.GetCandidateSlots(context.Background(), "bob", "coffee", base, base, "UTC")
	assert.ErrorIs(t, err, calapi.ErrUnavailable)
}

func TestFakeBooking(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.CreateBooking(context.Background(), "k", model.BookingRequest{EventTypeID: 1}))
	f.BookingErr = errors.New("slot taken")
	err := f.CreateBooking(context.Background(), "k", model.BookingRequest{EventTypeID: 2})
	assert.ErrorIs(t, err, calapi.ErrBookingFailed)
	assert.Len(t, f.Booked(), 1)
	assert.Equal(t, 2, f.Calls("booking"))
}

// Package store defines the persistence contracts used by the booking
// engine and an in-memory implementation for tests and local runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/raikasdev/howareya/core/model"
)

var (
	// ErrNotFound is returned when a user or contact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStale is returned when a write would move LatestMeeting backwards.
	ErrStale = errors.New("latest meeting would move backwards")
)

// ContactStore persists contacts.
type ContactStore interface {
	ListAll(ctx context.Context) ([]model.Contact, error)
	// ListByIDAndOwner returns at most one contact, and only when it
	// belongs to ownerID.
	ListByIDAndOwner(ctx context.Context, id int64, ownerID string) ([]model.Contact, error)
	// SetLatestMeeting moves the contact's LatestMeeting forward to t.
	// It returns ErrStale if the stored value is already later than t.
	SetLatestMeeting(ctx context.Context, id int64, t time.Time) error
}

// UserStore resolves and updates users.
type UserStore interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	SetAPIKey(ctx context.Context, id, apiKey string) error
}

// Store is the full persistence surface.
type Store interface {
	ContactStore
	UserStore
}

// Snooze resets the due clock of a contact owned by ownerID without
// booking anything.
func Snooze(ctx context.Context, s ContactStore, id int64, ownerID string, now time.Time) error {
	rows, err := s.ListByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return s.SetLatestMeeting(ctx, id, now)
}

// advances reports whether next may replace cur.
func advances(cur *time.Time, next time.Time) bool {
	return cur == nil || !next.Before(*cur)
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/raikasdev/howareya/core/model"
)

// MemoryStore keeps users and contacts in memory.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]model.User
	contacts map[int64]model.Contact
	writes   int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]model.User{}, contacts: map[int64]model.Contact{}}
}

// PutUser inserts or replaces a user.
func (s *MemoryStore) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutContact inserts or replaces a contact.
func (s *MemoryStore) PutContact(c model.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = cloneContact(c)
}

// Contact returns a copy of the stored contact.
func (s *MemoryStore) Contact(id int64) (model.Contact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	return cloneContact(c), ok
}

// Writes returns how many LatestMeeting writes succeeded.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *MemoryStore) ListAll(context.Context) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, cloneContact(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListByIDAndOwner(_ context.Context, id int64, ownerID string) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.OwnerID != ownerID {
		return nil, nil
	}
	return []model.Contact{cloneContact(c)}, nil
}

func (s *MemoryStore) SetLatestMeeting(_ context.Context, id int64, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return ErrNotFound
	}
	if !advances(c.LatestMeeting, t) {
		return ErrStale
	}
	t = t.UTC()
	c.LatestMeeting = &t
	s.contacts[id] = c
	s.writes++
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) SetAPIKey(_ context.Context, id, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.APIKey = apiKey
	s.users[id] = u
	return nil
}

func cloneContact(c model.Contact) model.Contact {
	if c.LatestMeeting != nil {
		t := *c.LatestMeeting
		c.LatestMeeting = &t
	}
	return c
}

package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/core/store"
)

type runCall struct {
	ids     []int64
	force   bool
	trigger string
}

type fakeOrch struct {
	mu    sync.Mutex
	calls []runCall
}

func (f *fakeOrch) Run(_ context.Context, contacts []model.Contact, force bool, trigger string) model.RunReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := runCall{force: force, trigger: trigger}
	report := model.RunReport{ID: "run-1", Trigger: trigger, Forced: force, StartedAt: time.Unix(0, 0)}
	for _, ct := range contacts {
		c.ids = append(c.ids, ct.ID)
		report.Results = append(report.Results, model.ContactResult{
			ContactID: ct.ID, OwnerID: ct.OwnerID, Outcome: model.OutcomeBooked,
			Start: time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC),
		})
	}
	f.calls = append(f.calls, c)
	return report
}

func (f *fakeOrch) Calls() []runCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runCall(nil), f.calls...)
}

type brokenStore struct{ store.ContactStore }

func (brokenStore) ListAll(context.Context) ([]model.Contact, error) {
	return nil, errors.New("disk on fire")
}

func (brokenStore) ListByIDAndOwner(context.Context, int64, string) ([]model.Contact, error) {
	return nil, errors.New("disk on fire")
}

func seededStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.PutUser(model.User{ID: "u1", APIKey: "key1"})
	st.PutUser(model.User{ID: "u2", APIKey: "key2"})
	st.PutContact(model.Contact{ID: 1, OwnerID: "u1", MeetingURL: "https://cal.com/alice/coffee", Frequency: model.FrequencyWeekly})
	st.PutContact(model.Contact{ID: 2, OwnerID: "u1", MeetingURL: "https://cal.com/bob/chat", Frequency: model.FrequencyMonthly})
	st.PutContact(model.Contact{ID: 3, OwnerID: "u2", MeetingURL: "https://cal.com/carol/tea", Frequency: model.FrequencyWeekly})
	return st
}

func TestRunnerSweepRunsAllContactsUnforced(t *testing.T) {
	orch := &fakeOrch{}
	r := NewRunner(seededStore(), orch, nil)

	report, err := r.Sweep(context.Background(), SourceCron)
	require.NoError(t, err)
	assert.Len(t, report.Results, 3)

	calls := orch.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []int64{1, 2, 3}, calls[0].ids)
	assert.False(t, calls[0].force)
	assert.Equal(t, SourceCron, calls[0].trigger)
}

func TestRunnerSweepStoreError(t *testing.T) {
	orch := &fakeOrch{}
	r := NewRunner(brokenStore{}, orch, nil)

	_, err := r.Sweep(context.Background(), SourceCron)
	require.Error(t, err)
	assert.Empty(t, orch.Calls())
}

func TestRunnerSingleForcesOneContact(t *testing.T) {
	orch := &fakeOrch{}
	r := NewRunner(seededStore(), orch, nil)

	report, err := r.Single(context.Background(), model.ScheduleRequest{ContactID: 2, OwnerID: "u1"}, SourceHTTP)
	require.NoError(t, err)
	assert.True(t, report.Forced)

	calls := orch.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []int64{2}, calls[0].ids)
	assert.True(t, calls[0].force)
	assert.Equal(t, SourceHTTP, calls[0].trigger)
}

func TestRunnerSingleChecksOwnership(t *testing.T) {
	orch := &fakeOrch{}
	r := NewRunner(seededStore(), orch, nil)

	_, err := r.Single(context.Background(), model.ScheduleRequest{ContactID: 3, OwnerID: "u1"}, SourceHTTP)
	require.ErrorIs(t, err, ErrContactNotFound)

	_, err = r.Single(context.Background(), model.ScheduleRequest{ContactID: 99, OwnerID: "u1"}, SourceHTTP)
	require.ErrorIs(t, err, ErrContactNotFound)
	assert.Empty(t, orch.Calls())
}

func TestRunnerHandler(t *testing.T) {
	orch := &fakeOrch{}
	r := NewRunner(seededStore(), orch, nil)
	h := r.Handler(SourceMQTT)

	require.NoError(t, h(context.Background(), model.ScheduleRequest{ContactID: 1, OwnerID: "u1"}))
	// Unknown contacts are dropped rather than redelivered.
	require.NoError(t, h(context.Background(), model.ScheduleRequest{ContactID: 42, OwnerID: "u1"}))

	calls := orch.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, SourceMQTT, calls[0].trigger)

	broken := NewRunner(brokenStore{}, orch, nil).Handler(SourceMQTT)
	require.Error(t, broken(context.Background(), model.ScheduleRequest{ContactID: 1, OwnerID: "u1"}))
}

// Package booking reconciles contacts against the scheduling service and
// books the meetings that are due.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raikasdev/howareya/core/calapi"
	"github.com/raikasdev/howareya/core/events"
	"github.com/raikasdev/howareya/core/logger"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/core/monitoring"
	"github.com/raikasdev/howareya/core/slots"
	"github.com/raikasdev/howareya/core/store"
	"github.com/raikasdev/howareya/core/window"
	"github.com/raikasdev/howareya/internal/eventbus"
)

// Orchestrator drives a booking run: it groups contacts by owner, loads the
// owner's calendar once and processes that owner's contacts concurrently.
type Orchestrator struct {
	contacts store.ContactStore
	users    store.UserStore
	client   calapi.Client
	selector *slots.Selector
	window   window.Calculator

	defaultDuration time.Duration
	notes           string
	parallel        int

	now   func() time.Time
	newID func() string
	log   logger.Logger
	bus   eventbus.EventBus
	locks *keyedMutex
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSelector replaces the slot selector.
func WithSelector(s *slots.Selector) Option {
	return func(o *Orchestrator) { o.selector = s }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithBus publishes contact and run events on bus.
func WithBus(bus eventbus.EventBus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithIDFunc replaces the generator used for run ids and idempotency keys.
func WithIDFunc(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// NewOrchestrator wires an Orchestrator. cfg is copied and defaulted.
func NewOrchestrator(cfg Config, contacts store.ContactStore, users store.UserStore, client calapi.Client, opts ...Option) *Orchestrator {
	cfg.SetDefaults()
	o := &Orchestrator{
		contacts:        contacts,
		users:           users,
		client:          client,
		selector:        slots.NewSelector(nil),
		window:          window.NewCalculator(cfg.LeadDays, cfg.HorizonDays),
		defaultDuration: cfg.DefaultDuration(),
		notes:           cfg.Notes,
		parallel:        cfg.MaxParallelContacts,
		now:             time.Now,
		newID:           uuid.NewString,
		log:             logger.NopLogger{},
		locks:           newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// userContext is what every contact of one owner shares during a run.
type userContext struct {
	user    model.User
	profile model.Profile
	loc     *time.Location
	free    []model.DateRange
	from    time.Time
	to      time.Time
}

// Run processes contacts once. A contact listed twice is processed once.
// No per-contact failure aborts the run; every contact gets a result.
func (o *Orchestrator) Run(ctx context.Context, contacts []model.Contact, force bool, trigger string) model.RunReport {
	start := o.now()
	report := model.RunReport{ID: o.newID(), Trigger: trigger, Forced: force, StartedAt: start}
	o.log.Infow("booking run started", map[string]any{
		"run_id": report.ID, "trigger": trigger, "force": force, "contacts": len(contacts),
	})

	for _, group := range groupByOwner(contacts) {
		report.Results = append(report.Results, o.runUser(ctx, report.ID, group, force)...)
	}

	report.Duration = o.now().Sub(start)
	runDuration.WithLabelValues(trigger).Observe(report.Duration.Seconds())
	if o.bus != nil {
		o.bus.Publish(events.RunCompleted{Report: report})
	}
	o.log.Infow("booking run finished", map[string]any{
		"run_id":      report.ID,
		"booked":      report.Count(model.OutcomeBooked),
		"contacts":    len(report.Results),
		"duration_ms": report.Duration.Milliseconds(),
	})
	return report
}

// groupByOwner keeps first-seen order and drops repeated contact ids.
func groupByOwner(contacts []model.Contact) [][]model.Contact {
	index := map[string]int{}
	seen := map[int64]bool{}
	var groups [][]model.Contact
	for _, c := range contacts {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		i, ok := index[c.OwnerID]
		if !ok {
			i = len(groups)
			index[c.OwnerID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

func (o *Orchestrator) runUser(ctx context.Context, runID string, group []model.Contact, force bool) []model.ContactResult {
	ownerID := group[0].OwnerID
	now := o.now()

	var (
		results = make([]model.ContactResult, 0, len(group))
		due     []model.Contact
	)
	for _, c := range group {
		if !force && !window.IsDue(c.LatestMeeting, c.Frequency, false, now) {
			results = append(results, o.finish(runID, c, model.OutcomeNotDue, time.Time{}, "not enough time since latest meeting"))
			continue
		}
		due = append(due, c)
	}
	if len(due) == 0 {
		return results
	}

	uc, outcome, reason := o.loadUser(ctx, ownerID, now)
	if outcome != "" {
		for _, c := range due {
			results = append(results, o.finish(runID, c, outcome, time.Time{}, reason))
		}
		return results
	}
	return append(results, o.fanOut(ctx, runID, uc, due, force)...)
}

// loadUser resolves what every contact of ownerID needs. A non-empty
// outcome means the whole group is skipped.
func (o *Orchestrator) loadUser(ctx context.Context, ownerID string, now time.Time) (*userContext, model.Outcome, string) {
	u, err := o.users.GetUser(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, model.OutcomeNotConnected, "user not found"
	}
	if err != nil {
		return nil, model.OutcomeUnavailable, fmt.Sprintf("load user: %v", err)
	}
	if !u.Connected() {
		return nil, model.OutcomeNotConnected, "no api key"
	}

	profile, err := o.client.GetProfile(ctx, u.APIKey)
	if err != nil {
		return nil, model.OutcomeUnavailable, err.Error()
	}
	loc, err := time.LoadLocation(profile.TimeZone)
	if err != nil {
		return nil, model.OutcomeUnavailable, fmt.Sprintf("organizer time zone: %v", err)
	}
	from, to := o.window.SearchWindow(now)
	free, err := o.client.GetFreeBusy(ctx, u.APIKey, profile.UserID, from, to)
	if err != nil {
		return nil, model.OutcomeUnavailable, err.Error()
	}
	return &userContext{user: u, profile: profile, loc: loc, free: free, from: from, to: to}, "", ""
}

func (o *Orchestrator) fanOut(ctx context.Context, runID string, uc *userContext, due []model.Contact, force bool) []model.ContactResult {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = make([]model.ContactResult, 0, len(due))
		sem chan struct{}
	)
	if o.parallel > 0 {
		sem = make(chan struct{}, o.parallel)
	}
	for _, c := range due {
		wg.Add(1)
		go func(c model.Contact) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			res := o.safeProcess(ctx, runID, uc, c, force)
			mu.Lock()
			out = append(out, res)
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return out
}

// safeProcess turns a panic in one contact into a result for that contact.
func (o *Orchestrator) safeProcess(ctx context.Context, runID string, uc *userContext, c model.Contact, force bool) (res model.ContactResult) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.CapturePanic(r, contactTags(c))
			o.log.Errorf("contact %d: recovered panic: %v", c.ID, r)
			res = o.finish(runID, c, model.OutcomePanic, time.Time{}, fmt.Sprint(r))
		}
	}()
	outcome, start, reason := o.process(ctx, uc, c, force)
	return o.finish(runID, c, outcome, start, reason)
}

func (o *Orchestrator) process(ctx context.Context, uc *userContext, c model.Contact, force bool) (model.Outcome, time.Time, string) {
	unlock := o.locks.Lock(c.ID)
	defer unlock()

	if !force {
		fresh, err := o.contacts.ListByIDAndOwner(ctx, c.ID, c.OwnerID)
		if err != nil {
			return model.OutcomeUnavailable, time.Time{}, fmt.Sprintf("reload contact: %v", err)
		}
		if len(fresh) == 0 {
			return model.OutcomeNotDue, time.Time{}, "contact no longer exists"
		}
		c = fresh[0]
		if !window.IsDue(c.LatestMeeting, c.Frequency, false, o.now()) {
			return model.OutcomeNotDue, time.Time{}, "booked by a concurrent run"
		}
	}

	username, slug, err := c.BookingPage()
	if err != nil {
		return model.OutcomeMalformedURL, time.Time{}, err.Error()
	}
	ev, err := o.client.GetEventType(ctx, username, slug)
	if err != nil {
		return model.OutcomeUnavailable, time.Time{}, err.Error()
	}
	candidates, err := o.client.GetCandidateSlots(ctx, username, slug, uc.from, uc.to, uc.profile.TimeZone)
	if err != nil {
		return model.OutcomeUnavailable, time.Time{}, err.Error()
	}
	d := ev.Duration(o.defaultDuration)
	slot, ok := o.selector.Select(candidates, uc.free, c.TimePreference, uc.loc, d)
	if !ok {
		return model.OutcomeNoSlot, time.Time{}, fmt.Sprintf("no available slots among %d candidates", len(candidates))
	}

	req := model.BookingRequest{
		EventTypeID:     ev.ID,
		Start:           slot,
		DurationMinutes: int(d / time.Minute),
		AttendeeName:    uc.profile.Name,
		AttendeeEmail:   uc.profile.Email,
		TimeZone:        uc.profile.TimeZone,
		Locale:          uc.profile.Locale,
		Notes:           o.notes,
		IdempotencyKey:  o.newID(),
	}
	if err := o.client.CreateBooking(ctx, uc.user.APIKey, req); err != nil {
		return model.OutcomeBookingFailed, time.Time{}, err.Error()
	}

	// The booking now exists remotely, so the write must not be lost to the
	// run's deadline or a shutdown.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	err = o.contacts.SetLatestMeeting(persistCtx, c.ID, slot)
	switch {
	case err == nil:
		return model.OutcomeBooked, slot, ""
	case errors.Is(err, store.ErrStale):
		return model.OutcomeBooked, slot, "latest meeting already later, left unchanged"
	default:
		// The booking exists remotely but the contact stays due.
		monitoring.CaptureException(fmt.Errorf("persist booking %s: %w", req.IdempotencyKey, err), contactTags(c))
		return model.OutcomePersistFailed, slot, err.Error()
	}
}

// finish records metrics, events and logs for one contact result.
func (o *Orchestrator) finish(runID string, c model.Contact, outcome model.Outcome, start time.Time, reason string) model.ContactResult {
	res := model.ContactResult{ContactID: c.ID, OwnerID: c.OwnerID, Outcome: outcome, Start: start, Reason: reason}
	contactsTotal.WithLabelValues(string(outcome)).Inc()
	if o.bus != nil {
		o.bus.Publish(events.ContactOutcome{RunID: runID, Result: res})
	}
	fields := map[string]any{
		"run_id":     runID,
		"contact_id": c.ID,
		"owner_id":   c.OwnerID,
		"outcome":    string(outcome),
	}
	if reason != "" {
		fields["reason"] = reason
	}
	if !start.IsZero() {
		fields["start"] = start.UTC().Format(time.RFC3339)
	}
	switch outcome {
	case model.OutcomeBooked:
		o.log.Infow("contact booked", fields)
	case model.OutcomeNotDue:
		o.log.Debugw("contact skipped", fields)
	case model.OutcomePersistFailed, model.OutcomePanic:
		o.log.Warnw("contact failed", fields)
	default:
		o.log.Infow("contact skipped", fields)
	}
	return res
}

func contactTags(c model.Contact) map[string]string {
	return map[string]string{
		"module":     "booking",
		"contact_id": strconv.FormatInt(c.ID, 10),
		"owner_id":   c.OwnerID,
	}
}

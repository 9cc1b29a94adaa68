// Package trigger starts booking runs: a daily cron sweep over every
// contact and forced single-contact runs requested over HTTP or MQTT.
package trigger

import (
	"context"
	"errors"
	"fmt"

	"github.com/raikasdev/howareya/core/logger"
	"github.com/raikasdev/howareya/core/model"
	"github.com/raikasdev/howareya/core/store"
)

// Sources label the trigger that started a run.
const (
	SourceCron = "cron"
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
	SourceCLI  = "cli"
)

// ErrContactNotFound is returned when a schedule request names a contact
// that does not exist or is owned by someone else.
var ErrContactNotFound = errors.New("contact not found")

// Orchestrator runs the booking engine over a set of contacts.
type Orchestrator interface {
	Run(ctx context.Context, contacts []model.Contact, force bool, trigger string) model.RunReport
}

// Runner loads contacts for a trigger and hands them to the orchestrator.
type Runner struct {
	contacts store.ContactStore
	orch     Orchestrator
	log      logger.Logger
}

// NewRunner returns a Runner. A nil log discards output.
func NewRunner(contacts store.ContactStore, orch Orchestrator, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Runner{contacts: contacts, orch: orch, log: log}
}

// Sweep runs every stored contact without forcing.
func (r *Runner) Sweep(ctx context.Context, source string) (model.RunReport, error) {
	all, err := r.contacts.ListAll(ctx)
	if err != nil {
		return model.RunReport{}, fmt.Errorf("list contacts: %w", err)
	}
	r.log.Infow("sweep triggered", map[string]any{"source": source, "contacts": len(all)})
	return r.orch.Run(ctx, all, false, source), nil
}

// Single force-books one contact, provided it belongs to req.OwnerID.
func (r *Runner) Single(ctx context.Context, req model.ScheduleRequest, source string) (model.RunReport, error) {
	rows, err := r.contacts.ListByIDAndOwner(ctx, req.ContactID, req.OwnerID)
	if err != nil {
		return model.RunReport{}, fmt.Errorf("load contact %d: %w", req.ContactID, err)
	}
	if len(rows) == 0 {
		return model.RunReport{}, fmt.Errorf("contact %d: %w", req.ContactID, ErrContactNotFound)
	}
	r.log.Infow("schedule requested", map[string]any{
		"source": source, "contact_id": req.ContactID, "owner_id": req.OwnerID,
	})
	return r.orch.Run(ctx, rows, true, source), nil
}

// Handler returns a function that force-books one contact, suitable for
// message-driven triggers. A missing contact is logged and not retried.
func (r *Runner) Handler(source string) func(context.Context, model.ScheduleRequest) error {
	return func(ctx context.Context, req model.ScheduleRequest) error {
		report, err := r.Single(ctx, req, source)
		if errors.Is(err, ErrContactNotFound) {
			r.log.Warnw("schedule request for unknown contact", map[string]any{
				"source": source, "contact_id": req.ContactID, "owner_id": req.OwnerID,
			})
			return nil
		}
		if err != nil {
			return err
		}
		r.log.Infow("schedule request done", map[string]any{
			"source": source, "run_id": report.ID, "booked": len(report.Booked()),
		})
		return nil
	}
}

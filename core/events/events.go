// Package events defines the booking events emitted on the event bus.
//
// Available event types:
//   - ContactOutcome: the result of processing one contact
//   - RunCompleted: a full run finished
package events

import "github.com/raikasdev/howareya/core/model"

// ContactOutcome is published once per contact processed in a run.
type ContactOutcome struct {
	RunID  string
	Result model.ContactResult
}

// RunCompleted is published after every run, including empty ones.
type RunCompleted struct {
	Report model.RunReport
}

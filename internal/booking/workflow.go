// Package booking orchestrates the reservation lifecycle: validation and
// creation of new requests, the status state machine and the side effects
// fired on transitions.
package booking

import (
	"errors"
	"fmt"

	"antigravity/internal/model"
)

// Effect is a side effect produced by a status transition. Effects are
// executed by the Dispatcher, never inline with the transition itself.
type Effect string

const (
	EffectNotifySubmission      Effect = "notify_submission"
	EffectSendApprovalEmail     Effect = "send_approval_email"
	EffectSendCancellationEmail Effect = "send_cancellation_email"
	EffectSyncCalendarEvent     Effect = "sync_calendar_event"
	EffectRemoveCalendarEvent   Effect = "remove_calendar_event"
)

// ErrInvalidTransition is returned for a status change the workflow does not
// allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// transitions maps a current status to the statuses it may move to.
var transitions = map[string][]string{
	model.StatusPending:   {model.StatusApproved, model.StatusCancelled, model.StatusExpired},
	model.StatusApproved:  {model.StatusCancelled},
	model.StatusExpired:   {},
	model.StatusCancelled: {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a status change and returns the effects it triggers.
// It does not touch storage; callers persist the change and hand the effects
// to a dispatcher.
func Transition(from, to string) ([]Effect, error) {
	if !model.ValidStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	switch to {
	case model.StatusApproved:
		return []Effect{EffectSendApprovalEmail, EffectSyncCalendarEvent}, nil
	case model.StatusCancelled:
		effects := []Effect{EffectSendCancellationEmail}
		if from == model.StatusApproved {
			effects = append(effects, EffectRemoveCalendarEvent)
		}
		return effects, nil
	case model.StatusExpired:
		// The sweep is silent: no customer email, nothing was synced yet.
		return nil, nil
	}
	return nil, nil
}

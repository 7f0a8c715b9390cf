package booking

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"antigravity/internal/metrics"
	"antigravity/internal/model"
)

// Notifier sends customer and admin notifications.
type Notifier interface {
	SendSubmission(ctx context.Context, b *model.Booking) error
	SendApproval(ctx context.Context, b *model.Booking) error
	SendCancellation(ctx context.Context, b *model.Booking) error
}

// CalendarSync pushes bookings to the external calendar.
type CalendarSync interface {
	Sync(ctx context.Context, b *model.Booking) error
	Remove(ctx context.Context, b *model.Booking) error
}

// Dispatcher executes transition effects asynchronously. Effect failures are
// logged and counted but never propagated: a booking commit that passed
// validation must not fail because email or calendar sync is down.
type Dispatcher struct {
	notifier Notifier
	calendar CalendarSync
	logger   *zerolog.Logger
	timeout  time.Duration
}

// NewDispatcher creates a dispatcher. notifier and calendar may be nil when
// the corresponding collaborator is not configured.
func NewDispatcher(notifier Notifier, calendar CalendarSync, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		calendar: calendar,
		logger:   logger,
		timeout:  30 * time.Second,
	}
}

// Dispatch runs the effects for a booking in the background.
func (d *Dispatcher) Dispatch(b *model.Booking, effects []Effect) {
	if len(effects) == 0 {
		return
	}
	snapshot := *b
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		for _, e := range effects {
			d.run(ctx, &snapshot, e)
		}
	}()
}

func (d *Dispatcher) run(ctx context.Context, b *model.Booking, e Effect) {
	var err error
	switch e {
	case EffectNotifySubmission:
		if d.notifier != nil {
			err = d.notifier.SendSubmission(ctx, b)
		}
	case EffectSendApprovalEmail:
		if d.notifier != nil {
			err = d.notifier.SendApproval(ctx, b)
		}
	case EffectSendCancellationEmail:
		if d.notifier != nil {
			err = d.notifier.SendCancellation(ctx, b)
		}
	case EffectSyncCalendarEvent:
		if d.calendar != nil {
			err = d.calendar.Sync(ctx, b)
		}
	case EffectRemoveCalendarEvent:
		if d.calendar != nil {
			err = d.calendar.Remove(ctx, b)
		}
	default:
		d.logger.Warn().Str("effect", string(e)).Msg("unknown effect")
		return
	}

	if err != nil {
		metrics.IncEffectFailure(string(e))
		d.logger.Error().Err(err).
			Str("effect", string(e)).
			Str("reference", b.Reference).
			Msg("effect failed")
	}
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"antigravity/internal/availability"
	"antigravity/internal/metrics"
	"antigravity/internal/model"
	"antigravity/internal/pricing"
	"antigravity/internal/rules"
	"antigravity/internal/store"
)

// ErrRuleViolation wraps the violation list of a rejected request.
type ErrRuleViolation struct {
	Violations []availability.Violation
}

func (e *ErrRuleViolation) Error() string {
	msg := "booking violates availability rules"
	for _, v := range e.Violations {
		msg += " " + v.Message
	}
	return msg
}

// ErrSlotTaken is re-exported so HTTP handlers do not import the store.
var ErrSlotTaken = store.ErrSlotTaken

// Request is a validated booking candidate from the HTTP boundary.
type Request struct {
	Start            time.Time
	End              time.Time
	IsOvernight      bool
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	GuestCount       int
	EventDescription string
}

// Service runs the booking lifecycle against the repository and fires
// transition effects through the dispatcher.
type Service struct {
	db         *store.DB
	rules      *rules.Provider
	dispatcher *Dispatcher
	logger     *zerolog.Logger
	now        func() time.Time
}

// NewService creates a booking service.
func NewService(db *store.DB, provider *rules.Provider, dispatcher *Dispatcher, logger *zerolog.Logger) *Service {
	return &Service{
		db:         db,
		rules:      provider,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Create re-validates the candidate against the rule layer and the overlap
// contract, prices it and persists it pending. The final rule check runs at
// commit time, never from a cached earlier read.
func (s *Service) Create(ctx context.Context, req Request) (*model.Booking, error) {
	rs := s.rules.Current()
	now := s.now().In(rs.Location)

	res := availability.Check(req.Start, req.End, rs, now, req.IsOvernight)
	if !res.Available {
		return nil, &ErrRuleViolation{Violations: res.Violations}
	}

	blocked, err := s.db.Blocking(ctx, req.Start, req.End, now, rs.Lead())
	if err != nil {
		return nil, fmt.Errorf("overlap check: %w", err)
	}
	if blocked {
		return nil, ErrSlotTaken
	}

	guests := req.GuestCount
	if guests < 1 {
		guests = 1
	}

	b := &model.Booking{
		Reference:        uuid.NewString(),
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		GuestCount:       guests,
		EventDescription: req.EventDescription,
		StartTime:        req.Start,
		EndTime:          req.End,
		IsOvernight:      req.IsOvernight,
		CostCents:        pricing.EstimateCents(req.Start, req.End, rs.HourlyRateCents),
		Status:           model.StatusPending,
	}

	if err := s.db.CreateIfFree(ctx, b, now, rs.Lead()); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.IncBookingCreated(b.Status)
	s.logger.Info().
		Str("reference", b.Reference).
		Time("start", b.StartTime).
		Time("end", b.EndTime).
		Bool("overnight", b.IsOvernight).
		Msg("booking created")

	s.dispatcher.Dispatch(b, []Effect{EffectNotifySubmission})
	return b, nil
}

// Decide moves a booking to a new status and fires the transition effects.
func (s *Service) Decide(ctx context.Context, id int64, to string) (*model.Booking, error) {
	b, err := s.db.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	effects, err := Transition(b.Status, to)
	if err != nil {
		return nil, err
	}

	if err := s.db.UpdateStatus(ctx, id, to); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	b.Status = to

	metrics.IncDecision(to)
	s.logger.Info().
		Str("reference", b.Reference).
		Str("status", to).
		Msg("booking status changed")

	s.dispatcher.Dispatch(b, effects)
	return b, nil
}

// DecideBulk applies a status change to many bookings, skipping the ones
// whose current status does not allow it. Returns the number applied.
func (s *Service) DecideBulk(ctx context.Context, ids []int64, to string) (int, error) {
	applied := 0
	for _, id := range ids {
		if _, err := s.Decide(ctx, id, to); err != nil {
			if errors.Is(err, ErrInvalidTransition) || errors.Is(err, store.ErrNotFound) {
				s.logger.Warn().Int64("id", id).Str("to", to).Err(err).Msg("bulk decision skipped")
				continue
			}
			return applied, err
		}
		applied++
	}
	return applied, nil
}

// ExpireLapsed runs the pending-lapse sweep: pending bookings whose start
// has entered the lead window flip to expired.
func (s *Service) ExpireLapsed(ctx context.Context) (int, error) {
	rs := s.rules.Current()
	now := s.now().In(rs.Location)

	ids, err := s.db.ExpireLapsed(ctx, now, rs.Lead())
	if err != nil {
		return 0, fmt.Errorf("expire sweep: %w", err)
	}
	if len(ids) > 0 {
		metrics.AddExpired(len(ids))
		s.logger.Info().Int("count", len(ids)).Msg("expired lapsed pending bookings")
	}
	return len(ids), nil
}

// StartExpirySweep runs ExpireLapsed on an interval until ctx is done.
func (s *Service) StartExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.ExpireLapsed(ctx); err != nil {
					s.logger.Error().Err(err).Msg("expiry sweep failed")
				}
			}
		}
	}()
}

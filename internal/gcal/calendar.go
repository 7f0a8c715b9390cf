// Package gcal synchronizes approved bookings to a Google Calendar using a
// service account. Sync failures are reported to the dispatcher, which logs
// them; they never affect the booking itself.
package gcal

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"antigravity/internal/model"
	"antigravity/internal/pricing"
)

// EventStore records the external event linked to a booking.
type EventStore interface {
	SetCalendarEventID(ctx context.Context, bookingID int64, eventID string) error
}

// Config for the calendar sync collaborator.
type Config struct {
	CredentialsPath string
	CalendarID      string
	Timezone        string
}

// Service implements booking.CalendarSync against the Google Calendar API.
type Service struct {
	api        *calendar.Service
	calendarID string
	timezone   string
	store      EventStore
	logger     *zerolog.Logger
}

// New builds the calendar service from service-account credentials.
func New(ctx context.Context, cfg Config, store EventStore, logger *zerolog.Logger) (*Service, error) {
	data, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read calendar credentials: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse calendar credentials: %w", err)
	}

	api, err := calendar.NewService(ctx, option.WithTokenSource(jwt.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create calendar client: %w", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &Service{
		api:        api,
		calendarID: calendarID,
		timezone:   cfg.Timezone,
		store:      store,
		logger:     logger,
	}, nil
}

// Sync creates the event for a booking, or updates it when one is already
// recorded.
func (s *Service) Sync(ctx context.Context, b *model.Booking) error {
	if b.CalendarEventID != "" {
		event, err := s.api.Events.Get(s.calendarID, b.CalendarEventID).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("get calendar event %s: %w", b.CalendarEventID, err)
		}
		s.fillEvent(event, b)
		if _, err := s.api.Events.Update(s.calendarID, b.CalendarEventID, event).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update calendar event %s: %w", b.CalendarEventID, err)
		}
		s.logger.Info().Str("event_id", b.CalendarEventID).Str("reference", b.Reference).Msg("calendar event updated")
		return nil
	}

	event := &calendar.Event{}
	s.fillEvent(event, b)
	created, err := s.api.Events.Insert(s.calendarID, event).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	if err := s.store.SetCalendarEventID(ctx, b.ID, created.Id); err != nil {
		return fmt.Errorf("record calendar event id: %w", err)
	}
	b.CalendarEventID = created.Id
	s.logger.Info().Str("event_id", created.Id).Str("reference", b.Reference).Msg("calendar event created")
	return nil
}

// Remove deletes the booking's event, if one was recorded, and clears the
// stored id.
func (s *Service) Remove(ctx context.Context, b *model.Booking) error {
	if b.CalendarEventID == "" {
		return nil
	}
	if err := s.api.Events.Delete(s.calendarID, b.CalendarEventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event %s: %w", b.CalendarEventID, err)
	}
	if err := s.store.SetCalendarEventID(ctx, b.ID, ""); err != nil {
		return fmt.Errorf("clear calendar event id: %w", err)
	}
	s.logger.Info().Str("event_id", b.CalendarEventID).Str("reference", b.Reference).Msg("calendar event removed")
	b.CalendarEventID = ""
	return nil
}

// TestConnection lists one event to verify credentials and calendar access.
func (s *Service) TestConnection(ctx context.Context) error {
	_, err := s.api.Events.List(s.calendarID).MaxResults(1).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("calendar access check: %w", err)
	}
	return nil
}

func (s *Service) fillEvent(event *calendar.Event, b *model.Booking) {
	event.Summary = fmt.Sprintf("Booking - %s", b.CustomerName)
	event.Description = fmt.Sprintf(
		"Customer: %s <%s>\nGuests: %d\nEstimated cost: $%s\nReference: %s",
		b.CustomerName, b.CustomerEmail, b.GuestCount,
		pricing.FormatCents(b.CostCents), b.Reference,
	)
	event.Start = &calendar.EventDateTime{
		DateTime: b.StartTime.Format("2006-01-02T15:04:05-07:00"),
		TimeZone: s.timezone,
	}
	event.End = &calendar.EventDateTime{
		DateTime: b.EndTime.Format("2006-01-02T15:04:05-07:00"),
		TimeZone: s.timezone,
	}
}

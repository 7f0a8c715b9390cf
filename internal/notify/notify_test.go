package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"antigravity/internal/model"
)

func sampleBooking() *model.Booking {
	return &model.Booking{
		ID:            7,
		Reference:     "abc-123",
		CustomerName:  "Jordan Reyes",
		CustomerEmail: "jordan@example.com",
		CustomerPhone: "+1 555 867 5309",
		GuestCount:    4,
		StartTime:     time.Date(2026, 11, 20, 22, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 11, 21, 10, 0, 0, 0, time.UTC),
		IsOvernight:   true,
		CostCents:     120000,
		Status:        model.StatusPending,
	}
}

func TestRender(t *testing.T) {
	b := sampleBooking()

	got := Render("{customer_name} {booking_date} {start_time} {end_time} ${cost} {guest_count} {reference}", b)
	want := "Jordan Reyes Friday, November 20, 2026 10:00 PM 10:00 AM (Nov 21) $1200.00 4 abc-123"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}

	// Same-day bookings render a plain end time.
	b.IsOvernight = false
	b.EndTime = time.Date(2026, 11, 20, 23, 0, 0, 0, time.UTC)
	got = Render("{end_time}", b)
	if got != "11:00 PM" {
		t.Errorf("same-day end = %q", got)
	}
}

func TestBuildICS(t *testing.T) {
	b := sampleBooking()
	b.CustomerName = "Reyes; Jordan, Jr."
	now := time.Date(2026, 11, 18, 9, 30, 0, 0, time.UTC)

	ics := string(BuildICS(b, now))

	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Error("missing final CRLF-terminated END:VCALENDAR")
	}
	for _, line := range strings.Split(strings.TrimSuffix(ics, "\r\n"), "\r\n") {
		if strings.ContainsAny(line, "\r\n") {
			t.Errorf("line %q contains bare newline", line)
		}
	}

	wantLines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"UID:booking-abc-123@antigravity",
		"DTSTAMP:20261118T093000Z",
		"DTSTART:20261120T220000",
		"DTEND:20261121T100000",
		`SUMMARY:Booking - Reyes\; Jordan\, Jr.`,
	}
	for _, want := range wantLines {
		if !strings.Contains(ics, want+"\r\n") {
			t.Errorf("missing line %q in:\n%s", want, ics)
		}
	}
}

func newTestMailer(t *testing.T, send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) *Mailer {
	t.Helper()
	logger := zerolog.Nop()
	m := NewMailer(SMTPConfig{
		Host:       "smtp.example.com",
		Port:       587,
		From:       "bookings@example.com",
		AdminEmail: "owner@example.com",
	}, DefaultTemplates(), &logger)
	m.send = send
	m.now = func() time.Time { return time.Date(2026, 11, 18, 9, 30, 0, 0, time.UTC) }

	// No backoff between attempts in tests.
	saved := retryDelays
	retryDelays = []time.Duration{0, 0, 0}
	t.Cleanup(func() { retryDelays = saved })
	return m
}

func TestSendSubmissionMailsCustomerAndAdmin(t *testing.T) {
	var recipients []string
	m := newTestMailer(t, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		recipients = append(recipients, to...)
		if !strings.Contains(string(msg), "Jordan Reyes") {
			t.Error("body missing customer name")
		}
		return nil
	})

	if err := m.SendSubmission(context.Background(), sampleBooking()); err != nil {
		t.Fatal(err)
	}
	if len(recipients) != 2 || recipients[0] != "jordan@example.com" || recipients[1] != "owner@example.com" {
		t.Errorf("recipients = %v", recipients)
	}
}

func TestSendApprovalAttachesICS(t *testing.T) {
	var captured []byte
	m := newTestMailer(t, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		captured = msg
		return nil
	})

	if err := m.SendApproval(context.Background(), sampleBooking()); err != nil {
		t.Fatal(err)
	}

	body := string(captured)
	if !strings.Contains(body, "multipart/mixed") {
		t.Error("approval mail is not multipart")
	}
	if !strings.Contains(body, "text/calendar") {
		t.Error("missing calendar attachment part")
	}
}

func TestDeliverRetries(t *testing.T) {
	attempts := 0
	m := newTestMailer(t, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient relay error")
		}
		return nil
	})

	if err := m.SendCancellation(context.Background(), sampleBooking()); err != nil {
		t.Fatal(err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDeliverGivesUp(t *testing.T) {
	attempts := 0
	m := newTestMailer(t, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		attempts++
		return errors.New("permanent relay error")
	})

	if err := m.SendCancellation(context.Background(), sampleBooking()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != len(retryDelays)+1 {
		t.Errorf("attempts = %d, want %d", attempts, len(retryDelays)+1)
	}
}

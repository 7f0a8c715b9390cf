// Package notify delivers booking emails over SMTP and optional Telegram
// pings to managers. Delivery is paced and retried; failures are reported to
// the caller, who logs and moves on. Notification problems never block a
// booking.
package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"antigravity/internal/model"
)

// retryDelays is the backoff table applied between send attempts.
var retryDelays = []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}

// SMTPConfig configures the mail transport.
type SMTPConfig struct {
	Host       string
	Port       int
	From       string
	Username   string
	Password   string
	AdminEmail string
}

// Mailer sends templated booking emails. It implements booking.Notifier.
type Mailer struct {
	cfg       SMTPConfig
	templates Templates
	limiter   *rate.Limiter
	send      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewMailer creates a mailer. Sends are paced to avoid tripping relay
// limits.
func NewMailer(cfg SMTPConfig, templates Templates, logger *zerolog.Logger) *Mailer {
	if cfg.From == "" {
		cfg.From = "no-reply@antigravity.local"
	}
	return &Mailer{
		cfg:       cfg,
		templates: templates,
		limiter:   rate.NewLimiter(rate.Limit(1), 5),
		send:      smtp.SendMail,
		logger:    logger,
		now:       time.Now,
	}
}

// SendSubmission emails the customer a receipt and the admin a copy.
func (m *Mailer) SendSubmission(ctx context.Context, b *model.Booking) error {
	err := m.deliver(ctx, b.CustomerEmail,
		Render(m.templates.SubmissionSubject, b),
		Render(m.templates.SubmissionBody, b),
		nil)
	if err != nil {
		return err
	}
	if m.cfg.AdminEmail == "" {
		return nil
	}
	return m.deliver(ctx, m.cfg.AdminEmail,
		Render(m.templates.AdminSubject, b),
		Render(m.templates.AdminBody, b),
		nil)
}

// SendApproval emails the customer a confirmation with an ICS attachment.
func (m *Mailer) SendApproval(ctx context.Context, b *model.Booking) error {
	ics := BuildICS(b, m.now())
	return m.deliver(ctx, b.CustomerEmail,
		Render(m.templates.ApprovalSubject, b),
		Render(m.templates.ApprovalBody, b),
		ics)
}

// SendCancellation emails the customer a cancellation notice.
func (m *Mailer) SendCancellation(ctx context.Context, b *model.Booking) error {
	return m.deliver(ctx, b.CustomerEmail,
		Render(m.templates.CancelSubject, b),
		Render(m.templates.CancelBody, b),
		nil)
}

func (m *Mailer) deliver(ctx context.Context, to, subject, body string, ics []byte) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail pacing: %w", err)
	}

	msg := m.buildMessage(to, subject, body, ics)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			delay := retryDelays[attempt-1]
			// Jitter up to half the base delay so retries from concurrent
			// sends don't land together.
			if half := delay / 2; half > 0 {
				delay += rand.N(half)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = m.send(addr, auth, m.cfg.From, []string{to}, msg)
		if lastErr == nil {
			return nil
		}
		m.logger.Warn().Err(lastErr).Str("to", to).Int("attempt", attempt+1).Msg("mail send failed")
	}
	return fmt.Errorf("send mail to %s: %w", to, lastErr)
}

func (m *Mailer) buildMessage(to, subject, body string, ics []byte) []byte {
	var sb strings.Builder
	write := func(s string) { sb.WriteString(s); sb.WriteString("\r\n") }

	write("From: " + m.cfg.From)
	write("To: " + to)
	write("Subject: " + mime.QEncoding.Encode("utf-8", subject))
	write("MIME-Version: 1.0")

	if ics == nil {
		write("Content-Type: text/plain; charset=utf-8")
		write("")
		write(body)
		return []byte(sb.String())
	}

	const boundary = "antigravity-booking-boundary"
	write("Content-Type: multipart/mixed; boundary=" + boundary)
	write("")
	write("--" + boundary)
	write("Content-Type: text/plain; charset=utf-8")
	write("")
	write(body)
	write("--" + boundary)
	write("Content-Type: text/calendar; method=PUBLISH; charset=utf-8")
	write("Content-Transfer-Encoding: base64")
	write(`Content-Disposition: attachment; filename="booking.ics"`)
	write("")
	write(base64.StdEncoding.EncodeToString(ics))
	write("--" + boundary + "--")
	return []byte(sb.String())
}

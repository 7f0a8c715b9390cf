// Package model defines the booking record shared by the repository, the
// workflow and the HTTP layer.
package model

import "time"

// Booking statuses. A booking is created pending and is moved by an
// administrator or the expiry sweep.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Booking is a committed reservation record.
type Booking struct {
	ID               int64     `json:"id"`
	Reference        string    `json:"reference"`
	CustomerName     string    `json:"customer_name"`
	CustomerEmail    string    `json:"customer_email"`
	CustomerPhone    string    `json:"customer_phone,omitempty"`
	GuestCount       int       `json:"guest_count"`
	EventDescription string    `json:"event_description,omitempty"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	IsOvernight      bool      `json:"is_overnight"`
	CostCents        int64     `json:"cost_cents"`
	Status           string    `json:"status"`
	CalendarEventID  string    `json:"calendar_event_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Overlaps reports whether the booking's interval overlaps [start, end)
// under open-interval semantics: touching endpoints do not count.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.EndTime.After(start) && b.StartTime.Before(end)
}

// Blocks reports whether this booking blocks new reservations at the given
// evaluation time with the given cutoff lead: approved bookings always
// block, pending bookings only while their own start is still beyond the
// lead window (an unconfirmed request does not squat on a slot once its
// acceptance window has lapsed).
func (b *Booking) Blocks(now time.Time, lead time.Duration) bool {
	switch b.Status {
	case StatusApproved:
		return true
	case StatusPending:
		return b.StartTime.After(now.Add(lead))
	}
	return false
}

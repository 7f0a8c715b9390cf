package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"antigravity/internal/availability"
	"antigravity/internal/booking"
	"antigravity/internal/metrics"
	"antigravity/internal/pricing"
	"antigravity/internal/rules"
)

// OvernightEndValue is the sentinel end time for an overnight selection.
const OvernightEndValue = "Overnight"

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)

// CreateBookingRequest is the public booking submission body.
type CreateBookingRequest struct {
	Date             string `json:"date"`       // YYYY-MM-DD
	StartTime        string `json:"start_time"` // HH:MM
	EndTime          string `json:"end_time,omitempty"`
	CustomerName     string `json:"customer_name"`
	CustomerEmail    string `json:"customer_email"`
	CustomerPhone    string `json:"customer_phone,omitempty"`
	GuestCount       int    `json:"guest_count,omitempty"`
	EventDescription string `json:"event_description,omitempty"`
}

// CreateBookingResponse confirms a submission.
type CreateBookingResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Cost      string `json:"estimated_cost,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleCreateBooking validates a submission, re-checks the rules and the
// overlap guard at commit time and persists the booking pending.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rs := s.rules.Current()
	candidate, errs := s.validateCreate(&req, rs)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, CreateBookingResponse{
			Success: false,
			Error:   strings.Join(errs, " "),
		})
		return
	}

	b, err := s.svc.Create(r.Context(), *candidate)
	if err != nil {
		var rv *booking.ErrRuleViolation
		switch {
		case errors.As(err, &rv):
			msgs := make([]string, 0, len(rv.Violations))
			for _, v := range rv.Violations {
				msgs = append(msgs, v.Message)
			}
			writeJSON(w, http.StatusConflict, CreateBookingResponse{
				Success: false,
				Error:   strings.Join(msgs, " "),
			})
		case errors.Is(err, booking.ErrSlotTaken):
			writeJSON(w, http.StatusConflict, CreateBookingResponse{
				Success: false,
				Error:   "This slot was just booked by someone else. Please try another.",
			})
		default:
			s.logger.Error().Err(err).Msg("create booking failed")
			writeError(w, http.StatusInternalServerError, "Failed to create booking. Please try again.")
		}
		return
	}

	writeJSON(w, http.StatusOK, CreateBookingResponse{
		Success:   true,
		Reference: b.Reference,
		Cost:      pricing.FormatCents(b.CostCents),
		Message:   "Booking submitted successfully! We will review it shortly.",
	})
}

// validateCreate checks untrusted fields and converts them into a typed
// candidate. Temporal parsing fails closed here: malformed input never
// reaches the engine.
func (s *HTTPServer) validateCreate(req *CreateBookingRequest, rs *rules.RuleSet) (*booking.Request, []string) {
	var errs []string

	date, dateErr := parseDate(req.Date, rs.Location)
	if req.Date == "" {
		errs = append(errs, "Date is required.")
	} else if dateErr != nil {
		errs = append(errs, "Invalid date format. Use YYYY-MM-DD.")
	}

	startClock, startErr := rules.ParseClock(req.StartTime)
	if req.StartTime == "" {
		errs = append(errs, "Start time is required.")
	} else if startErr != nil {
		errs = append(errs, "Invalid time format. Use HH:MM (24-hour).")
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		errs = append(errs, "Customer name is required.")
	} else if len(name) < 2 {
		errs = append(errs, "Name must be at least 2 characters.")
	}

	email := strings.TrimSpace(req.CustomerEmail)
	if email == "" {
		errs = append(errs, "Email address is required.")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs = append(errs, "Invalid email address.")
	}

	phone := strings.TrimSpace(req.CustomerPhone)
	if phone != "" && !phonePattern.MatchString(phone) {
		errs = append(errs, "Invalid phone number format.")
	}

	// Zero means the field was omitted; the service defaults it to 1.
	if req.GuestCount < 0 {
		errs = append(errs, "Guest count cannot be negative.")
	}

	endRaw := strings.TrimSpace(req.EndTime)
	var endClock rules.Clock
	endIsOvernight := endRaw == OvernightEndValue
	if endRaw != "" && !endIsOvernight {
		var err error
		endClock, err = rules.ParseClock(endRaw)
		if err != nil {
			errs = append(errs, "Invalid end time format.")
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	start := startClock.On(date)
	candidate := booking.Request{
		Start:            start,
		CustomerName:     name,
		CustomerEmail:    email,
		CustomerPhone:    phone,
		GuestCount:       req.GuestCount,
		EventDescription: strings.TrimSpace(req.EventDescription),
	}

	switch {
	case endIsOvernight:
		candidate.End = availability.OvernightEnd(date, rs)
		candidate.IsOvernight = true
	case endRaw != "":
		candidate.End = endClock.On(date)
	case availability.ClassifyOvernight(start, rs):
		// No end given: a start past the cutoff becomes an overnight
		// booking, anything else a single slot.
		candidate.End = availability.OvernightEnd(date, rs)
		candidate.IsOvernight = true
	default:
		candidate.End = start.Add(rs.SlotStep())
	}

	return &candidate, nil
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"antigravity/internal/booking"
	"antigravity/internal/export"
	"antigravity/internal/metrics"
	"antigravity/internal/model"
	"antigravity/internal/store"
)

const defaultPageSize = 50

// AdminListResponse is the paginated booking list with status counts for
// the dashboard header.
type AdminListResponse struct {
	Success  bool            `json:"success"`
	Bookings []model.Booking `json:"bookings"`
	Counts   map[string]int  `json:"counts"`
	Page     int             `json:"page"`
	PerPage  int             `json:"per_page"`
}

// handleAdminList serves the booking table. Supports status/search/date
// filters and pagination; date=YYYY-MM-DD switches to the calendar day view.
// GET /api/admin/bookings
func (s *HTTPServer) handleAdminList(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_list")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	rs := s.rules.Current()
	q := r.URL.Query()

	if day := q.Get("date"); day != "" {
		date, err := parseDate(day, rs.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		bookings, err := s.db.OnDate(r.Context(), date)
		if err != nil {
			s.logger.Error().Err(err).Msg("admin day view failed")
			writeError(w, http.StatusInternalServerError, "failed to load bookings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"bookings": bookings,
		})
		return
	}

	f := store.ListFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		OrderAsc: q.Get("order") == "asc",
	}
	if st := q.Get("status"); st != "" {
		if !model.ValidStatus(st) {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		f.Status = st
	}
	if from := q.Get("from"); from != "" {
		t, err := parseDate(from, rs.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := parseDate(to, rs.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.To = t.AddDate(0, 0, 1)
	}

	page := 1
	if p := q.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = n
	}
	perPage := defaultPageSize
	if pp := q.Get("per_page"); pp != "" {
		n, err := strconv.Atoi(pp)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid per_page")
			return
		}
		perPage = n
	}
	f.Limit = perPage
	f.Offset = (page - 1) * perPage

	bookings, err := s.db.ListBookings(r.Context(), f)
	if err != nil {
		s.logger.Error().Err(err).Msg("admin list failed")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}
	counts, err := s.db.CountByStatus(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("status counts failed")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}

	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, AdminListResponse{
		Success:  true,
		Bookings: bookings,
		Counts:   counts,
		Page:     page,
		PerPage:  perPage,
	})
}

// AdminStatusRequest moves one or more bookings to a new status.
type AdminStatusRequest struct {
	ID     int64   `json:"id,omitempty"`
	IDs    []int64 `json:"ids,omitempty"`
	Status string  `json:"status"`
}

// handleAdminStatus approves or cancels bookings. A single id returns the
// updated booking; a bulk list returns the applied count and skips
// bookings whose current status does not allow the move.
// POST /api/admin/bookings/status
func (s *HTTPServer) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_status")

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req AdminStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !model.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if len(req.IDs) > 0 {
		applied, err := s.svc.DecideBulk(r.Context(), req.IDs, req.Status)
		if err != nil {
			s.logger.Error().Err(err).Msg("bulk status update failed")
			writeError(w, http.StatusInternalServerError, "bulk update failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"applied": applied,
			"skipped": len(req.IDs) - applied,
		})
		return
	}

	if req.ID == 0 {
		writeError(w, http.StatusBadRequest, "id or ids required")
		return
	}
	b, err := s.svc.Decide(r.Context(), req.ID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "booking not found")
		case errors.Is(err, booking.ErrInvalidTransition):
			writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error().Err(err).Int64("id", req.ID).Msg("status update failed")
			writeError(w, http.StatusInternalServerError, "status update failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "booking": b})
}

// handleAdminExport streams the filtered booking list as CSV or XLSX.
// GET /api/admin/bookings/export?format=csv|xlsx
func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	rs := s.rules.Current()
	q := r.URL.Query()

	format := q.Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	f := store.ListFilter{OrderAsc: true}
	if st := q.Get("status"); st != "" {
		if !model.ValidStatus(st) {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		f.Status = st
	}
	if from := q.Get("from"); from != "" {
		t, err := parseDate(from, rs.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := parseDate(to, rs.Location)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.To = t.AddDate(0, 0, 1)
	}

	bookings, err := s.db.ListBookings(r.Context(), f)
	if err != nil {
		s.logger.Error().Err(err).Msg("export query failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	stamp := s.now().In(rs.Location).Format("2006-01-02")
	filename := fmt.Sprintf("bookings-%s.%s", stamp, format)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = export.WriteXLSX(w, bookings)
	} else {
		w.Header().Set("Content-Type", "text/csv")
		err = export.WriteCSV(w, bookings)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("format", format).Msg("export write failed")
	}
}

// handleAdminRules echoes the effective rule set so operators can confirm
// what the engine is running with after a hot reload.
// GET /api/admin/rules
func (s *HTTPServer) handleAdminRules(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_rules")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}

	rs := s.rules.Current()

	weekdays := make(map[string]bool, len(rs.Weekdays))
	hours := make(map[string]string, len(rs.Hours))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if rs.Weekdays[d] {
			weekdays[d.String()] = true
		}
		if w, ok := rs.Hours[d]; ok {
			hours[d.String()] = w.Open.String() + "-" + w.Close.String()
		}
	}

	blackouts := make([]map[string]string, 0, len(rs.Blackouts))
	for _, b := range rs.SortedBlackouts() {
		blackouts = append(blackouts, map[string]string{
			"start":  b.Start.Format("2006-01-02"),
			"end":    b.End.Format("2006-01-02"),
			"reason": b.Reason,
		})
	}

	overnight := map[string]any{
		"weekdays": weekdayNames(rs.OvernightWeekdays),
		"default": map[string]string{
			"cutoff": rs.OvernightDefault.Cutoff.String(),
			"extend": rs.OvernightDefault.Extend.String(),
		},
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":           true,
		"timezone":          rs.Location.String(),
		"lead_hours":        rs.LeadHours,
		"slot_minutes":      rs.SlotMinutes,
		"hourly_rate_cents": rs.HourlyRateCents,
		"weekdays":          weekdays,
		"hours":             hours,
		"blackouts":         blackouts,
		"overnight":         overnight,
	})
}

func weekdayNames(days map[time.Weekday]bool) []string {
	names := make([]string, 0, len(days))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if days[d] {
			names = append(names, d.String())
		}
	}
	return names
}

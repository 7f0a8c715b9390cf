package api

import (
	"context"
	"net/http"
	"time"

	"antigravity/internal/availability"
	"antigravity/internal/metrics"
)

// SlotResponse is one offerable slot. End is "Overnight" for the overnight
// slot instead of a clock time.
type SlotResponse struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Label       string `json:"label"`
	IsOvernight bool   `json:"is_overnight,omitempty"`
}

// handleAvailability returns the bookable slots for a date.
// GET /api/availability?date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	metrics.IncAvailability()

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rs := s.rules.Current()
	date, err := parseDate(r.URL.Query().Get("date"), rs.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !rs.Weekdays[date.Weekday()] {
		writeError(w, http.StatusOK, "We are closed on "+date.Weekday().String()+"s.")
		return
	}

	now := s.now().In(rs.Location)
	overlaps := func(ctx context.Context, start, end time.Time) (bool, error) {
		return s.db.Blocking(ctx, start, end, now, rs.Lead())
	}

	slots, err := availability.EnumerateSlots(r.Context(), date, rs, now, overlaps)
	if err != nil {
		s.logger.Error().Err(err).Str("date", date.Format("2006-01-02")).Msg("enumerate slots failed")
		writeError(w, http.StatusInternalServerError, "failed to compute availability")
		return
	}

	out := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		resp := SlotResponse{
			Start:       slot.Start.Format("15:04"),
			End:         slot.End.Format("15:04"),
			Label:       slot.Label,
			IsOvernight: slot.IsOvernight,
		}
		if slot.IsOvernight {
			resp.End = "Overnight"
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "slots": out})
}

// Package availability evaluates booking rules against candidate intervals
// and enumerates bookable slots for a day. The package is pure: it performs
// no I/O, keeps no state and is safe for concurrent use. Knowledge of
// already-committed bookings enters only through an injected overlap
// predicate.
package availability

import (
	"context"
	"fmt"
	"time"

	"antigravity/internal/rules"
)

// ViolationCode identifies a broken rule.
type ViolationCode string

const (
	ViolationWeekdayClosed ViolationCode = "weekday_closed"
	ViolationBlackout      ViolationCode = "blackout"
	ViolationMidnightSpan  ViolationCode = "midnight_span"
	ViolationOutsideHours  ViolationCode = "outside_hours"
	ViolationLeadTime      ViolationCode = "lead_time"
)

// Violation is a single broken rule with a user-facing message.
type Violation struct {
	Code    ViolationCode
	Message string
}

// Result is the outcome of a rule check. Available is true iff Violations is
// empty.
type Result struct {
	Available  bool
	Violations []Violation
}

// OverlapTest reports whether an interval collides with an existing blocking
// booking. Implemented by the booking repository.
type OverlapTest func(ctx context.Context, start, end time.Time) (bool, error)

// Slot is a discrete offerable booking interval.
type Slot struct {
	Start       time.Time
	End         time.Time
	Label       string
	IsOvernight bool
}

// ClassifyOvernight reports whether a booking starting at start qualifies as
// overnight: the weekday must be overnight-eligible and the start clock time
// at or after the effective cutoff for that date (special date override, then
// per-weekday, then default).
func ClassifyOvernight(start time.Time, rs *rules.RuleSet) bool {
	if rs == nil || start.IsZero() {
		return false
	}
	if !rs.OvernightWeekdays[start.Weekday()] {
		return false
	}
	cutoff := rs.EffectiveOvernight(start).Cutoff
	return clockOf(start).Minutes() >= cutoff.Minutes()
}

// OvernightEnd returns the end of an overnight booking starting on date: the
// effective extend time on the following calendar day.
func OvernightEnd(date time.Time, rs *rules.RuleSet) time.Time {
	extend := rs.EffectiveOvernight(date).Extend
	return extend.On(date.AddDate(0, 0, 1))
}

// Check runs every availability rule against the candidate interval and
// accumulates all violations instead of stopping at the first, so callers can
// surface the complete reason list. Overlap with committed bookings is not
// checked here; that contract belongs to the repository.
//
// overnight is a hint from the caller; when false the interval is
// re-classified from the rule set so a qualifying start still skips the
// business-hours containment check.
func Check(start, end time.Time, rs *rules.RuleSet, now time.Time, overnight bool) Result {
	var violations []Violation

	day := start.Weekday()
	if !rs.Weekdays[day] {
		violations = append(violations, Violation{
			Code:    ViolationWeekdayClosed,
			Message: fmt.Sprintf("%ss are not available for booking.", day),
		})
	}
	if _, blocked := rs.BlackedOut(start); blocked {
		violations = append(violations, Violation{
			Code:    ViolationBlackout,
			Message: "This date is not available for booking.",
		})
	}

	if !overnight && !ClassifyOvernight(start, rs) {
		w := rs.HoursFor(start)
		startClock := clockOf(start)
		endClock := clockOf(end)
		switch {
		case sameDate(start, end) && endClock.Minutes() < startClock.Minutes(),
			!sameDate(start, end):
			// Only the dedicated overnight path may cross local midnight.
			violations = append(violations, Violation{
				Code:    ViolationMidnightSpan,
				Message: "Standard bookings cannot span across midnight.",
			})
		case startClock.Minutes() < w.Open.Minutes() || endClock.Minutes() > w.Close.Minutes():
			violations = append(violations, Violation{
				Code:    ViolationOutsideHours,
				Message: fmt.Sprintf("Booking times must be within business hours (%s - %s).", label12h(w.Open), label12h(w.Close)),
			})
		}
	}

	if start.Before(now.Add(rs.Lead())) {
		violations = append(violations, Violation{
			Code:    ViolationLeadTime,
			Message: fmt.Sprintf("Bookings must be made at least %d hours in advance.", rs.LeadHours),
		})
	}

	return Result{Available: len(violations) == 0, Violations: violations}
}

// EnumerateSlots returns the bookable slots for a date in ascending start
// order. Regular slots walk the business window in rule-set granularity
// steps, truncating a final partial slot; the overnight candidate anchored at
// the effective cutoff is evaluated independently and, when bookable, is
// always the last slot with its end labeled "Overnight".
func EnumerateSlots(ctx context.Context, date time.Time, rs *rules.RuleSet, now time.Time, overlaps OverlapTest) ([]Slot, error) {
	if !rs.DayOpen(date) {
		return nil, nil
	}

	var slots []Slot
	w := rs.HoursFor(date)
	step := rs.SlotStep()

	// On overnight-eligible days the regular walk stops at the cutoff, so
	// it can never produce a slot overlapping the overnight candidate.
	walkClose := w.Close.On(date)
	if rs.OvernightWeekdays[date.Weekday()] {
		if cutoff := rs.EffectiveOvernight(date).Cutoff; cutoff.Minutes() < w.Close.Minutes() {
			walkClose = cutoff.On(date)
		}
	}

	for cursor := w.Open.On(date); !cursor.Add(step).After(walkClose); cursor = cursor.Add(step) {
		slotStart := cursor
		slotEnd := cursor.Add(step)

		if res := Check(slotStart, slotEnd, rs, now, false); !res.Available {
			continue
		}
		if overlaps != nil {
			booked, err := overlaps(ctx, slotStart, slotEnd)
			if err != nil {
				return nil, fmt.Errorf("overlap check: %w", err)
			}
			if booked {
				continue
			}
		}

		slots = append(slots, Slot{
			Start: slotStart,
			End:   slotEnd,
			Label: fmt.Sprintf("%s - %s", timeLabel(slotStart), timeLabel(slotEnd)),
		})
	}

	// Overnight candidate, anchored at the effective cutoff for this date.
	cutoffStart := rs.EffectiveOvernight(date).Cutoff.On(date)
	if ClassifyOvernight(cutoffStart, rs) {
		overnightEnd := OvernightEnd(date, rs)
		if res := Check(cutoffStart, overnightEnd, rs, now, true); res.Available {
			booked := false
			if overlaps != nil {
				var err error
				booked, err = overlaps(ctx, cutoffStart, overnightEnd)
				if err != nil {
					return nil, fmt.Errorf("overnight overlap check: %w", err)
				}
			}
			if !booked {
				slots = append(slots, Slot{
					Start:       cutoffStart,
					End:         overnightEnd,
					Label:       fmt.Sprintf("%s (Overnight)", timeLabel(cutoffStart)),
					IsOvernight: true,
				})
			}
		}
	}

	return slots, nil
}

func clockOf(t time.Time) rules.Clock {
	return rules.Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func timeLabel(t time.Time) string {
	return t.Format("3:04 PM")
}

func label12h(c rules.Clock) string {
	return time.Date(0, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format("3:04 PM")
}

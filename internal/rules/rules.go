// Package rules defines the booking rule set: opening days and hours,
// blackout date ranges, overnight cutoff/extension times and pricing
// parameters. A RuleSet is loaded once, resolved against defaults at load
// time and treated as immutable by everything that evaluates it.
package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when the rules file leaves a field unset.
const (
	DefaultTimezone        = "America/Los_Angeles"
	DefaultLeadHours       = 48
	DefaultSlotMinutes     = 60
	DefaultHourlyRateCents = 10000

	DefaultOvernightCutoff = "22:00"
	DefaultOvernightExtend = "10:00"

	// Fallback business hours for a weekday that is open but has no
	// window configured.
	FallbackOpen  = "09:00"
	FallbackClose = "17:00"
)

// Clock is a local wall-clock time with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("invalid time format: %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("time out of range: %q", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// MustClock parses "HH:MM" and panics on failure. For package defaults only.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

// Before reports whether c is strictly earlier in the day than other.
func (c Clock) Before(other Clock) bool { return c.Minutes() < other.Minutes() }

// On anchors the clock time to the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, 0, 0, date.Location())
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// Window is a same-day business-hours window. Open is always before Close;
// overnight extension is modeled separately, never as a wraparound window.
type Window struct {
	Open  Clock
	Close Clock
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start  time.Time
	End    time.Time
	Reason string
}

// Contains reports whether date (any time of day) falls inside the range.
func (r DateRange) Contains(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(dateOnly(r.Start)) && !d.After(dateOnly(r.End))
}

// Overnight is a cutoff/extend pair: a booking starting at or after Cutoff
// runs until Extend on the following day.
type Overnight struct {
	Cutoff Clock
	Extend Clock
}

// RuleSet is the full rule configuration evaluated by the availability
// engine. All lookups are fully populated at load time.
type RuleSet struct {
	Location *time.Location

	Weekdays map[time.Weekday]bool
	Hours    map[time.Weekday]Window
	Blackouts []DateRange

	OvernightWeekdays map[time.Weekday]bool
	OvernightByDay    map[time.Weekday]Overnight
	OvernightDefault  Overnight
	// SpecialDates overrides overnight times for individual dates,
	// keyed YYYY-MM-DD. Highest priority.
	SpecialDates map[string]Overnight

	LeadHours       int
	SlotMinutes     int
	HourlyRateCents int64
}

// DayOpen reports whether the business accepts bookings on the given date:
// the weekday must be open and the date outside every blackout range.
func (rs *RuleSet) DayOpen(date time.Time) bool {
	if !rs.Weekdays[date.Weekday()] {
		return false
	}
	for _, r := range rs.Blackouts {
		if r.Contains(date) {
			return false
		}
	}
	return true
}

// BlackedOut returns the blackout range covering date, if any.
func (rs *RuleSet) BlackedOut(date time.Time) (DateRange, bool) {
	for _, r := range rs.Blackouts {
		if r.Contains(date) {
			return r, true
		}
	}
	return DateRange{}, false
}

// HoursFor returns the business-hours window for the date's weekday. When no
// window is configured for an open weekday the documented fallback hours are
// returned instead of failing.
func (rs *RuleSet) HoursFor(date time.Time) Window {
	if w, ok := rs.Hours[date.Weekday()]; ok {
		return w
	}
	return Window{Open: MustClock(FallbackOpen), Close: MustClock(FallbackClose)}
}

// EffectiveOvernight resolves the overnight cutoff/extend for a date:
// special-date override, then per-weekday, then the default.
func (rs *RuleSet) EffectiveOvernight(date time.Time) Overnight {
	if o, ok := rs.SpecialDates[date.Format("2006-01-02")]; ok {
		return o
	}
	if o, ok := rs.OvernightByDay[date.Weekday()]; ok {
		return o
	}
	return rs.OvernightDefault
}

// Lead returns the booking cutoff lead time.
func (rs *RuleSet) Lead() time.Duration {
	return time.Duration(rs.LeadHours) * time.Hour
}

// SlotStep returns the slot granularity.
func (rs *RuleSet) SlotStep() time.Duration {
	return time.Duration(rs.SlotMinutes) * time.Minute
}

// Validate checks structural invariants of a loaded rule set.
func (rs *RuleSet) Validate() error {
	if rs.Location == nil {
		return fmt.Errorf("rules: timezone not resolved")
	}
	if rs.SlotMinutes <= 0 {
		return fmt.Errorf("rules: slot_minutes must be positive, got %d", rs.SlotMinutes)
	}
	if rs.LeadHours < 0 {
		return fmt.Errorf("rules: lead_hours must not be negative, got %d", rs.LeadHours)
	}
	if rs.HourlyRateCents < 0 {
		return fmt.Errorf("rules: hourly_rate must not be negative")
	}
	for day, w := range rs.Hours {
		if !w.Open.Before(w.Close) {
			return fmt.Errorf("rules: %s hours invalid: open %s must be before close %s", strings.ToLower(day.String()), w.Open, w.Close)
		}
	}
	for _, r := range rs.Blackouts {
		if dateOnly(r.End).Before(dateOnly(r.Start)) {
			return fmt.Errorf("rules: blackout range %s..%s inverted", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
		}
	}
	return nil
}

// SortedBlackouts returns blackout ranges ordered by start date.
func (rs *RuleSet) SortedBlackouts() []DateRange {
	out := make([]DateRange, len(rs.Blackouts))
	copy(out, rs.Blackouts)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a lowercase English day name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday: %q", name)
	}
	return d, nil
}

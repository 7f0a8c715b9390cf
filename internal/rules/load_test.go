package rules

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleRules = `
timezone: "UTC"
lead_hours: 24
slot_minutes: 30
hourly_rate: 150.00

weekdays:
  - monday
  - friday

hours:
  monday: { open: "09:00", close: "17:00" }

blackouts:
  - start: "2026-12-24"
    end: "2026-12-26"
    reason: "holiday"
  - start: "2026-07-04"

overnight:
  weekdays:
    - friday
  cutoff: "21:00"
  extend: "11:00"
  by_weekday:
    friday: { cutoff: "23:00" }
  special_dates:
    "2026-12-31": { extend: "12:00" }
`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	rs, err := Load(writeRules(t, sampleRules))
	if err != nil {
		t.Fatal(err)
	}

	if rs.Location != time.UTC {
		t.Errorf("location = %v", rs.Location)
	}
	if rs.LeadHours != 24 || rs.SlotMinutes != 30 {
		t.Errorf("lead/slot = %d/%d", rs.LeadHours, rs.SlotMinutes)
	}
	if rs.HourlyRateCents != 15000 {
		t.Errorf("rate = %d", rs.HourlyRateCents)
	}

	if !rs.Weekdays[time.Monday] || !rs.Weekdays[time.Friday] {
		t.Error("configured weekdays not open")
	}
	if rs.Weekdays[time.Sunday] {
		t.Error("sunday open despite explicit weekday list")
	}

	if w := rs.Hours[time.Monday]; w.Open != MustClock("09:00") || w.Close != MustClock("17:00") {
		t.Errorf("monday hours = %v-%v", w.Open, w.Close)
	}

	if len(rs.Blackouts) != 2 {
		t.Fatalf("blackouts = %d", len(rs.Blackouts))
	}
	// Single-day blackout: missing end collapses to the start date.
	single := rs.Blackouts[1]
	if !single.Start.Equal(single.End) {
		t.Errorf("single-day blackout = %v..%v", single.Start, single.End)
	}

	if rs.OvernightWeekdays[time.Monday] {
		t.Error("monday overnight-eligible despite explicit list")
	}
	if !rs.OvernightWeekdays[time.Friday] {
		t.Error("friday not overnight-eligible")
	}

	// by_weekday omits extend: falls back to the package default, not the
	// file-level default.
	friday := rs.OvernightByDay[time.Friday]
	if friday.Cutoff != MustClock("23:00") {
		t.Errorf("friday cutoff = %v", friday.Cutoff)
	}
	if friday.Extend != MustClock(DefaultOvernightExtend) {
		t.Errorf("friday extend = %v", friday.Extend)
	}

	special := rs.SpecialDates["2026-12-31"]
	if special.Extend != MustClock("12:00") {
		t.Errorf("special extend = %v", special.Extend)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_RULES_TZ", "UTC")
	rs, err := Load(writeRules(t, "timezone: \"${TEST_RULES_TZ}\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if rs.Location != time.UTC {
		t.Errorf("location = %v", rs.Location)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProviderSwap(t *testing.T) {
	first, err := build(&fileFormat{})
	if err != nil {
		t.Fatal(err)
	}
	p := NewProvider(first)
	if p.Current() != first {
		t.Fatal("provider does not return seeded rule set")
	}

	lead := 12
	second, err := build(&fileFormat{LeadHours: &lead})
	if err != nil {
		t.Fatal(err)
	}
	p.Swap(second)
	if p.Current().LeadHours != 12 {
		t.Errorf("after swap lead = %d", p.Current().LeadHours)
	}
}

package rules

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileFormat mirrors the YAML rules file.
type fileFormat struct {
	Timezone    string  `yaml:"timezone"`
	LeadHours   *int    `yaml:"lead_hours"`
	SlotMinutes *int    `yaml:"slot_minutes"`
	HourlyRate  float64 `yaml:"hourly_rate"`

	Weekdays []string `yaml:"weekdays"`

	Hours map[string]struct {
		Open  string `yaml:"open"`
		Close string `yaml:"close"`
	} `yaml:"hours"`

	Blackouts []struct {
		Start  string `yaml:"start"`
		End    string `yaml:"end"`
		Reason string `yaml:"reason"`
	} `yaml:"blackouts"`

	Overnight struct {
		Weekdays  []string `yaml:"weekdays"`
		Cutoff    string   `yaml:"cutoff"`
		Extend    string   `yaml:"extend"`
		ByWeekday map[string]struct {
			Cutoff string `yaml:"cutoff"`
			Extend string `yaml:"extend"`
		} `yaml:"by_weekday"`
		SpecialDates map[string]struct {
			Cutoff string `yaml:"cutoff"`
			Extend string `yaml:"extend"`
		} `yaml:"special_dates"`
	} `yaml:"overnight"`
}

// Load reads the rules file, resolves every default and returns a validated
// immutable RuleSet.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	return build(&f)
}

func build(f *fileFormat) (*RuleSet, error) {
	if f.Timezone == "" {
		f.Timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(f.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", f.Timezone, err)
	}

	rs := &RuleSet{
		Location:          loc,
		Weekdays:          make(map[time.Weekday]bool),
		Hours:             make(map[time.Weekday]Window),
		OvernightWeekdays: make(map[time.Weekday]bool),
		OvernightByDay:    make(map[time.Weekday]Overnight),
		SpecialDates:      make(map[string]Overnight),
		LeadHours:         DefaultLeadHours,
		SlotMinutes:       DefaultSlotMinutes,
		HourlyRateCents:   DefaultHourlyRateCents,
	}

	if f.LeadHours != nil {
		rs.LeadHours = *f.LeadHours
	}
	if f.SlotMinutes != nil {
		rs.SlotMinutes = *f.SlotMinutes
	}
	if f.HourlyRate > 0 {
		rs.HourlyRateCents = int64(f.HourlyRate*100 + 0.5)
	}

	// No weekday list means open every day.
	if len(f.Weekdays) == 0 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			rs.Weekdays[d] = true
		}
	}
	for _, name := range f.Weekdays {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		rs.Weekdays[d] = true
	}

	for name, h := range f.Hours {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		open, err := ParseClock(h.Open)
		if err != nil {
			return nil, fmt.Errorf("%s open: %w", name, err)
		}
		closeAt, err := ParseClock(h.Close)
		if err != nil {
			return nil, fmt.Errorf("%s close: %w", name, err)
		}
		rs.Hours[d] = Window{Open: open, Close: closeAt}
	}

	for _, b := range f.Blackouts {
		start, err := time.ParseInLocation("2006-01-02", b.Start, loc)
		if err != nil {
			return nil, fmt.Errorf("blackout start %q: %w", b.Start, err)
		}
		end := start
		if b.End != "" {
			end, err = time.ParseInLocation("2006-01-02", b.End, loc)
			if err != nil {
				return nil, fmt.Errorf("blackout end %q: %w", b.End, err)
			}
		}
		rs.Blackouts = append(rs.Blackouts, DateRange{Start: start, End: end, Reason: b.Reason})
	}

	if len(f.Overnight.Weekdays) == 0 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			rs.OvernightWeekdays[d] = true
		}
	}
	for _, name := range f.Overnight.Weekdays {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		rs.OvernightWeekdays[d] = true
	}

	rs.OvernightDefault, err = parseOvernight(f.Overnight.Cutoff, f.Overnight.Extend)
	if err != nil {
		return nil, fmt.Errorf("overnight defaults: %w", err)
	}

	for name, o := range f.Overnight.ByWeekday {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		ov, err := parseOvernight(o.Cutoff, o.Extend)
		if err != nil {
			return nil, fmt.Errorf("overnight %s: %w", name, err)
		}
		rs.OvernightByDay[d] = ov
	}

	for date, o := range f.Overnight.SpecialDates {
		if _, err := time.ParseInLocation("2006-01-02", date, loc); err != nil {
			return nil, fmt.Errorf("overnight special date %q: %w", date, err)
		}
		ov, err := parseOvernight(o.Cutoff, o.Extend)
		if err != nil {
			return nil, fmt.Errorf("overnight special date %s: %w", date, err)
		}
		rs.SpecialDates[date] = ov
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return rs, nil
}

func parseOvernight(cutoff, extend string) (Overnight, error) {
	if cutoff == "" {
		cutoff = DefaultOvernightCutoff
	}
	if extend == "" {
		extend = DefaultOvernightExtend
	}
	c, err := ParseClock(cutoff)
	if err != nil {
		return Overnight{}, err
	}
	e, err := ParseClock(extend)
	if err != nil {
		return Overnight{}, err
	}
	return Overnight{Cutoff: c, Extend: e}, nil
}

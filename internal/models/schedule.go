package models

import (
	"fmt"
	"time"
)

type ScheduleType string

const (
	ScheduleOneTime   ScheduleType = "one-time"
	ScheduleRecurring ScheduleType = "recurring"
)

type FrequencyType string

const (
	FrequencyDaily   FrequencyType = "daily"
	FrequencyWeekly  FrequencyType = "weekly"
	FrequencyMonthly FrequencyType = "monthly"
	FrequencyYearly  FrequencyType = "yearly"
)

// DefaultStartTime is the wall-clock time used when a schedule has no
// explicit startTime.
const DefaultStartTime = "09:00"

// Frequency describes the recurrence pattern of a recurring schedule.
// DaysOfWeek uses 0=Sunday..6=Saturday; DaysOfMonth 1..31; MonthsOfYear 1..12.
type Frequency struct {
	Type         FrequencyType `json:"type"`
	Interval     int           `json:"interval"`
	DaysOfWeek   []int         `json:"daysOfWeek,omitempty"`
	DaysOfMonth  []int         `json:"daysOfMonth,omitempty"`
	MonthsOfYear []int         `json:"monthsOfYear,omitempty"`
}

// Override rewrites a single upcoming occurrence of a recurring schedule
// without touching the schedule itself. Date is the occurrence date the
// recurrence pattern produced; NewDate/NewTime/Message replace that
// occurrence's date, time, and message when set.
type Override struct {
	Date    string `json:"date"`
	NewDate string `json:"newDate,omitempty"`
	NewTime string `json:"newTime,omitempty"`
	Message string `json:"message,omitempty"`
}

// Schedule is a message schedule owned by a group. Calendar dates are
// "YYYY-MM-DD" strings, times are "HH:MM" 24h wall clock, and Timezone is an
// IANA identifier; the zone fallback chain is schedule → group → runtime
// default.
type Schedule struct {
	ID         string       `json:"id"`
	GroupID    string       `json:"groupId"`
	Type       ScheduleType `json:"type"`
	Name       string       `json:"name,omitempty"`
	Message    string       `json:"message,omitempty"`
	StartDate  string       `json:"startDate"`
	StartTime  string       `json:"startTime,omitempty"`
	EndDate    string       `json:"endDate,omitempty"`
	Frequency  *Frequency   `json:"frequency,omitempty"`
	Exceptions []string     `json:"exceptions,omitempty"`
	Overrides  []Override   `json:"overrides,omitempty"`
	Enabled    bool         `json:"enabled"`
	Timezone   string       `json:"timezone,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// ScheduleWithGroup is a schedule joined with its owning group's display
// fields, the shape the aggregator and dispatcher consume.
type ScheduleWithGroup struct {
	Schedule
	GroupName     string   `json:"groupName"`
	GroupTimezone string   `json:"groupTimezone,omitempty"`
	Channels      []string `json:"channels,omitempty"`
}

// IsRecurring returns true if this schedule repeats.
func (s *Schedule) IsRecurring() bool {
	return s.Type == ScheduleRecurring
}

// StartTimeOrDefault returns the schedule's wall-clock time, falling back to
// DefaultStartTime when unset.
func (s *Schedule) StartTimeOrDefault() string {
	if s.StartTime == "" {
		return DefaultStartTime
	}
	return s.StartTime
}

// OverrideFor returns the override recorded for the given occurrence date.
func (s *Schedule) OverrideFor(date string) (*Override, bool) {
	for i := range s.Overrides {
		if s.Overrides[i].Date == date {
			return &s.Overrides[i], true
		}
	}
	return nil, false
}

// Validate checks the schedule against its invariants and returns a
// user-facing error for the first violation found. Recurring patterns that
// could never fire (weekly without weekdays, monthly without month days) are
// rejected here so they cannot persist as silent no-ops.
func (s *Schedule) Validate() error {
	switch s.Type {
	case ScheduleOneTime, ScheduleRecurring:
	default:
		return fmt.Errorf("unknown schedule type %q", s.Type)
	}

	start, err := parseDate(s.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", s.StartDate)
	}
	if s.StartTime != "" {
		if _, err := parseClock(s.StartTime); err != nil {
			return fmt.Errorf("invalid start time %q: expected HH:MM", s.StartTime)
		}
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q", s.Timezone)
		}
	}

	if s.Type == ScheduleOneTime {
		// One-time schedules ignore frequency, endDate, and exceptions.
		return nil
	}

	if s.EndDate != "" {
		end, err := parseDate(s.EndDate)
		if err != nil {
			return fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", s.EndDate)
		}
		if end.Before(start) {
			return fmt.Errorf("end date %s is before start date %s", s.EndDate, s.StartDate)
		}
	}

	if s.Frequency == nil {
		return fmt.Errorf("recurring schedule needs a frequency")
	}
	if err := s.Frequency.validate(); err != nil {
		return err
	}

	for _, ex := range s.Exceptions {
		if _, err := parseDate(ex); err != nil {
			return fmt.Errorf("invalid exception date %q: expected YYYY-MM-DD", ex)
		}
	}
	for _, ov := range s.Overrides {
		if err := ov.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frequency) validate() error {
	switch f.Type {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return fmt.Errorf("unknown frequency type %q", f.Type)
	}
	if f.Interval < 1 {
		return fmt.Errorf("frequency interval must be at least 1, got %d", f.Interval)
	}
	for _, d := range f.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("day of week %d out of range 0-6", d)
		}
	}
	for _, d := range f.DaysOfMonth {
		if d < 1 || d > 31 {
			return fmt.Errorf("day of month %d out of range 1-31", d)
		}
	}
	for _, m := range f.MonthsOfYear {
		if m < 1 || m > 12 {
			return fmt.Errorf("month %d out of range 1-12", m)
		}
	}
	if f.Type == FrequencyWeekly && len(f.DaysOfWeek) == 0 {
		return fmt.Errorf("weekly schedule needs at least one day of week")
	}
	if f.Type == FrequencyMonthly && len(f.DaysOfMonth) == 0 {
		return fmt.Errorf("monthly schedule needs at least one day of month")
	}
	return nil
}

func (o *Override) validate() error {
	if _, err := parseDate(o.Date); err != nil {
		return fmt.Errorf("invalid override date %q: expected YYYY-MM-DD", o.Date)
	}
	if o.NewDate != "" {
		if _, err := parseDate(o.NewDate); err != nil {
			return fmt.Errorf("invalid override replacement date %q: expected YYYY-MM-DD", o.NewDate)
		}
	}
	if o.NewTime != "" {
		if _, err := parseClock(o.NewTime); err != nil {
			return fmt.Errorf("invalid override replacement time %q: expected HH:MM", o.NewTime)
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}

// Package recur computes concrete occurrence instants from schedule
// definitions. The engine is pure: every call takes an explicit reference
// instant and reads no clocks, so previews and dispatch decisions are
// deterministic and repeatable.
package recur

import (
	"fmt"
	"sort"
	"time"

	"github.com/tidings-app/tidings/internal/models"
	"github.com/tidings-app/tidings/internal/timezone"
)

// defaultHorizonDays bounds the forward scan to roughly two years. When no
// match exists inside the horizon the engine returns a short list, never an
// error and never a fabricated date.
const defaultHorizonDays = 730

// Engine resolves schedules to occurrence instants. The zero value is ready
// to use.
type Engine struct {
	// HorizonDays overrides the two-year lookahead bound when positive.
	HorizonDays int
}

// Instance is one resolved occurrence: the local calendar date and wall clock
// in the schedule's zone, the absolute instant, and the message after any
// per-occurrence override has been applied.
type Instance struct {
	Date    string
	Clock   string
	At      time.Time
	Message string
}

// Upcoming returns the schedule's next k occurrences strictly after now,
// ascending. Disabled schedules and exhausted lookaheads yield short or empty
// results.
func (e Engine) Upcoming(s *models.Schedule, loc *time.Location, now time.Time, k int) ([]Instance, error) {
	return e.collect(s, loc, now, k)
}

// DueNow returns the occurrences that should fire on this tick: instants on
// now's calendar day in the schedule's zone, at or before now. The caller is
// responsible for filtering out occurrences it has already fired.
func (e Engine) DueNow(s *models.Schedule, loc *time.Location, now time.Time) ([]Instance, error) {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	found, err := e.collect(s, loc, midnight.Add(-time.Nanosecond), 4+len(s.Overrides))
	if err != nil {
		return nil, err
	}
	today := local.Format(timezone.DateLayout)
	var due []Instance
	for _, in := range found {
		if in.Date == today && !in.At.After(now) {
			due = append(due, in)
		}
	}
	return due, nil
}

// DueOn reports whether the schedule produces an occurrence on the given
// local calendar date. Overrides are honored: a moved occurrence is due on
// its replacement date, not its pattern date.
func (e Engine) DueOn(s *models.Schedule, loc *time.Location, date string) (bool, error) {
	day, err := timezone.Midnight(date, loc)
	if err != nil {
		return false, err
	}
	endOfDay := day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	due, err := e.DueNow(s, loc, endOfDay)
	if err != nil {
		return false, err
	}
	return len(due) > 0, nil
}

// collect walks candidate dates forward and keeps those whose resolved
// instant is strictly after the reference. Candidates are real calendar days
// only, so a day-of-month absent from a month (Feb 31) is skipped outright,
// never clamped to month-end. Overrides are resolved up front, independent of
// the bounded walk, so a moved occurrence surfaces even when its pattern date
// lies far past the next k matches; the walk then covers only the
// non-overridden pattern dates and the merged result is re-sorted by instant
// and truncated.
func (e Engine) collect(s *models.Schedule, loc *time.Location, after time.Time, k int) ([]Instance, error) {
	if s == nil || !s.Enabled || k <= 0 {
		return nil, nil
	}
	clock := s.StartTimeOrDefault()

	if !s.IsRecurring() {
		inst, err := e.resolve(s, s.StartDate, clock, loc)
		if err != nil {
			return nil, err
		}
		if inst.At.After(after) {
			return []Instance{inst}, nil
		}
		return nil, nil
	}

	f := s.Frequency
	if f == nil {
		return nil, nil
	}
	start, err := civilDate(s.StartDate)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", s.ID, err)
	}

	ref := after.In(loc)
	refDate := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	from := refDate
	if from.Before(start) {
		from = start
	}
	limit := refDate.AddDate(0, 0, e.horizon())

	var end time.Time
	if s.EndDate != "" {
		if end, err = civilDate(s.EndDate); err != nil {
			return nil, fmt.Errorf("schedule %s: %w", s.ID, err)
		}
	}

	skip := make(map[string]bool, len(s.Exceptions))
	for _, ex := range s.Exceptions {
		skip[ex] = true
	}

	moved := make(map[string]bool, len(s.Overrides))
	var out []Instance
	for i := range s.Overrides {
		ov := &s.Overrides[i]
		orig, err := civilDate(ov.Date)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", s.ID, err)
		}
		moved[ov.Date] = true
		if skip[ov.Date] || !matches(f, start, orig) {
			continue
		}
		if s.EndDate != "" && orig.After(end) {
			continue
		}
		inst, err := e.resolve(s, ov.Date, clock, loc)
		if err != nil {
			return nil, err
		}
		if inst.At.After(after) {
			out = append(out, inst)
		}
	}

	walked := 0
	for d := from; !d.After(limit); d = d.AddDate(0, 0, 1) {
		if s.EndDate != "" && d.After(end) {
			break
		}
		if !matches(f, start, d) {
			continue
		}
		ds := d.Format(timezone.DateLayout)
		if skip[ds] || moved[ds] {
			continue
		}
		at, err := timezone.At(ds, clock, loc)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", s.ID, err)
		}
		if !at.After(after) {
			continue
		}
		out = append(out, Instance{Date: ds, Clock: clock, At: at, Message: s.Message})
		walked++
		if walked >= k {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// resolve turns a pattern date into an Instance, applying the schedule's
// override for that date if one exists.
func (e Engine) resolve(s *models.Schedule, date, clock string, loc *time.Location) (Instance, error) {
	msg := s.Message
	if ov, ok := s.OverrideFor(date); ok {
		if ov.NewDate != "" {
			date = ov.NewDate
		}
		if ov.NewTime != "" {
			clock = ov.NewTime
		}
		if ov.Message != "" {
			msg = ov.Message
		}
	}
	at, err := timezone.At(date, clock, loc)
	if err != nil {
		return Instance{}, fmt.Errorf("schedule %s: %w", s.ID, err)
	}
	return Instance{Date: date, Clock: clock, At: at, Message: msg}, nil
}

func (e Engine) horizon() int {
	if e.HorizonDays > 0 {
		return e.HorizonDays
	}
	return defaultHorizonDays
}

// matches is the frequency predicate: does this calendar date belong to the
// pattern anchored at start.
func matches(f *models.Frequency, start, d time.Time) bool {
	if d.Before(start) || f.Interval < 1 {
		return false
	}
	if len(f.MonthsOfYear) > 0 && !containsInt(f.MonthsOfYear, int(d.Month())) {
		return false
	}
	switch f.Type {
	case models.FrequencyDaily:
		return daysBetween(start, d)%f.Interval == 0
	case models.FrequencyWeekly:
		if !containsInt(f.DaysOfWeek, int(d.Weekday())) {
			return false
		}
		weeks := daysBetween(weekStart(start), weekStart(d)) / 7
		return weeks%f.Interval == 0
	case models.FrequencyMonthly:
		if !containsInt(f.DaysOfMonth, d.Day()) {
			return false
		}
		months := monthIndex(d) - monthIndex(start)
		return months%f.Interval == 0
	case models.FrequencyYearly:
		if d.Month() != start.Month() || d.Day() != start.Day() {
			return false
		}
		return (d.Year()-start.Year())%f.Interval == 0
	}
	return false
}

// civilDate parses YYYY-MM-DD to a UTC midnight used for pure date math.
func civilDate(s string) (time.Time, error) {
	t, err := time.Parse(timezone.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// daysBetween counts calendar days from a to b; both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// weekStart returns the Sunday beginning the week containing d. Weeks run
// Sunday through Saturday to match the 0=Sunday weekday model.
func weekStart(d time.Time) time.Time {
	return d.AddDate(0, 0, -int(d.Weekday()))
}

func monthIndex(d time.Time) int {
	return d.Year()*12 + int(d.Month()) - 1
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

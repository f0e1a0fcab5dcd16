// Package timezone converts between absolute instants and wall-clock
// (date, time) pairs in named IANA zones, and renders relative-day labels for
// dashboards. Conversions go through time.LoadLocation so DST rules for the
// specific date apply, never a fixed offset.
package timezone

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Location resolves the first non-empty zone name in the fallback chain
// (schedule zone, then group zone, then configured default). With no names
// left it returns the runtime's local zone.
func Location(names ...string) (*time.Location, error) {
	for _, name := range names {
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", name, err)
		}
		return loc, nil
	}
	return time.Local, nil
}

// Project formats an absolute instant as that zone's local calendar date and
// wall-clock time.
func Project(at time.Time, loc *time.Location) (date, clock string) {
	local := at.In(loc)
	return local.Format(DateLayout), local.Format(ClockLayout)
}

// At converts a local (date, clock) pair in the given zone back to an
// absolute instant. It is the inverse of Project.
func At(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q %q: %w", date, clock, err)
	}
	return t, nil
}

// Midnight returns the instant the given calendar date begins in the zone.
func Midnight(date string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return t, nil
}

// DayDelta counts whole calendar days from one instant to another as seen in
// the zone. Both instants are reduced to their local calendar date first, so
// DST transitions (23- or 25-hour days) never skew the count.
func DayDelta(from, to time.Time, loc *time.Location) int {
	f := from.In(loc)
	t := to.In(loc)
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(td.Sub(fd).Hours() / 24)
}

// Describe renders an instant as a relative bucket ("Today", "Tomorrow",
// "In 3 days", "In 2 weeks", ...) against the reference instant. Instants in
// the past fall back to the plain date.
func Describe(at, now time.Time, loc *time.Location) string {
	days := DayDelta(now, at, loc)
	switch {
	case days < 0:
		return at.In(loc).Format(DateLayout)
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days < 7:
		return fmt.Sprintf("In %d days", days)
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("In 1 %s", unit)
	}
	return fmt.Sprintf("In %d %ss", n, unit)
}

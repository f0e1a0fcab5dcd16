// Package holiday resolves named holidays to concrete calendar dates,
// including movable feasts. All dates are returned at UTC midnight; callers
// project them into a wall-clock zone themselves.
package holiday

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Key identifies a holiday the resolver knows how to place on the calendar.
type Key string

const (
	Christmas       Key = "christmas"
	Thanksgiving    Key = "thanksgiving"
	NewYear         Key = "new-year"
	Valentines      Key = "valentines"
	Easter          Key = "easter"
	MothersDay      Key = "mothers-day"
	FathersDay      Key = "fathers-day"
	LaborDay        Key = "labor-day"
	Halloween       Key = "halloween"
	IndependenceDay Key = "independence-day"
)

// ErrUnknownHoliday is returned for keys outside the closed set above.
var ErrUnknownHoliday = errors.New("unknown holiday")

// rollForwardCap bounds how many years Next will scan past the reference
// year. Every known holiday recurs annually, so one extra year already
// suffices; the cap only guards the loop.
const rollForwardCap = 5

type fixedDate struct {
	month time.Month
	day   int
}

var fixed = map[Key]fixedDate{
	Christmas:       {time.December, 25},
	NewYear:         {time.January, 1},
	Valentines:      {time.February, 14},
	Halloween:       {time.October, 31},
	IndependenceDay: {time.July, 4},
}

var labels = map[Key]string{
	Christmas:       "Christmas",
	Thanksgiving:    "Thanksgiving",
	NewYear:         "New Year's Day",
	Valentines:      "Valentine's Day",
	Easter:          "Easter",
	MothersDay:      "Mother's Day",
	FathersDay:      "Father's Day",
	LaborDay:        "Labor Day",
	Halloween:       "Halloween",
	IndependenceDay: "Independence Day",
}

// keyOrder fixes iteration order for Keys and ForDate so output is stable.
var keyOrder = []Key{
	NewYear,
	Valentines,
	Easter,
	MothersDay,
	FathersDay,
	IndependenceDay,
	LaborDay,
	Halloween,
	Thanksgiving,
	Christmas,
}

// Resolve returns the holiday's date in the given year.
func Resolve(key Key, year int) (time.Time, error) {
	if fd, ok := fixed[key]; ok {
		return time.Date(year, fd.month, fd.day, 0, 0, 0, 0, time.UTC), nil
	}
	switch key {
	case Thanksgiving:
		return nthWeekday(year, time.November, time.Thursday, 4), nil
	case MothersDay:
		return nthWeekday(year, time.May, time.Sunday, 2), nil
	case FathersDay:
		return nthWeekday(year, time.June, time.Sunday, 3), nil
	case LaborDay:
		return nthWeekday(year, time.September, time.Monday, 1), nil
	case Easter:
		return EasterSunday(year), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownHoliday, key)
}

// Next returns the holiday's next date on or after now's calendar day,
// rolling forward year by year so a holiday picker never offers a past date.
// The scan is a bounded loop, not recursion.
func Next(key Key, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i <= rollForwardCap; i++ {
		d, err := Resolve(key, now.Year()+i)
		if err != nil {
			return time.Time{}, err
		}
		if !d.Before(today) {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("no upcoming date for %q within %d years", key, rollForwardCap)
}

// ForDate is the reverse mapping: which holiday, if any, falls on the given
// calendar date. No match is (empty, false), never an error.
func ForDate(date time.Time) (Key, bool) {
	y, m, d := date.Date()
	for _, key := range keyOrder {
		h, err := Resolve(key, y)
		if err != nil {
			continue
		}
		hy, hm, hd := h.Date()
		if hy == y && hm == m && hd == d {
			return key, true
		}
	}
	return "", false
}

// Label returns the holiday's display name, or the raw key if unknown.
func Label(key Key) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return string(key)
}

// FromLabel maps a display name back to its key, case-insensitively.
func FromLabel(label string) (Key, bool) {
	for _, key := range keyOrder {
		if strings.EqualFold(labels[key], label) {
			return key, true
		}
	}
	return "", false
}

// Keys returns every known holiday key in calendar order.
func Keys() []Key {
	out := make([]Key, len(keyOrder))
	copy(out, keyOrder)
	return out
}

// nthWeekday returns the n-th given weekday of a month, e.g. the 4th Thursday
// of November.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	return time.Date(year, month, 1+offset+(n-1)*7, 0, 0, 0, 0, time.UTC)
}

package recur

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/tidings-app/tidings/internal/models"
	"github.com/tidings-app/tidings/internal/timezone"
)

// weekdayNames maps the 0=Sunday weekday model to RFC 5545 day codes.
var weekdayNames = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// RRuleString renders a frequency and optional inclusive end date as an
// RFC 5545 RRULE string, the exchange format used for AI-suggested schedules
// and calendar export.
func RRuleString(f *models.Frequency, endDate string) (string, error) {
	var parts []string

	switch f.Type {
	case models.FrequencyDaily:
		parts = append(parts, "FREQ=DAILY")
	case models.FrequencyWeekly:
		parts = append(parts, "FREQ=WEEKLY")
	case models.FrequencyMonthly:
		parts = append(parts, "FREQ=MONTHLY")
	case models.FrequencyYearly:
		parts = append(parts, "FREQ=YEARLY")
	default:
		return "", fmt.Errorf("no RRULE mapping for frequency type %q", f.Type)
	}

	if f.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", f.Interval))
	}

	if f.Type == models.FrequencyWeekly && len(f.DaysOfWeek) > 0 {
		days := make([]string, 0, len(f.DaysOfWeek))
		for _, d := range sortedInts(f.DaysOfWeek) {
			days = append(days, weekdayNames[d])
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if f.Type == models.FrequencyMonthly && len(f.DaysOfMonth) > 0 {
		parts = append(parts, "BYMONTHDAY="+joinInts(sortedInts(f.DaysOfMonth)))
	}
	if len(f.MonthsOfYear) > 0 {
		parts = append(parts, "BYMONTH="+joinInts(sortedInts(f.MonthsOfYear)))
	}

	if endDate != "" {
		end, err := civilDate(endDate)
		if err != nil {
			return "", err
		}
		// The end date is inclusive, so UNTIL points at that day's last second.
		until := end.Add(24*time.Hour - time.Second)
		parts = append(parts, "UNTIL="+until.Format("20060102T150405Z"))
	}

	return strings.Join(parts, ";"), nil
}

// FrequencyFromRRule parses an RRULE string into a frequency plus inclusive
// end date. Only the subset of RFC 5545 the schedule model can represent is
// accepted; anything else returns an error rather than being dropped
// silently.
func FrequencyFromRRule(rule string) (*models.Frequency, string, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")

	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, "", fmt.Errorf("parse RRULE %q: %w", rule, err)
	}
	if opt.Count > 0 {
		return nil, "", fmt.Errorf("RRULE COUNT is not supported, use UNTIL")
	}

	f := &models.Frequency{Interval: opt.Interval}
	if f.Interval == 0 {
		f.Interval = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		f.Type = models.FrequencyDaily
	case rrule.WEEKLY:
		f.Type = models.FrequencyWeekly
	case rrule.MONTHLY:
		f.Type = models.FrequencyMonthly
	case rrule.YEARLY:
		f.Type = models.FrequencyYearly
	default:
		return nil, "", fmt.Errorf("unsupported RRULE frequency in %q", rule)
	}

	for _, wd := range opt.Byweekday {
		// rrule-go counts weekdays from Monday=0; shift to Sunday=0.
		f.DaysOfWeek = append(f.DaysOfWeek, (wd.Day()+1)%7)
	}
	sort.Ints(f.DaysOfWeek)

	for _, md := range opt.Bymonthday {
		if md < 1 {
			return nil, "", fmt.Errorf("negative BYMONTHDAY %d is not supported", md)
		}
		f.DaysOfMonth = append(f.DaysOfMonth, md)
	}
	sort.Ints(f.DaysOfMonth)

	f.MonthsOfYear = append(f.MonthsOfYear, opt.Bymonth...)
	sort.Ints(f.MonthsOfYear)

	if f.Type == models.FrequencyWeekly && len(f.DaysOfWeek) == 0 {
		return nil, "", fmt.Errorf("weekly RRULE %q needs BYDAY", rule)
	}
	if f.Type == models.FrequencyMonthly && len(f.DaysOfMonth) == 0 {
		return nil, "", fmt.Errorf("monthly RRULE %q needs BYMONTHDAY", rule)
	}

	var endDate string
	if !opt.Until.IsZero() {
		endDate = opt.Until.UTC().Format(timezone.DateLayout)
	}
	return f, endDate, nil
}

// Describe renders a frequency as a short human-readable phrase, e.g.
// "every 2 weeks on Mon, Fri".
func Describe(f *models.Frequency) string {
	if f == nil {
		return "once"
	}
	var b strings.Builder

	unit := map[models.FrequencyType]string{
		models.FrequencyDaily:   "day",
		models.FrequencyWeekly:  "week",
		models.FrequencyMonthly: "month",
		models.FrequencyYearly:  "year",
	}[f.Type]
	if unit == "" {
		return string(f.Type)
	}
	if f.Interval > 1 {
		fmt.Fprintf(&b, "every %d %ss", f.Interval, unit)
	} else {
		fmt.Fprintf(&b, "every %s", unit)
	}

	if f.Type == models.FrequencyWeekly && len(f.DaysOfWeek) > 0 {
		names := make([]string, 0, len(f.DaysOfWeek))
		for _, d := range sortedInts(f.DaysOfWeek) {
			names = append(names, time.Weekday(d).String()[:3])
		}
		b.WriteString(" on " + strings.Join(names, ", "))
	}
	if f.Type == models.FrequencyMonthly && len(f.DaysOfMonth) > 0 {
		b.WriteString(" on day " + joinInts(sortedInts(f.DaysOfMonth)))
	}
	return b.String()
}

func sortedInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	return out
}

func joinInts(in []int) string {
	parts := make([]string, len(in))
	for i, v := range in {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/tidings-app/tidings/internal/models"
)

func TestCalendar(t *testing.T) {
	at := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	occurrences := []models.Occurrence{
		{
			ScheduleID:   "sch-1",
			ScheduleName: "Monday check-in",
			GroupID:      "g1",
			GroupName:    "Family",
			At:           at,
			Message:      "Happy Monday!",
		},
		{
			ScheduleID: "sch-2",
			GroupID:    "g1",
			At:         at.Add(24 * time.Hour),
		},
	}

	out := Calendar("Family schedule", occurrences, now)

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"END:VCALENDAR",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:Family schedule",
		"UID:sch-1-20240603T090000Z@tidings",
		"SUMMARY:Monday check-in (Family)",
		"DESCRIPTION:Happy Monday!",
		"DTSTART:20240603T090000Z",
		"DTEND:20240603T100000Z",
		"SUMMARY:Scheduled message",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("feed missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("event count = %d, want 2", got)
	}
}

func TestCalendarEmpty(t *testing.T) {
	out := Calendar("", nil, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	if !strings.Contains(out, "BEGIN:VCALENDAR") {
		t.Errorf("empty feed is not a calendar:\n%s", out)
	}
	if strings.Contains(out, "BEGIN:VEVENT") {
		t.Errorf("empty feed contains events:\n%s", out)
	}
}

// Package feed renders resolved occurrences as an iCalendar feed so upcoming
// sends can be subscribed to from any calendar app.
package feed

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/tidings-app/tidings/internal/models"
)

// eventDuration is the display length of a feed event. Occurrences are
// instants, but calendar clients render zero-length events poorly.
const eventDuration = time.Hour

// Calendar serializes the occurrences as a VCALENDAR document. The now
// argument stamps the events so output is reproducible for a fixed input.
func Calendar(name string, occurrences []models.Occurrence, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//tidings//schedule feed//EN")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, o := range occurrences {
		ev := cal.AddEvent(eventUID(o))
		ev.SetDtStampTime(now)
		ev.SetStartAt(o.At)
		ev.SetEndAt(o.At.Add(eventDuration))
		ev.SetSummary(summary(o))
		if o.Message != "" {
			ev.SetDescription(o.Message)
		}
	}
	return cal.Serialize()
}

// eventUID is stable per (schedule, instant) so clients treat a refreshed
// feed as an update rather than a stream of new events.
func eventUID(o models.Occurrence) string {
	return fmt.Sprintf("%s-%s@tidings", o.ScheduleID, o.At.UTC().Format("20060102T150405Z"))
}

func summary(o models.Occurrence) string {
	title := o.ScheduleName
	if title == "" {
		title = "Scheduled message"
	}
	if o.GroupName != "" {
		return fmt.Sprintf("%s (%s)", title, o.GroupName)
	}
	return title
}

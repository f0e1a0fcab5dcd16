// Package aggregate merges per-schedule occurrences into the single
// time-ordered feed the dashboard shows across every group.
package aggregate

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidings-app/tidings/internal/models"
	"github.com/tidings-app/tidings/internal/recur"
	"github.com/tidings-app/tidings/internal/timezone"
)

// Aggregator fans the recurrence engine out over many schedules and merges
// the results. A schedule that fails to resolve (bad zone, corrupt dates) is
// logged and skipped so one bad row cannot blank the whole dashboard.
type Aggregator struct {
	engine      recur.Engine
	defaultZone string
	log         zerolog.Logger
}

// New returns an aggregator resolving zones against the given runtime
// default.
func New(engine recur.Engine, defaultZone string, log zerolog.Logger) *Aggregator {
	return &Aggregator{engine: engine, defaultZone: defaultZone, log: log}
}

// Upcoming returns up to n occurrences across all schedules, ascending by
// instant. Equal instants are ordered by schedule id so repeated calls render
// identically.
func (a *Aggregator) Upcoming(schedules []models.ScheduleWithGroup, now time.Time, n int) []models.Occurrence {
	if n <= 0 {
		return nil
	}

	var merged []models.Occurrence
	for i := range schedules {
		s := &schedules[i]
		loc, err := timezone.Location(s.Timezone, s.GroupTimezone, a.defaultZone)
		if err != nil {
			a.log.Warn().Err(err).Str("schedule_id", s.ID).Msg("skipping schedule with unresolvable timezone")
			continue
		}
		insts, err := a.engine.Upcoming(&s.Schedule, loc, now, n)
		if err != nil {
			a.log.Warn().Err(err).Str("schedule_id", s.ID).Msg("skipping schedule that failed to resolve")
			continue
		}
		for _, in := range insts {
			merged = append(merged, models.Occurrence{
				ScheduleID:   s.ID,
				ScheduleName: s.Name,
				GroupID:      s.GroupID,
				GroupName:    s.GroupName,
				At:           in.At,
				Message:      in.Message,
			})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].At.Equal(merged[j].At) {
			return merged[i].ScheduleID < merged[j].ScheduleID
		}
		return merged[i].At.Before(merged[j].At)
	})
	if len(merged) > n {
		merged = merged[:n]
	}
	return merged
}

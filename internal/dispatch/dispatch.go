// Package dispatch runs the delivery pass: on a fixed cadence it finds the
// occurrences that are due right now, claims each one so it fires at most
// once per occurrence date, sends, and records the outcome.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tidings-app/tidings/internal/ai"
	"github.com/tidings-app/tidings/internal/models"
	"github.com/tidings-app/tidings/internal/recur"
	"github.com/tidings-app/tidings/internal/timezone"
)

// ScheduleSource lists the schedules eligible for dispatch.
type ScheduleSource interface {
	ListEnabledWithGroup(ctx context.Context) ([]models.ScheduleWithGroup, error)
}

// GroupSource loads a group together with its contacts.
type GroupSource interface {
	GetByID(ctx context.Context, groupID string) (*models.Group, error)
}

// FireLog persists the per-occurrence markers that keep firing idempotent
// across ticks and restarts. Claim returns false when the occurrence was
// already handled.
type FireLog interface {
	Claim(ctx context.Context, scheduleID, groupID, fireDate string) (bool, error)
	Settle(ctx context.Context, scheduleID, fireDate string, result models.DispatchResult, statuses []models.RecipientStatus) error
}

// Sender fans a message out to a group's contacts over the named channels.
type Sender interface {
	Send(ctx context.Context, group *models.Group, text string, channelNames []string) []models.RecipientStatus
}

// Composer writes message text for schedules that carry none. Optional; pass
// nil to fall back to the schedule name.
type Composer interface {
	ComposeGreeting(ctx context.Context, req ai.ComposeRequest) (string, error)
}

const (
	defaultCronSpec     = "0 * * * *"
	defaultGroupTimeout = 30 * time.Second
	fallbackMessage     = "Thinking of you today."
)

// Config carries the trigger's knobs. Zero values mean hourly ticks in the
// local zone with a 30 second deadline per group.
type Config struct {
	CronSpec     string
	Timezone     string
	GroupTimeout time.Duration
}

// Trigger owns the dispatch pass. Passes are serialized: an overlapping tick
// waits for the previous pass instead of racing it.
type Trigger struct {
	schedules ScheduleSource
	groups    GroupSource
	fires     FireLog
	sender    Sender
	composer  Composer

	engine recur.Engine
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func New(schedules ScheduleSource, groups GroupSource, fires FireLog, sender Sender, composer Composer, engine recur.Engine, cfg Config, log zerolog.Logger) *Trigger {
	if cfg.CronSpec == "" {
		cfg.CronSpec = defaultCronSpec
	}
	if cfg.GroupTimeout <= 0 {
		cfg.GroupTimeout = defaultGroupTimeout
	}
	return &Trigger{
		schedules: schedules,
		groups:    groups,
		fires:     fires,
		sender:    sender,
		composer:  composer,
		engine:    engine,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Start begins ticking on the configured cron spec.
func (t *Trigger) Start() error {
	if t.cron != nil {
		return nil
	}
	loc, err := timezone.Location(t.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load dispatch timezone: %w", err)
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(t.cfg.CronSpec, func() {
		if err := t.RunOnce(context.Background()); err != nil {
			t.log.Error().Err(err).Msg("dispatch pass failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to register dispatch job: %w", err)
	}
	c.Start()
	t.cron = c
	t.log.Info().Str("cron", t.cfg.CronSpec).Str("timezone", loc.String()).Msg("dispatch trigger started")
	return nil
}

// Stop halts ticking and waits for an in-flight pass to finish, bounded by
// ctx.
func (t *Trigger) Stop(ctx context.Context) {
	if t.cron == nil {
		return
	}
	select {
	case <-t.cron.Stop().Done():
	case <-ctx.Done():
	}
	t.cron = nil
	t.log.Info().Msg("dispatch trigger stopped")
}

// RunOnce performs a single dispatch pass over every enabled schedule.
// Concurrent calls queue behind each other.
func (t *Trigger) RunOnce(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	schedules, err := t.schedules.ListEnabledWithGroup(ctx)
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	order, byGroup := groupSchedules(schedules)
	fired := 0
	for _, groupID := range order {
		fired += t.runGroup(ctx, now, groupID, byGroup[groupID])
	}
	if fired > 0 {
		t.log.Debug().Int("fired", fired).Msg("dispatch pass complete")
	}
	return nil
}

// groupSchedules buckets schedules by group, preserving first-seen order so
// passes are deterministic.
func groupSchedules(schedules []models.ScheduleWithGroup) ([]string, map[string][]models.ScheduleWithGroup) {
	order := make([]string, 0, len(schedules))
	byGroup := make(map[string][]models.ScheduleWithGroup)
	for _, s := range schedules {
		if _, ok := byGroup[s.GroupID]; !ok {
			order = append(order, s.GroupID)
		}
		byGroup[s.GroupID] = append(byGroup[s.GroupID], s)
	}
	return order, byGroup
}

// runGroup dispatches one group's due occurrences under its own deadline so
// a stuck group cannot stall the rest of the pass. Returns how many
// occurrences fired.
func (t *Trigger) runGroup(ctx context.Context, now time.Time, groupID string, schedules []models.ScheduleWithGroup) int {
	gctx, cancel := context.WithTimeout(ctx, t.cfg.GroupTimeout)
	defer cancel()

	fired := 0
	var group *models.Group
	for i := range schedules {
		s := &schedules[i]
		loc, err := timezone.Location(s.Timezone, s.GroupTimezone, t.cfg.Timezone)
		if err != nil {
			t.log.Warn().Err(err).Str("schedule_id", s.ID).Msg("skipping schedule with unknown timezone")
			continue
		}
		due, err := t.engine.DueNow(&s.Schedule, loc, now)
		if err != nil {
			t.log.Warn().Err(err).Str("schedule_id", s.ID).Msg("skipping schedule that failed to resolve")
			continue
		}
		for _, inst := range due {
			claimed, err := t.fires.Claim(gctx, s.ID, s.GroupID, inst.Date)
			if err != nil {
				t.log.Error().Err(err).Str("schedule_id", s.ID).Str("fire_date", inst.Date).Msg("failed to claim occurrence")
				continue
			}
			if !claimed {
				continue
			}
			if group == nil {
				group, err = t.groups.GetByID(gctx, groupID)
				if err != nil {
					t.log.Error().Err(err).Str("group_id", groupID).Msg("failed to load group")
					t.settle(gctx, s.ID, inst.Date, models.ResultFailed, nil)
					continue
				}
			}
			text := t.messageFor(gctx, s, inst)
			statuses := t.sender.Send(gctx, group, text, s.Channels)
			result := resultFor(statuses)
			t.settle(gctx, s.ID, inst.Date, result, statuses)
			if result == models.ResultFired {
				fired++
			}
			t.log.Info().
				Str("schedule_id", s.ID).
				Str("group_id", groupID).
				Str("fire_date", inst.Date).
				Str("result", string(result)).
				Int("recipients", len(statuses)).
				Msg("dispatched occurrence")
		}
	}
	return fired
}

// messageFor picks the outgoing text: the stored message (or its override),
// then a composed greeting, then the schedule name.
func (t *Trigger) messageFor(ctx context.Context, s *models.ScheduleWithGroup, inst recur.Instance) string {
	if inst.Message != "" {
		return inst.Message
	}
	if t.composer != nil {
		req := ai.ComposeRequest{
			GroupName: s.GroupName,
			Occasion:  s.Name,
			Date:      inst.Date,
		}
		if s.Frequency != nil {
			req.Recurrence = recur.Describe(s.Frequency)
		}
		text, err := t.composer.ComposeGreeting(ctx, req)
		if err != nil {
			t.log.Warn().Err(err).Str("schedule_id", s.ID).Msg("greeting composition failed, using fallback")
		} else if text != "" {
			return text
		}
	}
	if s.Name != "" {
		return s.Name
	}
	return fallbackMessage
}

func (t *Trigger) settle(ctx context.Context, scheduleID, fireDate string, result models.DispatchResult, statuses []models.RecipientStatus) {
	if err := t.fires.Settle(ctx, scheduleID, fireDate, result, statuses); err != nil {
		t.log.Error().Err(err).Str("schedule_id", scheduleID).Str("fire_date", fireDate).Msg("failed to record dispatch outcome")
	}
}

// resultFor collapses per-recipient outcomes into the firing's result. No
// deliverable recipients at all counts as skipped, not failed.
func resultFor(statuses []models.RecipientStatus) models.DispatchResult {
	anySent, anyFailed := false, false
	for _, st := range statuses {
		switch st.Status {
		case models.StatusSent:
			anySent = true
		case models.StatusFailed:
			anyFailed = true
		}
	}
	switch {
	case anySent:
		return models.ResultFired
	case anyFailed:
		return models.ResultFailed
	default:
		return models.ResultSkipped
	}
}

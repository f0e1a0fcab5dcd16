package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tidings-app/tidings/internal/database"
	"github.com/tidings-app/tidings/internal/models"
)

type ScheduleRepository struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `schedule_id, group_id, type, name, message, start_date, start_time, end_date,
	frequency, exceptions, overrides, enabled, timezone, created_at, updated_at`

func (r *ScheduleRepository) Create(ctx context.Context, s *models.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	freq, overrides, err := marshalScheduleJSON(s)
	if err != nil {
		return err
	}
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO schedules (schedule_id, group_id, type, name, message, start_date, start_time, end_date,
			frequency, exceptions, overrides, enabled, timezone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at, updated_at`,
		s.ID, s.GroupID, string(s.Type), s.Name, s.Message, s.StartDate, s.StartTime, s.EndDate,
		freq, exceptionsArray(s.Exceptions), overrides, s.Enabled, s.Timezone,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE schedule_id = $1`,
		scheduleID,
	)
	return scanSchedule(row)
}

func (r *ScheduleRepository) ListByGroup(ctx context.Context, groupID string) ([]*models.Schedule, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE group_id = $1 ORDER BY created_at ASC`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// ListEnabledWithGroup returns every enabled schedule joined with its owning
// group's display fields, the working set for the aggregator and dispatcher.
func (r *ScheduleRepository) ListEnabledWithGroup(ctx context.Context) ([]models.ScheduleWithGroup, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT s.schedule_id, s.group_id, s.type, s.name, s.message, s.start_date, s.start_time, s.end_date,
			s.frequency, s.exceptions, s.overrides, s.enabled, s.timezone, s.created_at, s.updated_at,
			g.name, g.timezone, g.channels
		 FROM schedules s
		 JOIN groups g ON g.group_id = s.group_id
		 WHERE s.enabled
		 ORDER BY s.schedule_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScheduleWithGroup
	for rows.Next() {
		var (
			sw        models.ScheduleWithGroup
			typ       string
			freq      []byte
			overrides []byte
		)
		if err := rows.Scan(&sw.ID, &sw.GroupID, &typ, &sw.Name, &sw.Message, &sw.StartDate, &sw.StartTime, &sw.EndDate,
			&freq, &sw.Exceptions, &overrides, &sw.Enabled, &sw.Timezone, &sw.CreatedAt, &sw.UpdatedAt,
			&sw.GroupName, &sw.GroupTimezone, &sw.Channels); err != nil {
			return nil, err
		}
		sw.Type = models.ScheduleType(typ)
		if err := unmarshalScheduleJSON(&sw.Schedule, freq, overrides); err != nil {
			return nil, err
		}
		out = append(out, sw)
	}
	return out, rows.Err()
}

func (r *ScheduleRepository) Update(ctx context.Context, s *models.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	freq, overrides, err := marshalScheduleJSON(s)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx,
		`UPDATE schedules SET type = $1, name = $2, message = $3, start_date = $4, start_time = $5,
			end_date = $6, frequency = $7, exceptions = $8, overrides = $9, enabled = $10,
			timezone = $11, updated_at = NOW()
		 WHERE schedule_id = $12`,
		string(s.Type), s.Name, s.Message, s.StartDate, s.StartTime, s.EndDate,
		freq, exceptionsArray(s.Exceptions), overrides, s.Enabled, s.Timezone, s.ID,
	)
	return err
}

func (r *ScheduleRepository) SetEnabled(ctx context.Context, scheduleID string, enabled bool) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE schedules SET enabled = $1, updated_at = NOW() WHERE schedule_id = $2`,
		enabled, scheduleID,
	)
	return err
}

// AddException suppresses one occurrence date. Adding the same date twice is
// a no-op.
func (r *ScheduleRepository) AddException(ctx context.Context, scheduleID, date string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE schedules SET exceptions = array_append(exceptions, $1), updated_at = NOW()
		 WHERE schedule_id = $2 AND NOT exceptions @> ARRAY[$1]`,
		date, scheduleID,
	)
	return err
}

// SetOverride records a per-occurrence override, replacing any previous
// override for the same occurrence date.
func (r *ScheduleRepository) SetOverride(ctx context.Context, scheduleID string, ov models.Override) error {
	return r.updateOverrides(ctx, scheduleID, func(overrides []models.Override) []models.Override {
		return mergeOverride(overrides, ov)
	})
}

// ClearOverride removes the override for an occurrence date if one exists.
func (r *ScheduleRepository) ClearOverride(ctx context.Context, scheduleID, date string) error {
	return r.updateOverrides(ctx, scheduleID, func(overrides []models.Override) []models.Override {
		return removeOverride(overrides, date)
	})
}

// updateOverrides rewrites the overrides column inside a transaction with the
// row locked, so two concurrent occurrence edits cannot lose each other's
// write.
func (r *ScheduleRepository) updateOverrides(ctx context.Context, scheduleID string, mutate func([]models.Override) []models.Override) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var raw []byte
	if err := tx.QueryRow(ctx,
		`SELECT overrides FROM schedules WHERE schedule_id = $1 FOR UPDATE`,
		scheduleID,
	).Scan(&raw); err != nil {
		return err
	}
	var overrides []models.Override
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &overrides); err != nil {
			return fmt.Errorf("unmarshal overrides of %s: %w", scheduleID, err)
		}
	}

	next := mutate(overrides)
	if next == nil {
		next = []models.Override{}
	}
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE schedules SET overrides = $1, updated_at = NOW() WHERE schedule_id = $2`,
		payload, scheduleID,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// mergeOverride appends the override, dropping any existing one for the same
// occurrence date.
func mergeOverride(overrides []models.Override, ov models.Override) []models.Override {
	kept := removeOverride(overrides, ov.Date)
	return append(kept, ov)
}

func removeOverride(overrides []models.Override, date string) []models.Override {
	kept := make([]models.Override, 0, len(overrides))
	for _, existing := range overrides {
		if existing.Date != date {
			kept = append(kept, existing)
		}
	}
	return kept
}

func (r *ScheduleRepository) Delete(ctx context.Context, scheduleID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM schedules WHERE schedule_id = $1`,
		scheduleID,
	)
	return err
}

func scanSchedule(row pgx.Row) (*models.Schedule, error) {
	var (
		s         models.Schedule
		typ       string
		freq      []byte
		overrides []byte
	)
	err := row.Scan(&s.ID, &s.GroupID, &typ, &s.Name, &s.Message, &s.StartDate, &s.StartTime, &s.EndDate,
		&freq, &s.Exceptions, &overrides, &s.Enabled, &s.Timezone, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Type = models.ScheduleType(typ)
	if err := unmarshalScheduleJSON(&s, freq, overrides); err != nil {
		return nil, err
	}
	return &s, nil
}

func marshalScheduleJSON(s *models.Schedule) (freq, overrides []byte, err error) {
	if s.Frequency != nil {
		if freq, err = json.Marshal(s.Frequency); err != nil {
			return nil, nil, fmt.Errorf("marshal frequency: %w", err)
		}
	}
	if overrides, err = json.Marshal(s.Overrides); err != nil {
		return nil, nil, fmt.Errorf("marshal overrides: %w", err)
	}
	return freq, overrides, nil
}

func unmarshalScheduleJSON(s *models.Schedule, freq, overrides []byte) error {
	if len(freq) > 0 {
		if err := json.Unmarshal(freq, &s.Frequency); err != nil {
			return fmt.Errorf("unmarshal frequency of %s: %w", s.ID, err)
		}
	}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &s.Overrides); err != nil {
			return fmt.Errorf("unmarshal overrides of %s: %w", s.ID, err)
		}
	}
	return nil
}

// exceptionsArray keeps empty exception sets as empty text[] instead of NULL.
func exceptionsArray(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

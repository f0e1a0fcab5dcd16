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

// DispatchLogRepository persists the per-(schedule, occurrence date) fire
// markers that make dispatch idempotent, plus the settled outcomes.
type DispatchLogRepository struct {
	db *database.DB
}

func NewDispatchLogRepository(db *database.DB) *DispatchLogRepository {
	return &DispatchLogRepository{db: db}
}

// Claim atomically takes ownership of one (schedule, fire date) firing. It
// returns false when another run already holds or settled the marker; a
// firing that previously settled as failed may be claimed again, so failures
// are retried on a later tick without ever re-sending a success.
func (r *DispatchLogRepository) Claim(ctx context.Context, scheduleID, groupID, fireDate string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`INSERT INTO dispatch_log (dispatch_id, schedule_id, group_id, fire_date, result)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (schedule_id, fire_date) DO UPDATE SET result = $5, fired_at = NOW()
		 WHERE dispatch_log.result = $6`,
		uuid.NewString(), scheduleID, groupID, fireDate,
		string(models.ResultPending), string(models.ResultFailed),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Settle records the outcome of a claimed firing.
func (r *DispatchLogRepository) Settle(ctx context.Context, scheduleID, fireDate string, result models.DispatchResult, statuses []models.RecipientStatus) error {
	if statuses == nil {
		statuses = []models.RecipientStatus{}
	}
	payload, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("marshal statuses: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`UPDATE dispatch_log SET result = $1, statuses = $2, fired_at = NOW()
		 WHERE schedule_id = $3 AND fire_date = $4`,
		string(result), payload, scheduleID, fireDate,
	)
	return err
}

func (r *DispatchLogRepository) ListBySchedule(ctx context.Context, scheduleID string, limit int) ([]*models.DispatchRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT dispatch_id, schedule_id, group_id, fire_date, fired_at, result, statuses
		 FROM dispatch_log WHERE schedule_id = $1
		 ORDER BY fired_at DESC LIMIT $2`,
		scheduleID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDispatchRecords(rows)
}

// ListByDate returns every firing recorded for one calendar date, the view a
// daily digest or operator check reads.
func (r *DispatchLogRepository) ListByDate(ctx context.Context, fireDate string) ([]*models.DispatchRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT dispatch_id, schedule_id, group_id, fire_date, fired_at, result, statuses
		 FROM dispatch_log WHERE fire_date = $1
		 ORDER BY fired_at ASC`,
		fireDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDispatchRecords(rows)
}

func scanDispatchRecords(rows pgx.Rows) ([]*models.DispatchRecord, error) {
	var records []*models.DispatchRecord
	for rows.Next() {
		var (
			rec      models.DispatchRecord
			result   string
			statuses []byte
		)
		if err := rows.Scan(&rec.ID, &rec.ScheduleID, &rec.GroupID, &rec.FireDate, &rec.FiredAt, &result, &statuses); err != nil {
			return nil, err
		}
		rec.Result = models.DispatchResult(result)
		if len(statuses) > 0 {
			if err := json.Unmarshal(statuses, &rec.Statuses); err != nil {
				return nil, fmt.Errorf("unmarshal statuses of %s: %w", rec.ID, err)
			}
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

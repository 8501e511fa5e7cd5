package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"stride/internal/domain"
)

const actionCols = `id,user_id,milestone_id,title,COALESCE(description,'') AS description,status,estimated_minutes,COALESCE(trigger_text,'') AS trigger_text,recurrence_json,last_occurrence,created_at,updated_at,completed_at`

func scanAction(scan func(dest ...any) error) (domain.Action, error) {
	var a domain.Action
	var est sql.NullInt64
	var recurrence, lastOccurrence, completedAt sql.NullString
	err := scan(&a.ID, &a.UserID, &a.MilestoneID, &a.Title, &a.Description, &a.Status,
		&est, &a.Trigger, &recurrence, &lastOccurrence, &a.CreatedAt, &a.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if est.Valid {
		v := int(est.Int64)
		a.EstimatedMinutes = &v
	}
	if recurrence.Valid && recurrence.String != "" {
		var p domain.RecurrencePattern
		if err := json.Unmarshal([]byte(recurrence.String), &p); err == nil {
			a.Recurrence = &p
		}
	}
	if lastOccurrence.Valid {
		a.LastOccurrence = &lastOccurrence.String
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.String
	}
	return a, nil
}

func marshalRecurrence(p *domain.RecurrencePattern) (any, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r Repo) InsertActionTx(ctx context.Context, tx *sql.Tx, a domain.Action) error {
	rec, err := marshalRecurrence(a.Recurrence)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO actions(id,user_id,milestone_id,title,description,status,estimated_minutes,trigger_text,recurrence_json,last_occurrence,created_at,updated_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.UserID, a.MilestoneID, a.Title, nullable(a.Description), a.Status,
		nullableInt(a.EstimatedMinutes), nullable(a.Trigger), rec, nullablePtr(a.LastOccurrence),
		a.CreatedAt, a.UpdatedAt, nullablePtr(a.CompletedAt))
	return err
}

func (r Repo) GetAction(ctx context.Context, userID, id string) (domain.Action, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+actionCols+` FROM actions WHERE id=? AND user_id=?`, id, userID)
	return scanAction(row.Scan)
}

func (r Repo) ListActions(ctx context.Context, userID string) ([]domain.Action, error) {
	return r.listActions(ctx, `SELECT `+actionCols+` FROM actions WHERE user_id=? ORDER BY created_at ASC, id ASC`, userID)
}

func (r Repo) ListActionsByMilestone(ctx context.Context, userID, milestoneID string) ([]domain.Action, error) {
	return r.listActions(ctx, `SELECT `+actionCols+` FROM actions WHERE user_id=? AND milestone_id=? ORDER BY created_at ASC, id ASC`, userID, milestoneID)
}

// ListRecurringActions returns the user's actions carrying a recurrence
// pattern, excluding rolled-over instances.
func (r Repo) ListRecurringActions(ctx context.Context, userID string) ([]domain.Action, error) {
	return r.listActions(ctx, `SELECT `+actionCols+` FROM actions WHERE user_id=? AND recurrence_json IS NOT NULL AND status != 'rolled-over' ORDER BY created_at ASC, id ASC`, userID)
}

func (r Repo) listActions(ctx context.Context, query string, args ...any) ([]domain.Action, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Action
	for rows.Next() {
		a, err := scanAction(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpdateActionTx(ctx context.Context, tx *sql.Tx, a domain.Action) error {
	rec, err := marshalRecurrence(a.Recurrence)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE actions SET milestone_id=?, title=?, description=?, status=?, estimated_minutes=?, trigger_text=?, recurrence_json=?, last_occurrence=?, updated_at=?, completed_at=? WHERE id=? AND user_id=?`,
		a.MilestoneID, a.Title, nullable(a.Description), a.Status, nullableInt(a.EstimatedMinutes),
		nullable(a.Trigger), rec, nullablePtr(a.LastOccurrence), a.UpdatedAt, nullablePtr(a.CompletedAt),
		a.ID, a.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteActionTx(ctx context.Context, tx *sql.Tx, userID, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM actions WHERE user_id=? AND id=?`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

package repo

import (
	"context"
	"database/sql"
	"errors"

	"stride/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const driverCols = `id,user_id,title,COALESCE(description,'') AS description,active,archived,created_at,updated_at`

func scanDriver(scan func(dest ...any) error) (domain.Driver, error) {
	var d domain.Driver
	err := scan(&d.ID, &d.UserID, &d.Title, &d.Description, &d.Active, &d.Archived, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

func (r Repo) InsertDriverTx(ctx context.Context, tx *sql.Tx, d domain.Driver) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO drivers(id,user_id,title,description,active,archived,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		d.ID, d.UserID, d.Title, nullable(d.Description), d.Active, d.Archived, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) GetDriver(ctx context.Context, userID, id string) (domain.Driver, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+driverCols+` FROM drivers WHERE id=? AND user_id=?`, id, userID)
	return scanDriver(row.Scan)
}

func (r Repo) ListDrivers(ctx context.Context, userID string) ([]domain.Driver, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+driverCols+` FROM drivers WHERE user_id=? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Driver
	for rows.Next() {
		d, err := scanDriver(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) UpdateDriverTx(ctx context.Context, tx *sql.Tx, d domain.Driver) error {
	res, err := tx.ExecContext(ctx, `UPDATE drivers SET title=?, description=?, active=?, archived=?, updated_at=? WHERE id=? AND user_id=?`,
		d.Title, nullable(d.Description), d.Active, d.Archived, d.UpdatedAt, d.ID, d.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDriverCascadeTx removes the driver, its milestones and their actions.
func (r Repo) DeleteDriverCascadeTx(ctx context.Context, tx *sql.Tx, userID, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM actions WHERE user_id=? AND milestone_id IN (SELECT id FROM milestones WHERE user_id=? AND driver_id=?)`,
		userID, userID, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM milestones WHERE user_id=? AND driver_id=?`, userID, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM drivers WHERE user_id=? AND id=?`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const milestoneCols = `id,user_id,driver_id,title,COALESCE(description,'') AS description,target_date,created_at,updated_at`

func scanMilestone(scan func(dest ...any) error) (domain.Milestone, error) {
	var m domain.Milestone
	var target sql.NullString
	err := scan(&m.ID, &m.UserID, &m.DriverID, &m.Title, &m.Description, &target, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if target.Valid {
		m.TargetDate = &target.String
	}
	return m, err
}

func (r Repo) InsertMilestoneTx(ctx context.Context, tx *sql.Tx, m domain.Milestone) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO milestones(id,user_id,driver_id,title,description,target_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		m.ID, m.UserID, m.DriverID, m.Title, nullable(m.Description), nullablePtr(m.TargetDate), m.CreatedAt, m.UpdatedAt)
	return err
}

func (r Repo) GetMilestone(ctx context.Context, userID, id string) (domain.Milestone, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+milestoneCols+` FROM milestones WHERE id=? AND user_id=?`, id, userID)
	return scanMilestone(row.Scan)
}

func (r Repo) ListMilestones(ctx context.Context, userID string) ([]domain.Milestone, error) {
	return r.listMilestones(ctx, `SELECT `+milestoneCols+` FROM milestones WHERE user_id=? ORDER BY created_at ASC, id ASC`, userID)
}

func (r Repo) ListMilestonesByDriver(ctx context.Context, userID, driverID string) ([]domain.Milestone, error) {
	return r.listMilestones(ctx, `SELECT `+milestoneCols+` FROM milestones WHERE user_id=? AND driver_id=? ORDER BY created_at ASC, id ASC`, userID, driverID)
}

func (r Repo) listMilestones(ctx context.Context, query string, args ...any) ([]domain.Milestone, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r Repo) UpdateMilestoneTx(ctx context.Context, tx *sql.Tx, m domain.Milestone) error {
	res, err := tx.ExecContext(ctx, `UPDATE milestones SET title=?, description=?, target_date=?, updated_at=? WHERE id=? AND user_id=?`,
		m.Title, nullable(m.Description), nullablePtr(m.TargetDate), m.UpdatedAt, m.ID, m.UserID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteMilestoneTx(ctx context.Context, tx *sql.Tx, userID, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM milestones WHERE user_id=? AND id=?`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullablePtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

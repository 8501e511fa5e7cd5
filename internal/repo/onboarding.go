package repo

import (
	"context"
	"database/sql"
	"strings"

	"stride/internal/domain"
)

func (r Repo) GetOnboardingStatus(ctx context.Context, userID string) (domain.OnboardingStatus, error) {
	var s domain.OnboardingStatus
	var completed sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT user_id,onboarded,version,completed_at,created_at,updated_at FROM onboarding_status WHERE user_id=?`, userID).
		Scan(&s.UserID, &s.Onboarded, &s.Version, &completed, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if completed.Valid {
		s.CompletedAt = completed.String
	}
	return s, err
}

func (r Repo) InsertOnboardingStatusTx(ctx context.Context, tx *sql.Tx, s domain.OnboardingStatus) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO onboarding_status(user_id,onboarded,version,completed_at,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		s.UserID, s.Onboarded, s.Version, nullable(s.CompletedAt), s.CreatedAt, s.UpdatedAt)
	return err
}

// LatestEvents returns up to n most recent events for a user, optionally
// filtered by type, entity kind and entity id.
func (r Repo) LatestEvents(ctx context.Context, n int, userID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT id,ts,type,COALESCE(user_id,'') AS user_id,entity_kind,COALESCE(entity_id,'') AS entity_id,payload_json FROM events`
	var (
		conds []string
		args  []any
	)
	if userID != "" {
		conds = append(conds, "user_id=?")
		args = append(args, userID)
	}
	if evtType != "" {
		conds = append(conds, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		conds = append(conds, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		conds = append(conds, "entity_id=?")
		args = append(args, entityID)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, n)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.UserID, &e.EntityKind, &e.EntityID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// ActivityRepo is the append-only staff activity journal.
type ActivityRepo struct {
	db *sql.DB
}

// NewActivityRepo returns a new ActivityRepo bound to the given database.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// Record appends an entry and populates its ID.
func (r *ActivityRepo) Record(ctx context.Context, a *model.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	const q = `INSERT INTO activity_log (user_id, action_type, entity_type, entity_id, details, summary, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.UserID, a.ActionType, a.EntityType, a.EntityID,
		nullableString(a.Details), a.Summary, a.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// Recent returns the latest limit entries, newest first, with the acting
// user's name and email.  Entries of deleted users keep empty names.
func (r *ActivityRepo) Recent(ctx context.Context, limit int) ([]model.Activity, error) {
	const q = `SELECT a.id, a.created_at, a.user_id, a.action_type, a.entity_type, a.entity_id, a.details, a.summary,
       COALESCE(u.display_name, ''), COALESCE(u.email, '')
FROM activity_log a
LEFT JOIN users u ON u.id = a.user_id
ORDER BY a.created_at DESC, a.id DESC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		var details sql.NullString
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.UserID, &a.ActionType, &a.EntityType, &a.EntityID,
			&details, &a.Summary, &a.UserDisplayName, &a.UserEmail); err != nil {
			return nil, err
		}
		if details.Valid {
			a.Details = &details.String
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// UserStats counts created bookings, created guests and status changes
// per user.  Users without activity are listed with zeros.
func (r *ActivityRepo) UserStats(ctx context.Context) ([]model.UserActivityStats, error) {
	const q = `SELECT u.id, u.display_name, u.email, u.role,
       COALESCE(SUM(a.action_type = 'booking_created'), 0),
       COALESCE(SUM(a.action_type = 'guest_created'), 0),
       COALESCE(SUM(a.action_type = 'status_change'), 0)
FROM users u
LEFT JOIN activity_log a ON a.user_id = u.id
GROUP BY u.id, u.display_name, u.email, u.role
ORDER BY u.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.UserActivityStats{}
	for rows.Next() {
		var s model.UserActivityStats
		if err := rows.Scan(&s.UserID, &s.DisplayName, &s.Email, &s.Role,
			&s.BookingsCreated, &s.GuestsCreated, &s.StatusChanges); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

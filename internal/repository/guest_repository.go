package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

// GuestRepo provides access to the guests table.  Writes that read a row
// before changing it lock the row with SELECT ... FOR UPDATE so that the
// visit counter and the segment label are always committed together.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a new GuestRepo bound to the given database.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

const guestColumns = `id, name, phone, email, segment, visits_count, confirmed_bookings_count,
       last_visit_at, exclude_from_broadcasts, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuest(s rowScanner) (model.Guest, error) {
	var g model.Guest
	var name, email sql.NullString
	var lastVisit sql.NullTime
	err := s.Scan(&g.ID, &name, &g.Phone, &email, &g.Segment, &g.VisitsCount,
		&g.ConfirmedBookingsCount, &lastVisit, &g.ExcludeFromBroadcasts, &g.CreatedAt)
	if err != nil {
		return model.Guest{}, err
	}
	if name.Valid {
		g.Name = &name.String
	}
	if email.Valid {
		g.Email = &email.String
	}
	if lastVisit.Valid {
		t := lastVisit.Time.UTC()
		g.LastVisitAt = &t
	}
	g.CreatedAt = g.CreatedAt.UTC()
	return g, nil
}

func guestSearchClause(search string) (string, []any) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}
	p := likePattern(search)
	return ` WHERE (LOWER(name) LIKE LOWER(?) OR phone LIKE ?)`, []any{p, p}
}

// List returns one page of guests, newest first, and the total number of
// guests matching the filter.
func (r *GuestRepo) List(ctx context.Context, f GuestFilter) ([]model.Guest, int, error) {
	where, args := guestSearchClause(f.Search)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM guests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + guestColumns + ` FROM guests` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	guests, err := collectGuests(rows)
	if err != nil {
		return nil, 0, err
	}
	return guests, total, nil
}

// ListAll returns every guest matching search in id order.  It backs
// exports and broadcast audience resolution.
func (r *GuestRepo) ListAll(ctx context.Context, search string) ([]model.Guest, error) {
	where, args := guestSearchClause(search)
	rows, err := r.db.QueryContext(ctx, `SELECT `+guestColumns+` FROM guests`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGuests(rows)
}

func collectGuests(rows *sql.Rows) ([]model.Guest, error) {
	out := []model.Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetByID fetches a guest by primary key.
func (r *GuestRepo) GetByID(ctx context.Context, id uint64) (model.Guest, error) {
	g, err := scanGuest(r.db.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Guest{}, ErrNotFound
	}
	return g, err
}

// GetByPhone fetches a guest by normalized phone number.
func (r *GuestRepo) GetByPhone(ctx context.Context, phone string) (model.Guest, error) {
	g, err := scanGuest(r.db.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE phone = ? LIMIT 1`, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Guest{}, ErrNotFound
	}
	return g, err
}

// Create inserts a guest and populates its generated ID.  A duplicate phone
// yields ErrPhoneExists.
func (r *GuestRepo) Create(ctx context.Context, g *model.Guest) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	const q = `INSERT INTO guests (name, phone, email, segment, visits_count, confirmed_bookings_count,
                    last_visit_at, exclude_from_broadcasts, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, nullableString(g.Name), g.Phone, nullableString(g.Email), g.Segment,
		g.VisitsCount, g.ConfirmedBookingsCount, nullableTime(g.LastVisitAt), g.ExcludeFromBroadcasts, g.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrPhoneExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// Update locks the guest row, hands a copy to fn and writes the result back
// in the same transaction.  If fn returns an error nothing is written and
// the error is returned unchanged.
func (r *GuestRepo) Update(ctx context.Context, id uint64, fn func(*model.Guest) error) (model.Guest, error) {
	return r.update(ctx, id, false, func(g *model.Guest, _ segment.Thresholds) error { return fn(g) })
}

// UpdateClassified is Update with the segment thresholds read in the same
// transaction, after the guest row is locked.  The settings row is read
// with a shared lock so a concurrent threshold change either commits
// before the read or waits for this transaction.
func (r *GuestRepo) UpdateClassified(ctx context.Context, id uint64, fn func(*model.Guest, segment.Thresholds) error) (model.Guest, error) {
	return r.update(ctx, id, true, fn)
}

func (r *GuestRepo) update(ctx context.Context, id uint64, withThresholds bool, fn func(*model.Guest, segment.Thresholds) error) (model.Guest, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Guest{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	g, err := scanGuest(tx.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Guest{}, ErrNotFound
		}
		return model.Guest{}, err
	}
	th := segment.DefaultThresholds()
	if withThresholds {
		st, err := scanSettings(tx.QueryRowContext(ctx, settingsSelect+` LOCK IN SHARE MODE`))
		switch {
		case err == nil:
			th = st.Thresholds()
		case !errors.Is(err, sql.ErrNoRows):
			return model.Guest{}, err
		}
	}
	if err := fn(&g, th); err != nil {
		return model.Guest{}, err
	}
	const q = `UPDATE guests
               SET name = ?, phone = ?, email = ?, segment = ?, visits_count = ?,
                   confirmed_bookings_count = ?, last_visit_at = ?, exclude_from_broadcasts = ?
               WHERE id = ?`
	_, err = tx.ExecContext(ctx, q, nullableString(g.Name), g.Phone, nullableString(g.Email), g.Segment,
		g.VisitsCount, g.ConfirmedBookingsCount, nullableTime(g.LastVisitAt), g.ExcludeFromBroadcasts, g.ID)
	if err != nil {
		if isDuplicate(err) {
			return model.Guest{}, ErrPhoneExists
		}
		return model.Guest{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Guest{}, err
	}
	committed = true
	return g, nil
}

// RecalculateSegments re-labels every guest with classify.  All guest rows
// are locked for the duration so that concurrent visit recording cannot
// interleave.  Only rows whose label changes are written.
func (r *GuestRepo) RecalculateSegments(ctx context.Context, classify func(visits int) string) (model.RecalcResult, error) {
	var res model.RecalcResult
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `SELECT id, visits_count, segment FROM guests ORDER BY id FOR UPDATE`)
	if err != nil {
		return res, err
	}
	type change struct {
		id    uint64
		label string
	}
	var changes []change
	for rows.Next() {
		var id uint64
		var visits int
		var current string
		if err := rows.Scan(&id, &visits, &current); err != nil {
			rows.Close()
			return res, err
		}
		res.Total++
		if next := classify(visits); next != current {
			changes = append(changes, change{id: id, label: next})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return res, err
	}
	rows.Close()

	if len(changes) > 0 {
		stmt, err := tx.PrepareContext(ctx, `UPDATE guests SET segment = ? WHERE id = ?`)
		if err != nil {
			return res, err
		}
		defer stmt.Close()
		for _, c := range changes {
			if _, err := stmt.ExecContext(ctx, c.label, c.id); err != nil {
				return res, fmt.Errorf("update guest %d: %w", c.id, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return res, err
	}
	committed = true
	res.Updated = len(changes)
	return res, nil
}

// CountBySegment returns the number of guests per stored label.
func (r *GuestRepo) CountBySegment(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT segment, COUNT(*) FROM guests GROUP BY segment`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		out[label] = n
	}
	return out, rows.Err()
}

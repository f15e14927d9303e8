package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/chinor-crm/internal/booking"
	"github.com/iliyamo/chinor-crm/internal/model"
)

// BookingRepo provides access to the bookings table.  Every booking is
// read together with a summary of its guest.  All timestamps are stored
// in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingSelect = `SELECT b.id, b.guest_id, b.booking_time, b.guests_count, b.status, b.created_by, b.created_at,
       g.id, g.name, g.phone
FROM bookings b
JOIN guests g ON g.id = b.guest_id`

func scanBooking(s rowScanner) (model.Booking, error) {
	var b model.Booking
	var status string
	var createdBy sql.NullInt64
	var gs model.GuestSummary
	var guestName sql.NullString
	err := s.Scan(&b.ID, &b.GuestID, &b.BookingTime, &b.GuestsCount, &status, &createdBy, &b.CreatedAt,
		&gs.ID, &guestName, &gs.Phone)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = booking.Status(status)
	if createdBy.Valid {
		uid := uint64(createdBy.Int64)
		b.CreatedBy = &uid
	}
	if guestName.Valid {
		gs.Name = &guestName.String
	}
	b.Guest = &gs
	b.BookingTime = b.BookingTime.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	return b, nil
}

func bookingWhere(f BookingFilter) (string, []any) {
	var conds []string
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		conds = append(conds, `(LOWER(g.name) LIKE LOWER(?) OR g.phone LIKE ?)`)
		args = append(args, p, p)
	}
	if f.From != nil {
		conds = append(conds, `b.booking_time >= ?`)
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, `b.booking_time < ?`)
		args = append(args, f.To.UTC())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of bookings ordered by booking time, latest first,
// and the total number matching the filter.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, int, error) {
	where, args := bookingWhere(f)
	var total int
	countQ := `SELECT COUNT(*) FROM bookings b JOIN guests g ON g.id = b.guest_id` + where
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := bookingSelect + where + ` ORDER BY b.booking_time DESC, b.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches a booking with its guest summary.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// Create inserts a booking and populates its generated ID.  The status is
// always written as pending regardless of the value on b.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	b.Status = booking.Pending
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	var createdBy any
	if b.CreatedBy != nil {
		createdBy = *b.CreatedBy
	}
	const q = `INSERT INTO bookings (guest_id, booking_time, guests_count, status, created_by, created_at)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.GuestID, b.BookingTime.UTC(), b.GuestsCount, string(b.Status), createdBy, b.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// ChangeStatus moves a booking to status to.  The booking row and its
// guest row are locked for the duration of the transaction, so concurrent
// changes of the same booking are applied one after another and each one
// sees the status committed by the previous.  When the move counts as a
// confirmation the guest's confirmed_bookings_count is bumped in the same
// transaction.
func (r *BookingRepo) ChangeStatus(ctx context.Context, id uint64, to booking.Status) (model.Booking, booking.Outcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, booking.Outcome{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	b, err := scanBooking(tx.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ? FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, booking.Outcome{}, ErrNotFound
		}
		return model.Booking{}, booking.Outcome{}, err
	}
	out, err := booking.Transition(b.Status, to)
	if err != nil {
		return model.Booking{}, booking.Outcome{}, err
	}
	if !out.Changed {
		return b, out, nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(to), id); err != nil {
		return model.Booking{}, booking.Outcome{}, err
	}
	if out.CountsConfirmation {
		const inc = `UPDATE guests SET confirmed_bookings_count = confirmed_bookings_count + 1 WHERE id = ?`
		if _, err := tx.ExecContext(ctx, inc, b.GuestID); err != nil {
			return model.Booking{}, booking.Outcome{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, booking.Outcome{}, err
	}
	committed = true
	b.Status = to
	return b, out, nil
}

// CountByStatus returns the number of bookings in each status.
func (r *BookingRepo) CountByStatus(ctx context.Context) (map[booking.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[booking.Status]int{}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[booking.Status(s)] = n
	}
	return out, rows.Err()
}

// CountBetween counts bookings whose booking_time lies in [from, to).  When
// statuses are given only bookings in one of them are counted.
func (r *BookingRepo) CountBetween(ctx context.Context, from, to time.Time, statuses ...booking.Status) (int, error) {
	q := `SELECT COUNT(*) FROM bookings WHERE booking_time >= ? AND booking_time < ?`
	args := []any{from.UTC(), to.UTC()}
	if len(statuses) > 0 {
		q += ` AND status IN (?` + strings.Repeat(",?", len(statuses)-1) + `)`
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	var n int
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// TimesBetween returns the booking_time of every booking in [from, to),
// ordered ascending.  Callers bucket them by local calendar day.
func (r *BookingRepo) TimesBetween(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	const q = `SELECT booking_time FROM bookings WHERE booking_time >= ? AND booking_time < ? ORDER BY booking_time`
	rows, err := r.db.QueryContext(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	return out, rows.Err()
}

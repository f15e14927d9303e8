package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chinor-crm/internal/booking"
	"github.com/iliyamo/chinor-crm/internal/model"
)

var bookingCols = []string{"id", "guest_id", "booking_time", "guests_count", "status", "created_by", "created_at",
	"gid", "name", "phone"}

func setupBookingRepo(t *testing.T) (*BookingRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), mock
}

func bookingRow(id uint64, status booking.Status) *sqlmock.Rows {
	at := time.Date(2026, 2, 7, 20, 0, 0, 0, time.UTC)
	created := time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(bookingCols).
		AddRow(id, 3, at, 8, string(status), nil, created, 3, "Guest", "+998901234569")
}

func TestBookingRepo_ChangeStatus_ConfirmBumpsGuestCounter(t *testing.T) {
	repo, mock := setupBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE b.id = \? FOR UPDATE`).WithArgs(53).WillReturnRows(bookingRow(53, booking.Pending))
	mock.ExpectExec(`UPDATE bookings SET status = \? WHERE id = \?`).
		WithArgs("confirmed", 53).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE guests SET confirmed_bookings_count = confirmed_bookings_count \+ 1 WHERE id = \?`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, out, err := repo.ChangeStatus(context.Background(), 53, booking.Confirmed)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.True(t, out.CountsConfirmation)
	assert.Equal(t, booking.Confirmed, b.Status)
	require.NotNil(t, b.Guest)
	assert.Equal(t, "+998901234569", b.Guest.Phone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ChangeStatus_CancelKeepsCounter(t *testing.T) {
	repo, mock := setupBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(53).WillReturnRows(bookingRow(53, booking.Confirmed))
	mock.ExpectExec(`UPDATE bookings SET status`).
		WithArgs("canceled", 53).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, out, err := repo.ChangeStatus(context.Background(), 53, booking.Canceled)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.False(t, out.CountsConfirmation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ChangeStatus_SameStatusWritesNothing(t *testing.T) {
	repo, mock := setupBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(53).WillReturnRows(bookingRow(53, booking.Confirmed))
	mock.ExpectRollback()

	b, out, err := repo.ChangeStatus(context.Background(), 53, booking.Confirmed)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, booking.Confirmed, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ChangeStatus_InvalidTransitionRollsBack(t *testing.T) {
	repo, mock := setupBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(55).WillReturnRows(bookingRow(55, booking.NoShow))
	mock.ExpectRollback()

	_, _, err := repo.ChangeStatus(context.Background(), 55, booking.Pending)
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_ChangeStatus_NotFound(t *testing.T) {
	repo, mock := setupBookingRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(99).WillReturnRows(sqlmock.NewRows(bookingCols))
	mock.ExpectRollback()

	_, _, err := repo.ChangeStatus(context.Background(), 99, booking.Confirmed)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_List_DateRange(t *testing.T) {
	repo, mock := setupBookingRepo(t)
	from := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings b JOIN guests g .* WHERE b.booking_time >= \? AND b.booking_time < \?`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY b.booking_time DESC, b.id DESC LIMIT \? OFFSET \?`).
		WithArgs(from, to, 10, 0).
		WillReturnRows(bookingRow(53, booking.Confirmed))

	items, total, err := repo.List(context.Background(), BookingFilter{
		From: &from, To: &to, Page: model.PageRequest{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, uint64(53), items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepo_CountBetween_WithStatuses(t *testing.T) {
	repo, mock := setupBookingRepo(t)
	from := time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(`status IN \(\?,\?\)`).
		WithArgs(from, to, "pending", "confirmed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountBetween(context.Background(), from, to, booking.Pending, booking.Confirmed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

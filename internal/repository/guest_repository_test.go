package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

var guestCols = []string{"id", "name", "phone", "email", "segment", "visits_count",
	"confirmed_bookings_count", "last_visit_at", "exclude_from_broadcasts", "created_at"}

func setupGuestRepo(t *testing.T) (*GuestRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewGuestRepo(db), mock
}

func TestGuestRepo_List_WithSearch(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	created := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM guests WHERE`).
		WithArgs("%иск%", "%иск%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM guests WHERE .* ORDER BY id DESC LIMIT \? OFFSET \?`).
		WithArgs("%иск%", "%иск%", 10, 0).
		WillReturnRows(sqlmock.NewRows(guestCols).
			AddRow(1, "Искандер", "+998901234567", nil, segment.New, 0, 0, nil, false, created))

	guests, total, err := repo.List(context.Background(), GuestFilter{
		Search: "иск",
		Page:   model.PageRequest{Page: 1, Limit: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, guests, 1)
	assert.Equal(t, uint64(1), guests[0].ID)
	require.NotNil(t, guests[0].Name)
	assert.Equal(t, "Искандер", *guests[0].Name)
	assert.Nil(t, guests[0].Email)
	assert.Nil(t, guests[0].LastVisitAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepo_GetByID_NotFound(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	mock.ExpectQuery(`SELECT .* FROM guests WHERE id = \?`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(guestCols))

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepo_Create_DuplicatePhone(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	mock.ExpectExec(`INSERT INTO guests`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.Guest{Phone: "+998901234567", Segment: segment.New})
	assert.ErrorIs(t, err, ErrPhoneExists)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepo_Update_LocksRowAndWritesBack(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	created := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	visit := time.Date(2026, 2, 1, 19, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM guests WHERE id = \? FOR UPDATE`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(guestCols).
			AddRow(4, "Олег", "+998901234570", nil, segment.Regular, 9, 2, nil, false, created))
	mock.ExpectExec(`UPDATE guests`).
		WithArgs("Олег", "+998901234570", nil, segment.VIP, 10, 2, visit, false, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	g, err := repo.Update(context.Background(), 4, func(g *model.Guest) error {
		g.VisitsCount++
		g.LastVisitAt = &visit
		g.Segment = segment.Classify(g.VisitsCount, segment.DefaultThresholds())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 10, g.VisitsCount)
	assert.Equal(t, segment.VIP, g.Segment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepo_UpdateClassified_ReadsThresholdsAfterLock(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	created := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM guests WHERE id = \? FOR UPDATE`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(guestCols).
			AddRow(5, "Мария", "+998901234571", nil, segment.Regular, 5, 0, nil, false, created))
	mock.ExpectQuery(`FROM settings WHERE id = 1 LOCK IN SHARE MODE`).
		WillReturnRows(sqlmock.NewRows(settingsCols).
			AddRow(true, "", false, 2, 6, "", "", "", ""))
	mock.ExpectExec(`UPDATE guests`).
		WithArgs("Мария", "+998901234571", nil, segment.VIP, 6, 0, nil, false, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	g, err := repo.UpdateClassified(context.Background(), 5, func(g *model.Guest, th segment.Thresholds) error {
		assert.Equal(t, segment.Thresholds{Regular: 2, VIP: 6}, th)
		g.VisitsCount++
		g.Segment = segment.Classify(g.VisitsCount, th)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, segment.VIP, g.Segment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepo_Update_CallbackErrorRollsBack(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	created := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)
	boom := errors.New("rejected")

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows(guestCols).
			AddRow(4, nil, "+998901234570", nil, segment.New, 0, 0, nil, false, created))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 4, func(*model.Guest) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepo_Update_MissingGuest(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs(9).WillReturnRows(sqlmock.NewRows(guestCols))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 9, func(*model.Guest) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepo_RecalculateSegments_WritesOnlyChangedRows(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	th := segment.Thresholds{Regular: 3, VIP: 6}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, visits_count, segment FROM guests ORDER BY id FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "visits_count", "segment"}).
			AddRow(1, 0, segment.New).
			AddRow(2, 4, segment.New).
			AddRow(3, 6, segment.Regular).
			AddRow(4, 12, segment.VIP))
	prep := mock.ExpectPrepare(`UPDATE guests SET segment = \? WHERE id = \?`)
	prep.ExpectExec().WithArgs(segment.Regular, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(segment.VIP, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.RecalculateSegments(context.Background(), func(v int) string { return segment.Classify(v, th) })
	require.NoError(t, err)
	assert.Equal(t, model.RecalcResult{Total: 4, Updated: 2}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRepo_CountBySegment(t *testing.T) {
	repo, mock := setupGuestRepo(t)
	mock.ExpectQuery(`SELECT segment, COUNT\(\*\) FROM guests GROUP BY segment`).
		WillReturnRows(sqlmock.NewRows([]string{"segment", "count"}).
			AddRow(segment.New, 3).
			AddRow(segment.VIP, 1))

	counts, err := repo.CountBySegment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{segment.New: 3, segment.VIP: 1}, counts)
}

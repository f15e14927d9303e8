package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chinor-crm/internal/model"
)

func setupCampaignRepo(t *testing.T) (*CampaignRepo, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCampaignRepo(db), mock
}

func TestCampaignRepo_ClaimDispatch_OnlyOnce(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE campaigns SET dispatched_at = \? WHERE id = \? AND dispatched_at IS NULL`).
		WithArgs(at, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE campaigns SET dispatched_at`).
		WithArgs(at, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.ClaimDispatch(context.Background(), 7, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimDispatch(context.Background(), 7, at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepo_ReleaseDispatch(t *testing.T) {
	repo, mock := setupCampaignRepo(t)

	mock.ExpectExec(`UPDATE campaigns SET dispatched_at = NULL WHERE id = \?`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id FROM campaigns WHERE dispatched_at IS NULL ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	require.NoError(t, repo.ReleaseDispatch(context.Background(), 7))
	ids, err := repo.ListUndispatched(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepo_History(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	created := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "name", "message_text", "image_url", "target_segment", "scheduled_at",
		"dispatched_at", "created_by", "created_at", "updated_at", "sent", "failed"}

	mock.ExpectQuery(`LEFT JOIN campaign_sends s ON s.campaign_id = c.id`).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, "Рассылка: VIP", "Ждём вас", nil, "VIP", nil, created, 1, created, created, 3, 1))

	items, err := repo.History(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Рассылка: VIP", items[0].Campaign.Name)
	require.NotNil(t, items[0].Campaign.TargetSegment)
	assert.Equal(t, "VIP", *items[0].Campaign.TargetSegment)
	assert.Nil(t, items[0].Campaign.ImageURL)
	assert.Equal(t, 3, items[0].SentCount)
	assert.Equal(t, 1, items[0].FailedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepo_CreateSendAndFinish(t *testing.T) {
	repo, mock := setupCampaignRepo(t)
	sentAt := time.Date(2026, 2, 10, 12, 0, 5, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO campaign_sends`).
		WithArgs(7, 4, model.SendPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(`UPDATE campaign_sends SET status = \?, sent_at = \?, error_message = \? WHERE id = \?`).
		WithArgs(model.SendSent, sentAt, nil, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &model.CampaignSend{CampaignID: 7, GuestID: 4}
	require.NoError(t, repo.CreateSend(context.Background(), s))
	assert.Equal(t, uint64(11), s.ID)
	assert.Equal(t, model.SendPending, s.Status)

	require.NoError(t, repo.FinishSend(context.Background(), s.ID, model.SendSent, &sentAt, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

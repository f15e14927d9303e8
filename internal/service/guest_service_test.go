package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/chinor-crm/internal/export"
	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/repository"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

func TestGuestService_RecordVisit_PromotesAtThresholds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	g, err := env.guests.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 0, g.VisitsCount)
	assert.Equal(t, segment.New, g.Segment)

	for i := 1; i <= 10; i++ {
		before := g.VisitsCount
		g, err = env.guests.RecordVisit(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, before+1, g.VisitsCount)
		switch {
		case i < 5:
			assert.Equal(t, segment.New, g.Segment, "after %d visits", i)
		case i < 10:
			assert.Equal(t, segment.Regular, g.Segment, "after %d visits", i)
		default:
			assert.Equal(t, segment.VIP, g.Segment, "after %d visits", i)
		}
	}
	require.NotNil(t, g.LastVisitAt)
	assert.True(t, g.LastVisitAt.Equal(env.now))
}

func TestGuestService_RecordVisit_KeepsConfirmedCounter(t *testing.T) {
	env := newTestEnv()
	g, err := env.guests.RecordVisit(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, g.VisitsCount)
	assert.Equal(t, 1, g.ConfirmedBookingsCount)
}

func TestGuestService_RecordVisit_UnknownGuest(t *testing.T) {
	env := newTestEnv()
	_, err := env.guests.RecordVisit(context.Background(), 999)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, uint64(999), nf.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGuestService_RecordVisit_Concurrent(t *testing.T) {
	env := newTestEnv()
	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.guests.RecordVisit(context.Background(), 2)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	g, err := env.guests.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, n, g.VisitsCount)
	assert.Equal(t, segment.VIP, g.Segment)
}

func TestGuestService_RecordVisit_RacingThresholdChange(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.guests.RecordVisit(ctx, 2)
			assert.NoError(t, err)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := env.settings.Update(ctx, model.SettingsPatch{SegmentRegularThreshold: ptr(40), SegmentVIPThreshold: ptr(50)})
		assert.NoError(t, err)
		_, err = env.guests.RecalculateSegments(ctx)
		assert.NoError(t, err)
	}()
	wg.Wait()

	g, err := env.guests.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, n, g.VisitsCount)
	assert.Equal(t, segment.New, g.Segment)
}

func TestGuestService_RecordVisit_Journaled(t *testing.T) {
	env := newTestEnv()
	ctx := env.staff()
	_, err := env.guests.RecordVisit(ctx, 1)
	require.NoError(t, err)

	entries, err := env.journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionVisitAdded, entries[0].ActionType)
	assert.Equal(t, uint64(1), entries[0].EntityID)
	assert.Equal(t, "Хостес", entries[0].UserDisplayName)
}

func TestGuestService_Create(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	g, err := env.guests.Create(ctx, GuestInput{Name: ptr("  Лола "), Phone: "+998 (90) 555-11-22", Email: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, "+998905551122", g.Phone)
	assert.Equal(t, "Лола", *g.Name)
	assert.Nil(t, g.Email)
	assert.Equal(t, segment.New, g.Segment)
	assert.Equal(t, 0, g.VisitsCount)

	_, err = env.guests.Create(ctx, GuestInput{Phone: " - "})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestGuestService_CreatePublic_DuplicatePhone(t *testing.T) {
	env := newTestEnv()
	_, err := env.guests.CreatePublic(context.Background(), GuestInput{Phone: "+998 90 123 45 67"})

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "already exists")
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestGuestService_Update(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.guests.Update(ctx, 4, GuestPatch{Segment: ptr(segment.New)})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	g, err := env.guests.Update(ctx, 4, GuestPatch{ExcludeFromBroadcasts: ptr(true), Name: ptr("Олег")})
	require.NoError(t, err)
	assert.True(t, g.ExcludeFromBroadcasts)
	assert.Equal(t, "Олег", *g.Name)
	assert.Equal(t, segment.VIP, g.Segment)
	assert.Equal(t, 12, g.VisitsCount)

	_, err = env.guests.Update(ctx, 4, GuestPatch{Phone: ptr("+998901234567")})
	var ce *ConflictError
	assert.ErrorAs(t, err, &ce)

	_, err = env.guests.Update(ctx, 77, GuestPatch{Name: ptr("x")})
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestGuestService_RecalculateSegments_Idempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.settings.Update(ctx, model.SettingsPatch{
		SegmentRegularThreshold: ptr(1),
		SegmentVIPThreshold:     ptr(5),
	})
	require.NoError(t, err)

	// thresholds alone never re-classify
	g, err := env.guests.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, segment.Regular, g.Segment)

	res, err := env.guests.RecalculateSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RecalcResult{Total: 5, Updated: 1}, res)

	g, err = env.guests.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, segment.VIP, g.Segment)

	res, err = env.guests.RecalculateSegments(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RecalcResult{Total: 5, Updated: 0}, res)
}

func TestGuestService_Stats(t *testing.T) {
	env := newTestEnv()
	st, err := env.guests.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.GuestStats{Total: 5, VIP: 1, Regular: 1, New: 3}, st)
}

func TestGuestService_Export(t *testing.T) {
	env := newTestEnv()
	var buf bytes.Buffer
	require.NoError(t, env.guests.Export(context.Background(), &buf, export.FormatCSV, "олег"))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "+998901234570", records[1][1])
}

func TestGuestService_List(t *testing.T) {
	env := newTestEnv()
	page, err := env.guests.List(context.Background(), "", model.PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Limit)

	page, err = env.guests.List(context.Background(), "нет такого", model.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Items)
	assert.Equal(t, model.DefaultPageLimit, page.Limit)
}

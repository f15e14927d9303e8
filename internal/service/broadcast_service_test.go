package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

func TestBroadcastService_Create(t *testing.T) {
	env := newTestEnv()
	ctx := env.staff()

	c, err := env.broadcast.Create(ctx, BroadcastInput{Segment: " VIP ", MessageText: "  Ужин со скидкой  ", ImageURL: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, "Рассылка: VIP", c.Name)
	assert.Equal(t, "Ужин со скидкой", c.MessageText)
	assert.Nil(t, c.ImageURL)
	require.NotNil(t, c.TargetSegment)
	assert.Equal(t, segment.SelectorVIP, *c.TargetSegment)
	require.NotNil(t, c.CreatedBy)
	assert.Equal(t, []uint64{c.ID}, env.publisher.ids)

	entries, err := env.journal.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionCampaignCreated, entries[0].ActionType)
}

func TestBroadcastService_Create_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	var ve *ValidationError

	_, err := env.broadcast.Create(ctx, BroadcastInput{Segment: segment.SelectorAll, MessageText: "   "})
	assert.ErrorAs(t, err, &ve)

	_, err = env.broadcast.Create(ctx, BroadcastInput{Segment: "gold", MessageText: "hi"})
	assert.ErrorAs(t, err, &ve)
	assert.Empty(t, env.publisher.ids)
}

func TestBroadcastService_Create_PublisherFailureKeepsCampaign(t *testing.T) {
	env := newTestEnv()
	env.publisher.err = errors.New("broker down")

	c, err := env.broadcast.Create(context.Background(), BroadcastInput{Segment: segment.SelectorAll, MessageText: "hi"})
	require.NoError(t, err)

	ids, err := env.stores.Campaigns.ListUndispatched(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{c.ID}, ids)
}

func TestBroadcastService_Dispatch_SegmentAndDelivery(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.setWebhooks(ctx, "http://hooks.local/broadcast", "")
	env.sender.fail[2] = true

	c, err := env.broadcast.Create(ctx, BroadcastInput{Segment: segment.SelectorNew, MessageText: "Добро пожаловать"})
	require.NoError(t, err)

	rep, err := env.broadcast.Dispatch(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DispatchReport{CampaignID: c.ID, Recipients: 3, Sent: 2, Failed: 1}, rep)
	assert.ElementsMatch(t, []uint64{1, 3}, env.sender.guestIDs())

	hist, err := env.broadcast.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 2, hist[0].SentCount)
	assert.Equal(t, 1, hist[0].FailedCount)
}

func TestBroadcastService_Dispatch_HonorsOptOutAtSendTime(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.setWebhooks(ctx, "http://hooks.local/broadcast", "")

	c, err := env.broadcast.Create(ctx, BroadcastInput{Segment: segment.SelectorVIP, MessageText: "Закрытый ужин"})
	require.NoError(t, err)

	// guest 4 opts out after the campaign was created
	_, err = env.guests.Update(ctx, 4, GuestPatch{ExcludeFromBroadcasts: ptr(true)})
	require.NoError(t, err)

	rep, err := env.broadcast.Dispatch(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Recipients)
	assert.Empty(t, env.sender.guestIDs())
}

func TestBroadcastService_Dispatch_AtMostOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.setWebhooks(ctx, "http://hooks.local/broadcast", "")

	c, err := env.broadcast.Create(ctx, BroadcastInput{Segment: segment.SelectorAll, MessageText: "hi"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	reports := make([]model.DispatchReport, 8)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rep, err := env.broadcast.Dispatch(ctx, c.ID)
			assert.NoError(t, err)
			reports[i] = rep
		}(i)
	}
	wg.Wait()

	dispatched := 0
	for _, r := range reports {
		if !r.Skipped {
			dispatched++
			assert.Equal(t, 5, r.Sent)
		}
	}
	assert.Equal(t, 1, dispatched)
	assert.Len(t, env.sender.guestIDs(), 5)
}

func TestBroadcastService_Dispatch_WithoutWebhookFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	c, err := env.broadcast.Create(ctx, BroadcastInput{Segment: segment.SelectorRegular, MessageText: "hi"})
	require.NoError(t, err)
	rep, err := env.broadcast.Dispatch(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Recipients)
	assert.Equal(t, 1, rep.Failed)
	assert.Empty(t, env.sender.guestIDs())
}

func TestBroadcastService_Dispatch_UnknownCampaign(t *testing.T) {
	env := newTestEnv()
	_, err := env.broadcast.Dispatch(context.Background(), 42)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestBroadcastService_Stats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	st, err := env.broadcast.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, st.Available)
	assert.Nil(t, st.Delivered)
	assert.Nil(t, st.Errors)

	_, err = env.guests.Update(ctx, 1, GuestPatch{ExcludeFromBroadcasts: ptr(true)})
	require.NoError(t, err)
	env.setWebhooks(ctx, "http://hooks.local/broadcast", "")
	env.sender.fail[5] = true
	c, err := env.broadcast.Create(ctx, BroadcastInput{Segment: segment.SelectorAll, MessageText: "hi"})
	require.NoError(t, err)
	_, err = env.broadcast.Dispatch(ctx, c.ID)
	require.NoError(t, err)

	st, err = env.broadcast.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Available)
	require.NotNil(t, st.Delivered)
	assert.Equal(t, 3, *st.Delivered)
	assert.Equal(t, 1, *st.Errors)
}

func TestBroadcastService_RequeuePending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.broadcast.SetPublisher(nil)

	for i := 0; i < 2; i++ {
		_, err := env.broadcast.Create(ctx, BroadcastInput{Segment: segment.SelectorVIP, MessageText: "hi"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, env.broadcast.RequeuePending(ctx))
	assert.Equal(t, 0, env.broadcast.RequeuePending(ctx))
}

func TestBroadcastService_RequeuePending_RepublishesThroughPublisher(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.setWebhooks(ctx, "http://hooks.local/broadcast", "")

	c, err := env.broadcast.Create(ctx, BroadcastInput{Segment: segment.SelectorVIP, MessageText: "hi"})
	require.NoError(t, err)
	env.publisher.ids = nil

	assert.Equal(t, 1, env.broadcast.RequeuePending(ctx))
	assert.Equal(t, []uint64{c.ID}, env.publisher.ids)
	assert.Empty(t, env.sender.guestIDs())

	env.publisher.err = errors.New("broker down")
	assert.Equal(t, 1, env.broadcast.RequeuePending(ctx))
	assert.Equal(t, []uint64{4}, env.sender.guestIDs())
	ids, err := env.stores.Campaigns.ListUndispatched(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

type flakyGuests struct {
	GuestStore
	fail int
}

func (f *flakyGuests) ListAll(ctx context.Context, search string) ([]model.Guest, error) {
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("db hiccup")
	}
	return f.GuestStore.ListAll(ctx, search)
}

type flakyCampaigns struct {
	CampaignStore
	fail int
}

func (f *flakyCampaigns) CreateSend(ctx context.Context, send *model.CampaignSend) error {
	if f.fail > 0 {
		f.fail--
		return errors.New("db hiccup")
	}
	return f.CampaignStore.CreateSend(ctx, send)
}

func TestBroadcastService_Dispatch_GuestLoadFailureLeavesCampaignPending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.setWebhooks(ctx, "http://hooks.local/broadcast", "")
	svc := NewBroadcastService(env.stores.Campaigns, &flakyGuests{GuestStore: env.stores.Guests, fail: 1},
		env.stores.Settings, nil, env.sender, env.journal, zap.NewNop())

	c, err := svc.Create(ctx, BroadcastInput{Segment: segment.SelectorVIP, MessageText: "hi"})
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, c.ID)
	require.ErrorContains(t, err, "load guests")

	ids, err := env.stores.Campaigns.ListUndispatched(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{c.ID}, ids)

	assert.Equal(t, 1, svc.RequeuePending(ctx))
	assert.Equal(t, []uint64{4}, env.sender.guestIDs())

	rep, err := svc.Dispatch(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, rep.Skipped)
}

func TestBroadcastService_Dispatch_SendRecordFailureReleasesClaim(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.setWebhooks(ctx, "http://hooks.local/broadcast", "")
	svc := NewBroadcastService(&flakyCampaigns{CampaignStore: env.stores.Campaigns, fail: 1}, env.stores.Guests,
		env.stores.Settings, nil, env.sender, env.journal, zap.NewNop())

	c, err := svc.Create(ctx, BroadcastInput{Segment: segment.SelectorVIP, MessageText: "hi"})
	require.NoError(t, err)

	_, err = svc.Dispatch(ctx, c.ID)
	require.ErrorContains(t, err, "record send")
	assert.Empty(t, env.sender.guestIDs())

	rep, err := svc.Dispatch(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DispatchReport{CampaignID: c.ID, Recipients: 1, Sent: 1}, rep)
	assert.Equal(t, []uint64{4}, env.sender.guestIDs())
}

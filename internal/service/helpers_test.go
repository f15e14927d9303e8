package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/notify"
	"github.com/iliyamo/chinor-crm/internal/repository"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.BroadcastMessage
	fail map[uint64]bool
}

func (f *fakeSender) SendBroadcast(_ context.Context, _ string, msg notify.BroadcastMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[msg.GuestID] {
		return errors.New("gateway rejected")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) guestIDs() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uint64, 0, len(f.sent))
	for _, m := range f.sent {
		ids = append(ids, m.GuestID)
	}
	return ids
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.BookingMessage
	err  error
}

func (f *fakeNotifier) NotifyBooking(_ context.Context, _ string, msg notify.BookingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

type recordingPublisher struct {
	ids []uint64
	err error
}

func (p *recordingPublisher) PublishCampaignQueued(_ context.Context, id uint64) error {
	p.ids = append(p.ids, id)
	return p.err
}

type testEnv struct {
	store     *repository.MemoryStore
	stores    Stores
	journal   *Journal
	guests    *GuestService
	bookings  *BookingService
	broadcast *BroadcastService
	settings  *SettingsService
	dashboard *DashboardService
	users     *UserService
	sender    *fakeSender
	notifier  *fakeNotifier
	publisher *recordingPublisher
	now       time.Time
}

// newTestEnv builds every service over the seeded memory store with the
// clock fixed at 2026-02-07 12:00 UTC.
func newTestEnv() *testEnv {
	log := zap.NewNop()
	store := repository.NewSeededMemoryStore()
	st := MemoryStores(store)
	env := &testEnv{
		store:     store,
		stores:    st,
		sender:    &fakeSender{fail: map[uint64]bool{}},
		notifier:  &fakeNotifier{},
		publisher: &recordingPublisher{},
		now:       time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return env.now }
	env.journal = NewJournal(st.Activity, log)
	env.guests = NewGuestService(st.Guests, st.Settings, env.journal, log)
	env.guests.now = clock
	env.bookings = NewBookingService(st.Bookings, st.Guests, st.Settings, env.notifier, env.journal, log, time.UTC)
	env.broadcast = NewBroadcastService(st.Campaigns, st.Guests, st.Settings, env.publisher, env.sender, env.journal, log)
	env.broadcast.now = clock
	env.settings = NewSettingsService(st.Settings, env.journal, log)
	env.dashboard = NewDashboardService(st.Bookings, st.Guests, env.journal, log, time.UTC)
	env.dashboard.now = clock
	env.users = NewUserService(st.Users, 4, log)
	return env
}

// staff creates a hostess account and returns a context acting as them.
func (e *testEnv) staff() context.Context {
	u := &model.User{Email: "host@chinor.com", Role: model.RoleHostess1, DisplayName: "Хостес"}
	if err := e.stores.Users.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return WithActor(context.Background(), Actor{UserID: u.ID, Role: u.Role})
}

func (e *testEnv) setWebhooks(ctx context.Context, broadcastURL, bookingURL string) {
	_, err := e.settings.Update(ctx, model.SettingsPatch{
		BroadcastWebhookURL: &broadcastURL,
		BookingWebhookURL:   &bookingURL,
	})
	if err != nil {
		panic(err)
	}
}

func ptr[T any](v T) *T { return &v }

// Package service implements the CRM use cases on top of the repository
// layer.  Services depend on the small store interfaces below so that the
// MySQL repositories and the in-memory store are interchangeable.
package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/chinor-crm/internal/booking"
	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/notify"
	"github.com/iliyamo/chinor-crm/internal/repository"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

// GuestStore persists guests.  UpdateClassified hands fn the segment
// thresholds read under the same guest lock.
type GuestStore interface {
	List(ctx context.Context, f repository.GuestFilter) ([]model.Guest, int, error)
	ListAll(ctx context.Context, search string) ([]model.Guest, error)
	GetByID(ctx context.Context, id uint64) (model.Guest, error)
	GetByPhone(ctx context.Context, phone string) (model.Guest, error)
	Create(ctx context.Context, g *model.Guest) error
	Update(ctx context.Context, id uint64, fn func(*model.Guest) error) (model.Guest, error)
	UpdateClassified(ctx context.Context, id uint64, fn func(*model.Guest, segment.Thresholds) error) (model.Guest, error)
	RecalculateSegments(ctx context.Context, classify func(visits int) string) (model.RecalcResult, error)
	CountBySegment(ctx context.Context) (map[string]int, error)
}

// BookingStore persists bookings.  ChangeStatus must apply the transition
// and the guest counter update atomically.
type BookingStore interface {
	List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, int, error)
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	ChangeStatus(ctx context.Context, id uint64, to booking.Status) (model.Booking, booking.Outcome, error)
	CountByStatus(ctx context.Context) (map[booking.Status]int, error)
	CountBetween(ctx context.Context, from, to time.Time, statuses ...booking.Status) (int, error)
	TimesBetween(ctx context.Context, from, to time.Time) ([]time.Time, error)
}

// CampaignStore persists campaigns and their sends.
type CampaignStore interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id uint64) (model.Campaign, error)
	History(ctx context.Context) ([]model.BroadcastHistoryItem, error)
	ClaimDispatch(ctx context.Context, id uint64, at time.Time) (bool, error)
	ReleaseDispatch(ctx context.Context, id uint64) error
	ListUndispatched(ctx context.Context) ([]uint64, error)
	CreateSend(ctx context.Context, s *model.CampaignSend) error
	FinishSend(ctx context.Context, id uint64, status string, sentAt *time.Time, errMsg *string) error
	DeliveryTotals(ctx context.Context) (sent, failed int, err error)
}

// SettingsStore persists the global settings row.
type SettingsStore interface {
	Get(ctx context.Context) (model.Settings, error)
	Update(ctx context.Context, fn func(*model.Settings) error) (model.Settings, error)
}

// UserStore persists staff accounts.
type UserStore interface {
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u *model.User) error
	Update(ctx context.Context, id uint64, fn func(*model.User) error) (model.User, error)
	Delete(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int, error)
}

// ActivityStore persists the staff activity journal.
type ActivityStore interface {
	Record(ctx context.Context, a *model.Activity) error
	Recent(ctx context.Context, limit int) ([]model.Activity, error)
	UserStats(ctx context.Context) ([]model.UserActivityStats, error)
}

// Publisher hands a freshly created campaign over to the dispatch worker.
type Publisher interface {
	PublishCampaignQueued(ctx context.Context, campaignID uint64) error
}

// BroadcastSender delivers one campaign message to one guest.
type BroadcastSender interface {
	SendBroadcast(ctx context.Context, url string, msg notify.BroadcastMessage) error
}

// BookingNotifier announces a new booking to an external system.
type BookingNotifier interface {
	NotifyBooking(ctx context.Context, url string, msg notify.BookingMessage) error
}

// Stores bundles every store a backend provides.
type Stores struct {
	Guests    GuestStore
	Bookings  BookingStore
	Campaigns CampaignStore
	Settings  SettingsStore
	Users     UserStore
	Activity  ActivityStore
}

// MemoryStores returns the store bundle backed by an in-memory store.
func MemoryStores(m *repository.MemoryStore) Stores {
	return Stores{
		Guests:    m.Guests(),
		Bookings:  m.Bookings(),
		Campaigns: m.Campaigns(),
		Settings:  m.Settings(),
		Users:     m.Users(),
		Activity:  m.Activity(),
	}
}

// MySQLStores returns the store bundle backed by MySQL.
func MySQLStores(db *sql.DB) Stores {
	return Stores{
		Guests:    repository.NewGuestRepo(db),
		Bookings:  repository.NewBookingRepo(db),
		Campaigns: repository.NewCampaignRepo(db),
		Settings:  repository.NewSettingsRepo(db),
		Users:     repository.NewUserRepo(db),
		Activity:  repository.NewActivityRepo(db),
	}
}

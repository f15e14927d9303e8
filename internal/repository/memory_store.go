package repository

import (
	"sync"
	"time"

	"github.com/iliyamo/chinor-crm/internal/booking"
	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

// MemoryStore keeps every table in process memory behind one lock.  It is
// used when no database is configured and in service tests.  A single
// lock makes multi-table writes (a status change bumping the guest's
// confirmation counter) atomic the same way a MySQL transaction does.
//
// The typed views returned by Guests, Bookings and so on satisfy the same
// method sets as the MySQL repositories.
type MemoryStore struct {
	mu sync.RWMutex

	guests    map[uint64]model.Guest
	bookings  map[uint64]model.Booking
	campaigns map[uint64]model.Campaign
	sends     map[uint64]model.CampaignSend
	users     map[uint64]model.User
	activity  []model.Activity
	settings  *model.Settings

	nextGuest, nextBooking, nextCampaign, nextSend, nextUser, nextActivity uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		guests:    map[uint64]model.Guest{},
		bookings:  map[uint64]model.Booking{},
		campaigns: map[uint64]model.Campaign{},
		sends:     map[uint64]model.CampaignSend{},
		users:     map[uint64]model.User{},
	}
}

// NewSeededMemoryStore returns a store holding the demo guests and
// bookings staff see before a real database is connected.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	s.Seed()
	return s
}

func strPtr(s string) *string { return &s }

func mustTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		panic(err)
	}
	return t
}

func timePtr(v string) *time.Time {
	t := mustTime(v)
	return &t
}

// Seed inserts the demo data set.  It is not idempotent and is meant for
// a fresh store.
func (s *MemoryStore) Seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests := []model.Guest{
		{Name: strPtr("Искандер"), Phone: "+998901234567", Segment: segment.New, CreatedAt: mustTime("2026-01-15T10:00:00Z")},
		{Name: strPtr("Amir Muhidinzoda"), Phone: "+998901234568", Segment: segment.New, CreatedAt: mustTime("2026-01-16T11:00:00Z")},
		{Name: strPtr("Guest"), Phone: "+998901234569", Segment: segment.New, ConfirmedBookingsCount: 1, CreatedAt: mustTime("2026-01-17T12:00:00Z")},
		{Name: strPtr("Олег VIP"), Phone: "+998901234570", Email: strPtr("vip@example.com"), Segment: segment.VIP, VisitsCount: 12,
			LastVisitAt: timePtr("2026-02-01T19:00:00Z"), CreatedAt: mustTime("2025-06-10T10:00:00Z")},
		{Name: strPtr("Мария Постоянная"), Phone: "+998901234571", Segment: segment.Regular, VisitsCount: 5,
			LastVisitAt: timePtr("2026-01-28T14:00:00Z"), CreatedAt: mustTime("2025-11-20T09:00:00Z")},
	}
	for _, g := range guests {
		s.nextGuest++
		g.ID = s.nextGuest
		s.guests[g.ID] = g
	}

	bookings := []model.Booking{
		{GuestID: 1, BookingTime: mustTime("2026-03-12T13:00:00Z"), GuestsCount: 4, Status: booking.Pending, CreatedAt: mustTime("2026-02-05T10:00:00Z")},
		{GuestID: 2, BookingTime: mustTime("2026-02-06T19:00:00Z"), GuestsCount: 5, Status: booking.Pending, CreatedAt: mustTime("2026-02-04T15:00:00Z")},
		{GuestID: 3, BookingTime: mustTime("2026-02-07T20:00:00Z"), GuestsCount: 8, Status: booking.Confirmed, CreatedAt: mustTime("2026-02-03T14:00:00Z")},
	}
	for _, b := range bookings {
		s.nextBooking++
		b.ID = s.nextBooking
		s.bookings[b.ID] = b
	}

	st := model.DefaultSettings()
	s.settings = &st
}

// Guests returns the guest view of the store.
func (s *MemoryStore) Guests() *MemoryGuestRepo { return &MemoryGuestRepo{s: s} }

// Bookings returns the booking view of the store.
func (s *MemoryStore) Bookings() *MemoryBookingRepo { return &MemoryBookingRepo{s: s} }

// Campaigns returns the campaign view of the store.
func (s *MemoryStore) Campaigns() *MemoryCampaignRepo { return &MemoryCampaignRepo{s: s} }

// Settings returns the settings view of the store.
func (s *MemoryStore) Settings() *MemorySettingsRepo { return &MemorySettingsRepo{s: s} }

// Users returns the staff user view of the store.
func (s *MemoryStore) Users() *MemoryUserRepo { return &MemoryUserRepo{s: s} }

// Activity returns the journal view of the store.
func (s *MemoryStore) Activity() *MemoryActivityRepo { return &MemoryActivityRepo{s: s} }

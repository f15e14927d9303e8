package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/booking"
	"github.com/iliyamo/chinor-crm/internal/metrics"
	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/notify"
	"github.com/iliyamo/chinor-crm/internal/repository"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

// Persons accepted from the public booking form.
const (
	MinPublicPersons = 1
	MaxPublicPersons = 20
)

// BookingInput creates a booking.  Either GuestID or Guest must be set;
// with Guest the guest is looked up by phone and created when missing.
// Date (YYYY-MM-DD) and Time (HH:MM) are local restaurant time.
type BookingInput struct {
	GuestID *uint64     `json:"guestId"`
	Guest   *GuestInput `json:"guest" validate:"omitempty"`
	Date    string      `json:"date" validate:"required"`
	Time    string      `json:"time" validate:"required"`
	Persons int         `json:"persons"`
}

// StatusInput is the body of a status change request.
type StatusInput struct {
	Status string `json:"status" validate:"required"`
}

// BookingService implements booking creation and status changes.
type BookingService struct {
	bookings BookingStore
	guests   GuestStore
	settings SettingsStore
	notifier BookingNotifier
	journal  *Journal
	log      *zap.Logger
	loc      *time.Location

	webhookTimeout time.Duration
}

// NewBookingService wires a BookingService.  loc is the restaurant's
// time zone used to interpret form dates; notifier may be nil.
func NewBookingService(bookings BookingStore, guests GuestStore, settings SettingsStore, notifier BookingNotifier,
	journal *Journal, log *zap.Logger, loc *time.Location) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		bookings:       bookings,
		guests:         guests,
		settings:       settings,
		notifier:       notifier,
		journal:        journal,
		log:            log,
		loc:            loc,
		webhookTimeout: 5 * time.Second,
	}
}

// ParseBookingTime combines a form date and time in loc and returns UTC.
// Seconds in the time value are ignored.
func ParseBookingTime(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if len(date) > 10 {
		date = date[:10]
	}
	if len(clock) > 5 {
		clock = clock[:5]
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, invalid("invalid booking date or time")
	}
	return t.UTC(), nil
}

// DayRange returns the UTC bounds of the calendar day date (YYYY-MM-DD)
// in loc.
func DayRange(date string, loc *time.Location) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("invalid date %q, expected YYYY-MM-DD", date)
	}
	return d.UTC(), d.AddDate(0, 0, 1).UTC(), nil
}

// List returns a page of bookings, latest booking time first.  date, when
// set, restricts the list to that local calendar day.
func (s *BookingService) List(ctx context.Context, search, date string, p model.PageRequest) (model.Page[model.Booking], error) {
	p = p.Normalize()
	f := repository.BookingFilter{Search: strings.TrimSpace(search), Page: p}
	if strings.TrimSpace(date) != "" {
		from, to, err := DayRange(date, s.loc)
		if err != nil {
			return model.Page[model.Booking]{}, err
		}
		f.From, f.To = &from, &to
	}
	items, total, err := s.bookings.List(ctx, f)
	if err != nil {
		return model.Page[model.Booking]{}, fmt.Errorf("list bookings: %w", err)
	}
	return model.NewPage(items, total, p), nil
}

// Get returns one booking.
func (s *BookingService) Get(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	return b, notFound(err, "booking", id)
}

// Create books a table on behalf of staff.
func (s *BookingService) Create(ctx context.Context, in BookingInput) (model.Booking, error) {
	if in.Persons < 1 {
		return model.Booking{}, invalid("persons must be at least 1")
	}
	return s.create(ctx, in, "staff")
}

// CreatePublic books a table from the QR form.  The guest is identified by
// phone and the number of persons is clamped to the form's range.
func (s *BookingService) CreatePublic(ctx context.Context, in BookingInput) (model.Booking, error) {
	if in.Guest == nil {
		return model.Booking{}, invalid("guest phone is required")
	}
	in.GuestID = nil
	in.Persons = min(max(in.Persons, MinPublicPersons), MaxPublicPersons)
	return s.create(ctx, in, "qr")
}

func (s *BookingService) create(ctx context.Context, in BookingInput, source string) (model.Booking, error) {
	at, err := ParseBookingTime(in.Date, in.Time, s.loc)
	if err != nil {
		return model.Booking{}, err
	}
	g, err := s.resolveGuest(ctx, in)
	if err != nil {
		return model.Booking{}, err
	}

	b := model.Booking{GuestID: g.ID, BookingTime: at, GuestsCount: in.Persons}
	if actor, ok := ActorFrom(ctx); ok {
		uid := actor.UserID
		b.CreatedBy = &uid
	}
	if err := s.bookings.Create(ctx, &b); err != nil {
		return model.Booking{}, notFound(err, "guest", g.ID)
	}
	b.Guest = g.Summary()

	s.log.Info("booking created",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("guest_id", g.ID),
		zap.String("source", source))
	s.journal.Record(ctx, model.ActionBookingCreated, model.EntityBooking, b.ID,
		fmt.Sprintf("Бронь #%d: %s, %s, гостей %d", b.ID, guestLabel(g),
			b.BookingTime.In(s.loc).Format("02.01.2006 15:04"), b.GuestsCount), nil)
	s.notify(ctx, b, g, source)
	return b, nil
}

func (s *BookingService) resolveGuest(ctx context.Context, in BookingInput) (model.Guest, error) {
	if in.GuestID != nil {
		g, err := s.guests.GetByID(ctx, *in.GuestID)
		return g, notFound(err, "guest", *in.GuestID)
	}
	if in.Guest == nil {
		return model.Guest{}, invalid("guestId or guest is required")
	}
	phone := NormalizePhone(in.Guest.Phone)
	if phone == "" {
		return model.Guest{}, invalid("phone is required")
	}
	g, err := s.guests.GetByPhone(ctx, phone)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Guest{}, fmt.Errorf("find guest: %w", err)
	}
	g = model.Guest{
		Name:    optional(in.Guest.Name),
		Phone:   phone,
		Email:   optional(in.Guest.Email),
		Segment: segment.New,
	}
	if err := s.guests.Create(ctx, &g); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// created concurrently by another request
			return s.guests.GetByPhone(ctx, phone)
		}
		return model.Guest{}, fmt.Errorf("create guest: %w", err)
	}
	s.journal.Record(ctx, model.ActionGuestCreated, model.EntityGuest, g.ID,
		fmt.Sprintf("Добавлен гость %s (%s)", guestLabel(g), g.Phone), nil)
	return g, nil
}

// notify posts the new booking to the configured webhook.  Failures are
// logged only.
func (s *BookingService) notify(ctx context.Context, b model.Booking, g model.Guest, source string) {
	if s.notifier == nil {
		return
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		s.log.Warn("booking webhook skipped: settings unavailable", zap.Error(err))
		return
	}
	if st.BookingWebhookURL == "" {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.webhookTimeout)
	defer cancel()
	msg := notify.BookingMessage{
		BookingID:           b.ID,
		GuestID:             g.ID,
		GuestName:           g.Name,
		Phone:               g.Phone,
		BookingTime:         b.BookingTime,
		GuestsCount:         b.GuestsCount,
		Status:              string(b.Status),
		RestaurantPlace:     st.RestaurantPlace,
		DefaultTableMessage: st.DefaultTableMessage,
		Source:              source,
	}
	if err := s.notifier.NotifyBooking(wctx, st.BookingWebhookURL, msg); err != nil {
		s.log.Warn("booking webhook failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}

// UpdateStatus moves a booking to a new status.  Changes to the same
// booking are serialized by the store; re-applying the current status is
// a no-op.
func (s *BookingService) UpdateStatus(ctx context.Context, id uint64, raw string) (model.Booking, error) {
	to, err := booking.ParseStatus(raw)
	if err != nil {
		return model.Booking{}, invalid("%v", err)
	}
	b, out, err := s.bookings.ChangeStatus(ctx, id, to)
	if err != nil {
		return model.Booking{}, notFound(err, "booking", id)
	}
	if !out.Changed {
		return b, nil
	}
	metrics.BookingTransitions.WithLabelValues(string(out.From), string(to)).Inc()
	s.log.Info("booking status changed",
		zap.Uint64("booking_id", id),
		zap.String("from", string(out.From)),
		zap.String("to", string(to)),
		zap.Bool("counts_confirmation", out.CountsConfirmation))
	details := fmt.Sprintf(`{"from":%q,"to":%q}`, out.From, to)
	s.journal.Record(ctx, model.ActionStatusChange, model.EntityBooking, id,
		fmt.Sprintf("Бронь #%d: %s → %s", id, out.From, to), &details)
	return b, nil
}

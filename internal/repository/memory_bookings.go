package repository

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/chinor-crm/internal/booking"
	"github.com/iliyamo/chinor-crm/internal/model"
)

// MemoryBookingRepo is the in-memory counterpart of BookingRepo.
type MemoryBookingRepo struct{ s *MemoryStore }

// withGuest attaches the current guest summary, as the SQL join does.
func (s *MemoryStore) withGuest(b model.Booking) model.Booking {
	if g, ok := s.guests[b.GuestID]; ok {
		b.Guest = g.Summary()
	}
	return b
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

func (r *MemoryBookingRepo) List(_ context.Context, f BookingFilter) ([]model.Booking, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]model.Booking, 0, len(r.s.bookings))
	for _, b := range r.s.bookings {
		b = r.s.withGuest(b)
		if b.Guest == nil || !matchesSearch(f.Search, b.Guest.Name, b.Guest.Phone) {
			continue
		}
		if !inRange(b.BookingTime, f.From, f.To) {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].BookingTime.Equal(all[j].BookingTime) {
			return all[i].BookingTime.After(all[j].BookingTime)
		}
		return all[i].ID > all[j].ID
	})
	return paginate(all, f.Page), len(all), nil
}

func (r *MemoryBookingRepo) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return model.Booking{}, ErrNotFound
	}
	return r.s.withGuest(b), nil
}

func (r *MemoryBookingRepo) Create(_ context.Context, b *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.guests[b.GuestID]; !ok {
		return ErrNotFound
	}
	b.Status = booking.Pending
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	r.s.nextBooking++
	b.ID = r.s.nextBooking
	stored := *b
	stored.Guest = nil
	r.s.bookings[b.ID] = stored
	return nil
}

func (r *MemoryBookingRepo) ChangeStatus(_ context.Context, id uint64, to booking.Status) (model.Booking, booking.Outcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return model.Booking{}, booking.Outcome{}, ErrNotFound
	}
	out, err := booking.Transition(b.Status, to)
	if err != nil {
		return model.Booking{}, booking.Outcome{}, err
	}
	if out.Changed {
		b.Status = to
		r.s.bookings[id] = b
	}
	if out.CountsConfirmation {
		if g, ok := r.s.guests[b.GuestID]; ok {
			g.ConfirmedBookingsCount++
			r.s.guests[g.ID] = g
		}
	}
	return r.s.withGuest(b), out, nil
}

func (r *MemoryBookingRepo) CountByStatus(_ context.Context) (map[booking.Status]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[booking.Status]int{}
	for _, b := range r.s.bookings {
		out[b.Status]++
	}
	return out, nil
}

func (r *MemoryBookingRepo) CountBetween(_ context.Context, from, to time.Time, statuses ...booking.Status) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, b := range r.s.bookings {
		if !inRange(b.BookingTime, &from, &to) {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, b.Status) {
			continue
		}
		n++
	}
	return n, nil
}

func hasStatus(list []booking.Status, s booking.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (r *MemoryBookingRepo) TimesBetween(_ context.Context, from, to time.Time) ([]time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []time.Time
	for _, b := range r.s.bookings {
		if inRange(b.BookingTime, &from, &to) {
			out = append(out, b.BookingTime)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

package repository

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

// MemoryGuestRepo is the in-memory counterpart of GuestRepo.
type MemoryGuestRepo struct{ s *MemoryStore }

func (r *MemoryGuestRepo) filtered(search string) []model.Guest {
	out := make([]model.Guest, 0, len(r.s.guests))
	for _, g := range r.s.guests {
		if matchesSearch(search, g.Name, g.Phone) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryGuestRepo) List(_ context.Context, f GuestFilter) ([]model.Guest, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := r.filtered(f.Search)
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, f.Page), len(all), nil
}

func (r *MemoryGuestRepo) ListAll(_ context.Context, search string) ([]model.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filtered(search), nil
}

func (r *MemoryGuestRepo) GetByID(_ context.Context, id uint64) (model.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.guests[id]
	if !ok {
		return model.Guest{}, ErrNotFound
	}
	return g, nil
}

func (r *MemoryGuestRepo) GetByPhone(_ context.Context, phone string) (model.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if g, ok := r.s.guestByPhone(phone); ok {
		return g, nil
	}
	return model.Guest{}, ErrNotFound
}

func (s *MemoryStore) guestByPhone(phone string) (model.Guest, bool) {
	for _, g := range s.guests {
		if g.Phone == phone {
			return g, true
		}
	}
	return model.Guest{}, false
}

func (r *MemoryGuestRepo) Create(_ context.Context, g *model.Guest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.guestByPhone(g.Phone); dup {
		return ErrPhoneExists
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	r.s.nextGuest++
	g.ID = r.s.nextGuest
	r.s.guests[g.ID] = *g
	return nil
}

func (r *MemoryGuestRepo) Update(_ context.Context, id uint64, fn func(*model.Guest) error) (model.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.updateLocked(id, fn)
}

func (r *MemoryGuestRepo) updateLocked(id uint64, fn func(*model.Guest) error) (model.Guest, error) {
	g, ok := r.s.guests[id]
	if !ok {
		return model.Guest{}, ErrNotFound
	}
	if err := fn(&g); err != nil {
		return model.Guest{}, err
	}
	if other, dup := r.s.guestByPhone(g.Phone); dup && other.ID != id {
		return model.Guest{}, ErrPhoneExists
	}
	g.ID = id
	r.s.guests[id] = g
	return g, nil
}

// UpdateClassified is Update with the current segment thresholds, read
// under the same lock as the guest.
func (r *MemoryGuestRepo) UpdateClassified(_ context.Context, id uint64, fn func(*model.Guest, segment.Thresholds) error) (model.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	th := r.s.ensureSettings().Thresholds()
	return r.updateLocked(id, func(g *model.Guest) error { return fn(g, th) })
}

func (r *MemoryGuestRepo) RecalculateSegments(_ context.Context, classify func(visits int) string) (model.RecalcResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res := model.RecalcResult{Total: len(r.s.guests)}
	for id, g := range r.s.guests {
		if next := classify(g.VisitsCount); next != g.Segment {
			g.Segment = next
			r.s.guests[id] = g
			res.Updated++
		}
	}
	return res, nil
}

func (r *MemoryGuestRepo) CountBySegment(_ context.Context) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[string]int{}
	for _, g := range r.s.guests {
		out[g.Segment]++
	}
	return out, nil
}

package repository

import (
	"context"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// MemoryActivityRepo is the in-memory counterpart of ActivityRepo.
type MemoryActivityRepo struct{ s *MemoryStore }

func (r *MemoryActivityRepo) Record(_ context.Context, a *model.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	r.s.nextActivity++
	a.ID = r.s.nextActivity
	r.s.activity = append(r.s.activity, *a)
	return nil
}

func (r *MemoryActivityRepo) Recent(_ context.Context, limit int) ([]model.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Activity{}
	for i := len(r.s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		a := r.s.activity[i]
		if u, ok := r.s.users[a.UserID]; ok {
			a.UserDisplayName = u.DisplayName
			a.UserEmail = u.Email
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *MemoryActivityRepo) UserStats(_ context.Context) ([]model.UserActivityStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	byUser := map[uint64]*model.UserActivityStats{}
	for _, a := range r.s.activity {
		st, ok := byUser[a.UserID]
		if !ok {
			st = &model.UserActivityStats{}
			byUser[a.UserID] = st
		}
		switch a.ActionType {
		case model.ActionBookingCreated:
			st.BookingsCreated++
		case model.ActionGuestCreated:
			st.GuestsCreated++
		case model.ActionStatusChange:
			st.StatusChanges++
		}
	}
	out := make([]model.UserActivityStats, 0, len(r.s.users))
	for id := uint64(1); id <= r.s.nextUser; id++ {
		u, ok := r.s.users[id]
		if !ok {
			continue
		}
		st := model.UserActivityStats{}
		if agg, ok := byUser[id]; ok {
			st = *agg
		}
		st.UserID, st.DisplayName, st.Email, st.Role = u.ID, u.DisplayName, u.Email, u.Role
		out = append(out, st)
	}
	return out, nil
}

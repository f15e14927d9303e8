package repository

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// MemoryCampaignRepo is the in-memory counterpart of CampaignRepo.
type MemoryCampaignRepo struct{ s *MemoryStore }

func (r *MemoryCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	c.UpdatedAt = c.CreatedAt
	r.s.nextCampaign++
	c.ID = r.s.nextCampaign
	r.s.campaigns[c.ID] = *c
	return nil
}

func (r *MemoryCampaignRepo) GetByID(_ context.Context, id uint64) (model.Campaign, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return model.Campaign{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryCampaignRepo) History(_ context.Context) ([]model.BroadcastHistoryItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := map[uint64]*model.BroadcastHistoryItem{}
	out := make([]model.BroadcastHistoryItem, 0, len(r.s.campaigns))
	for _, c := range r.s.campaigns {
		counts[c.ID] = &model.BroadcastHistoryItem{Campaign: c}
	}
	for _, s := range r.s.sends {
		item, ok := counts[s.CampaignID]
		if !ok {
			continue
		}
		switch s.Status {
		case model.SendSent:
			item.SentCount++
		case model.SendFailed:
			item.FailedCount++
		}
	}
	for _, item := range counts {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Campaign, out[j].Campaign
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (r *MemoryCampaignRepo) ClaimDispatch(_ context.Context, id uint64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return false, nil
	}
	if c.DispatchedAt != nil {
		return false, nil
	}
	t := at.UTC()
	c.DispatchedAt = &t
	r.s.campaigns[id] = c
	return true, nil
}

func (r *MemoryCampaignRepo) ReleaseDispatch(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.campaigns[id]; ok {
		c.DispatchedAt = nil
		r.s.campaigns[id] = c
	}
	return nil
}

func (r *MemoryCampaignRepo) ListUndispatched(_ context.Context) ([]uint64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ids []uint64
	for id, c := range r.s.campaigns {
		if c.DispatchedAt == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *MemoryCampaignRepo) CreateSend(_ context.Context, s *model.CampaignSend) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s.Status == "" {
		s.Status = model.SendPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	r.s.nextSend++
	s.ID = r.s.nextSend
	r.s.sends[s.ID] = *s
	return nil
}

func (r *MemoryCampaignRepo) FinishSend(_ context.Context, id uint64, status string, sentAt *time.Time, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	s, ok := r.s.sends[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.SentAt = sentAt
	s.ErrorMessage = errMsg
	r.s.sends[id] = s
	return nil
}

func (r *MemoryCampaignRepo) DeliveryTotals(_ context.Context) (sent, failed int, err error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, s := range r.s.sends {
		switch s.Status {
		case model.SendSent:
			sent++
		case model.SendFailed:
			failed++
		}
	}
	return sent, failed, nil
}

// Sends returns the sends of one campaign in creation order.
func (r *MemoryCampaignRepo) Sends(campaignID uint64) []model.CampaignSend {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.CampaignSend
	for _, s := range r.s.sends {
		if s.CampaignID == campaignID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/export"
	"github.com/iliyamo/chinor-crm/internal/metrics"
	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/repository"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

// GuestInput creates a guest from the staff form or the public QR form.
type GuestInput struct {
	Name                  *string `json:"name" validate:"omitempty,max=255"`
	Phone                 string  `json:"phone" validate:"required,max=32"`
	Email                 *string `json:"email" validate:"omitempty,max=255"`
	ExcludeFromBroadcasts bool    `json:"exclude_from_broadcasts"`
}

// GuestPatch is a partial guest update.  Segment is accepted by the
// decoder only so that an attempt to set it can be rejected explicitly.
type GuestPatch struct {
	Name                  *string `json:"name" validate:"omitempty,max=255"`
	Phone                 *string `json:"phone" validate:"omitempty,max=32"`
	Email                 *string `json:"email" validate:"omitempty,max=255"`
	ExcludeFromBroadcasts *bool   `json:"exclude_from_broadcasts"`
	Segment               *string `json:"segment"`
}

// GuestService implements guest management, visit recording and segment
// recalculation.
type GuestService struct {
	guests   GuestStore
	settings SettingsStore
	journal  *Journal
	log      *zap.Logger
	now      func() time.Time
}

// NewGuestService wires a GuestService.
func NewGuestService(guests GuestStore, settings SettingsStore, journal *Journal, log *zap.Logger) *GuestService {
	return &GuestService{guests: guests, settings: settings, journal: journal, log: log, now: time.Now}
}

// NormalizePhone strips formatting characters from a phone number.
func NormalizePhone(p string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(p) {
		switch r {
		case ' ', '-', '(', ')', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// List returns a page of guests, newest first.
func (s *GuestService) List(ctx context.Context, search string, p model.PageRequest) (model.Page[model.Guest], error) {
	p = p.Normalize()
	items, total, err := s.guests.List(ctx, repository.GuestFilter{Search: strings.TrimSpace(search), Page: p})
	if err != nil {
		return model.Page[model.Guest]{}, fmt.Errorf("list guests: %w", err)
	}
	return model.NewPage(items, total, p), nil
}

// Get returns one guest.
func (s *GuestService) Get(ctx context.Context, id uint64) (model.Guest, error) {
	g, err := s.guests.GetByID(ctx, id)
	return g, notFound(err, "guest", id)
}

// Create adds a guest entered by staff.
func (s *GuestService) Create(ctx context.Context, in GuestInput) (model.Guest, error) {
	return s.create(ctx, in, "staff")
}

// CreatePublic adds a guest from the QR self-registration form.
func (s *GuestService) CreatePublic(ctx context.Context, in GuestInput) (model.Guest, error) {
	return s.create(ctx, in, "qr")
}

func (s *GuestService) create(ctx context.Context, in GuestInput, source string) (model.Guest, error) {
	phone := NormalizePhone(in.Phone)
	if phone == "" {
		return model.Guest{}, invalid("phone is required")
	}
	g := model.Guest{
		Name:                  optional(in.Name),
		Phone:                 phone,
		Email:                 optional(in.Email),
		Segment:               segment.New,
		ExcludeFromBroadcasts: in.ExcludeFromBroadcasts,
	}
	if err := s.guests.Create(ctx, &g); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Guest{}, &ConflictError{Msg: "Guest with this phone already exists"}
		}
		return model.Guest{}, fmt.Errorf("create guest: %w", err)
	}
	s.log.Info("guest created", zap.Uint64("guest_id", g.ID), zap.String("source", source))
	s.journal.Record(ctx, model.ActionGuestCreated, model.EntityGuest, g.ID,
		fmt.Sprintf("Добавлен гость %s (%s)", guestLabel(g), g.Phone), nil)
	return g, nil
}

// Update edits a guest's profile.  Segment cannot be set this way; it
// follows the visit count.
func (s *GuestService) Update(ctx context.Context, id uint64, p GuestPatch) (model.Guest, error) {
	if p.Segment != nil {
		return model.Guest{}, invalid("segment is derived from visits and cannot be set")
	}
	var phone string
	if p.Phone != nil {
		phone = NormalizePhone(*p.Phone)
		if phone == "" {
			return model.Guest{}, invalid("phone must not be empty")
		}
	}
	g, err := s.guests.Update(ctx, id, func(g *model.Guest) error {
		if p.Name != nil {
			g.Name = optional(p.Name)
		}
		if p.Phone != nil {
			g.Phone = phone
		}
		if p.Email != nil {
			g.Email = optional(p.Email)
		}
		if p.ExcludeFromBroadcasts != nil {
			g.ExcludeFromBroadcasts = *p.ExcludeFromBroadcasts
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Guest{}, &ConflictError{Msg: "Guest with this phone already exists"}
		}
		return model.Guest{}, notFound(err, "guest", id)
	}
	s.journal.Record(ctx, model.ActionGuestUpdated, model.EntityGuest, g.ID,
		fmt.Sprintf("Изменён гость %s", guestLabel(g)), nil)
	return g, nil
}

// RecordVisit counts one more visit for the guest, stamps the visit time
// and re-classifies the guest in the same locked update, so readers never
// see a count without its matching segment.  The thresholds are read
// inside that update, so a concurrent recalculation cannot be overwritten
// with a label from stale thresholds.
func (s *GuestService) RecordVisit(ctx context.Context, id uint64) (model.Guest, error) {
	g, err := s.guests.UpdateClassified(ctx, id, func(g *model.Guest, th segment.Thresholds) error {
		now := s.now().UTC().Truncate(time.Second)
		g.VisitsCount++
		g.LastVisitAt = &now
		g.Segment = segment.Classify(g.VisitsCount, th)
		return nil
	})
	if err != nil {
		return model.Guest{}, notFound(err, "guest", id)
	}
	metrics.VisitsRecorded.Inc()
	s.journal.Record(ctx, model.ActionVisitAdded, model.EntityGuest, g.ID,
		fmt.Sprintf("Визит гостя %s (всего %d, сегмент %s)", guestLabel(g), g.VisitsCount, g.Segment), nil)
	return g, nil
}

// Stats counts guests per segment.
func (s *GuestService) Stats(ctx context.Context) (model.GuestStats, error) {
	counts, err := s.guests.CountBySegment(ctx)
	if err != nil {
		return model.GuestStats{}, fmt.Errorf("count guests: %w", err)
	}
	st := model.GuestStats{
		VIP:     counts[segment.VIP],
		Regular: counts[segment.Regular],
		New:     counts[segment.New],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// RecalculateSegments re-classifies every guest against the current
// thresholds.  Running it twice without changing thresholds updates
// nothing the second time.
func (s *GuestService) RecalculateSegments(ctx context.Context) (model.RecalcResult, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return model.RecalcResult{}, fmt.Errorf("load settings: %w", err)
	}
	th := st.Thresholds()
	if err := th.Validate(); err != nil {
		return model.RecalcResult{}, invalid("%v", err)
	}
	res, err := s.guests.RecalculateSegments(ctx, func(visits int) string {
		return segment.Classify(visits, th)
	})
	if err != nil {
		return model.RecalcResult{}, fmt.Errorf("recalculate segments: %w", err)
	}
	metrics.SegmentRecalculations.Inc()
	s.log.Info("segments recalculated",
		zap.Int("total", res.Total),
		zap.Int("updated", res.Updated),
		zap.Int("regular_threshold", th.Regular),
		zap.Int("vip_threshold", th.VIP))
	s.journal.Record(ctx, model.ActionSegmentsRecalculate, model.EntitySettings, 1,
		fmt.Sprintf("Пересчёт сегментов: обновлено %d из %d", res.Updated, res.Total), nil)
	return res, nil
}

// Export writes every guest matching search to w.
func (s *GuestService) Export(ctx context.Context, w io.Writer, f export.Format, search string) error {
	guests, err := s.guests.ListAll(ctx, strings.TrimSpace(search))
	if err != nil {
		return fmt.Errorf("load guests: %w", err)
	}
	return export.WriteGuests(w, f, guests)
}

func guestLabel(g model.Guest) string {
	if n := g.DisplayName(); n != "" {
		return n
	}
	return fmt.Sprintf("#%d", g.ID)
}

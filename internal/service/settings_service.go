package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// SettingsService reads and patches the global settings.
type SettingsService struct {
	store   SettingsStore
	journal *Journal
	log     *zap.Logger
}

// NewSettingsService wires a SettingsService.
func NewSettingsService(store SettingsStore, journal *Journal, log *zap.Logger) *SettingsService {
	return &SettingsService{store: store, journal: journal, log: log}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	st, err := s.store.Get(ctx)
	if err != nil {
		return model.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

// Update applies a partial update.  The resulting thresholds must be
// non-negative with VIP not below Regular, otherwise nothing is saved.
// Changing thresholds does not re-classify existing guests.
func (s *SettingsService) Update(ctx context.Context, p model.SettingsPatch) (model.Settings, error) {
	var before model.Settings
	st, err := s.store.Update(ctx, func(st *model.Settings) error {
		before = *st
		p.Apply(st)
		st.WebhookURL = strings.TrimSpace(st.WebhookURL)
		st.BroadcastWebhookURL = strings.TrimSpace(st.BroadcastWebhookURL)
		st.BookingWebhookURL = strings.TrimSpace(st.BookingWebhookURL)
		if err := st.Thresholds().Validate(); err != nil {
			return invalid("%v", err)
		}
		return nil
	})
	if err != nil {
		return model.Settings{}, err
	}
	if before.Thresholds() != st.Thresholds() {
		s.log.Info("segment thresholds changed",
			zap.Int("regular", st.SegmentRegularThreshold),
			zap.Int("vip", st.SegmentVIPThreshold))
	}
	s.journal.Record(ctx, model.ActionSettingsUpdated, model.EntitySettings, 1,
		fmt.Sprintf("Настройки обновлены (пороги: %d / %d)", st.SegmentRegularThreshold, st.SegmentVIPThreshold), nil)
	return st, nil
}

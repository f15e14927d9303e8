package repository

import (
	"context"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// MemorySettingsRepo is the in-memory counterpart of SettingsRepo.
type MemorySettingsRepo struct{ s *MemoryStore }

func (r *MemorySettingsRepo) Get(_ context.Context) (model.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return *r.s.ensureSettings(), nil
}

func (s *MemoryStore) ensureSettings() *model.Settings {
	if s.settings == nil {
		d := model.DefaultSettings()
		s.settings = &d
	}
	return s.settings
}

func (r *MemorySettingsRepo) Update(_ context.Context, fn func(*model.Settings) error) (model.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st := *r.s.ensureSettings()
	if err := fn(&st); err != nil {
		return model.Settings{}, err
	}
	r.s.settings = &st
	return st, nil
}

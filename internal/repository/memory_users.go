package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// MemoryUserRepo is the in-memory counterpart of UserRepo.
type MemoryUserRepo struct{ s *MemoryStore }

func (s *MemoryStore) userByEmail(email string) (model.User, bool) {
	for _, u := range s.users {
		if u.Email == email {
			return u, true
		}
	}
	return model.User{}, false
}

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, dup := r.s.userByEmail(u.Email); dup {
		return ErrEmailExists
	}
	now := time.Now().UTC().Truncate(time.Second)
	u.CreatedAt = &now
	r.s.nextUser++
	u.ID = r.s.nextUser
	r.s.users[u.ID] = *u
	return nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.userByEmail(strings.ToLower(strings.TrimSpace(email))); ok {
		return u, nil
	}
	return model.User{}, ErrNotFound
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepo) List(_ context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryUserRepo) Update(_ context.Context, id uint64, fn func(*model.User) error) (model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	if err := fn(&u); err != nil {
		return model.User{}, err
	}
	u.ID = id
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if other, dup := r.s.userByEmail(u.Email); dup && other.ID != id {
		return model.User{}, ErrEmailExists
	}
	r.s.users[id] = u
	return u, nil
}

func (r *MemoryUserRepo) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

func (r *MemoryUserRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// Session is the signed-in state: the access token and the user it was
// issued to.
type Session struct {
	Token string      `json:"access_token"`
	User  *model.User `json:"user,omitempty"`
}

// SessionStore persists the session between client runs.  Load returns a
// zero Session when nothing is stored.
type SessionStore interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// MemorySessionStore keeps the session in memory.
type MemorySessionStore struct {
	mu sync.Mutex
	s  Session
}

func (m *MemorySessionStore) Load() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemorySessionStore) Save(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemorySessionStore) Clear() error {
	return m.Save(Session{})
}

// FileSessionStore keeps the session in a JSON file readable only by the
// current user.
type FileSessionStore struct {
	Path string
}

func (f FileSessionStore) Load() (Session, error) {
	var s Session
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", f.Path, err)
	}
	return s, nil
}

func (f FileSessionStore) Save(s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, b, 0o600)
}

func (f FileSessionStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

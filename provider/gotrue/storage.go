package gotrue

import (
	"sync"

	"github.com/goliatone/go-session"
)

// Storage persists the raw session blob between application runs. The
// lifecycle manager never touches it; the gateway owns persistence.
type Storage interface {
	Load() (*session.Session, error)
	Save(s *session.Session) error
	Clear() error
}

// MemoryStorage keeps the session for the lifetime of the process.
type MemoryStorage struct {
	mu      sync.Mutex
	current *session.Session
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone(), nil
}

func (m *MemoryStorage) Save(s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s.Clone()
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

var _ Storage = (*MemoryStorage)(nil)

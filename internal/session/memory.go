package session

import (
	"context"
	"sync"
	"time"

	"github.com/ivanoskov/fintrack_bot/internal/model"
)

// MemoryStore хранит сессии в памяти процесса, перезапуск их теряет
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]model.Session
}

func NewMemory(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]model.Session),
	}
}

// WithClock подменяет источник времени
func (m *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	m.now = now
	return m
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	if s.Expired(m.now(), m.ttl) {
		delete(m.sessions, userID)
		return model.Session{}, ErrExpired
	}
	return s, nil
}

func (m *MemoryStore) Put(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now()
	m.sessions[s.UserID] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
	return nil
}

func (m *MemoryStore) ListExpired(_ context.Context, now time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []int64
	for id, s := range m.sessions {
		if s.Expired(now, m.ttl) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, userID int64, now time.Time) (model.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok || !s.Expired(now, m.ttl) {
		return model.Session{}, false, nil
	}
	delete(m.sessions, userID)
	return s, true, nil
}

// Len количество сессий в памяти
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

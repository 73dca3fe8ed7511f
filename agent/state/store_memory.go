package state

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/huandu/go-clone"
)

// MemoryStore keeps sessions in process memory. Loads and saves copy the
// record so callers never share slices with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionState
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*SessionState, 16),
		now:      time.Now,
	}
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, ErrInvalidSession
	}

	m.mu.RLock()
	st, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	return clone.Clone(st).(*SessionState), nil
}

func (m *MemoryStore) Save(ctx context.Context, st *SessionState) error {
	if st == nil {
		return ErrNilSessionState
	}
	id := strings.TrimSpace(st.SessionID)
	if id == "" {
		return ErrInvalidSession
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = m.now().UTC()
	}

	cp := clone.Clone(st).(*SessionState)
	m.mu.Lock()
	m.sessions[id] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

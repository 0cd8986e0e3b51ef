package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Store. Sessions are stored encoded so callers
// never share a Draft with the store.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[int64]memEntry
	now     func() time.Time
}

// NewMemory creates a Memory store. A zero ttl uses DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, entries: make(map[int64]memEntry), now: time.Now}
}

func (m *Memory) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	e, ok := m.entries[userID]
	if ok && !m.now().Before(e.expiresAt) {
		delete(m.entries, userID)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}

	var s Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (m *Memory) Put(_ context.Context, s *Session) error {
	s.UpdatedAt = m.now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	m.entries[s.UserID] = memEntry{data: data, expiresAt: s.UpdatedAt.Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

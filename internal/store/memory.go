package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. Entries expire ttl after they were saved and
// are dropped on the next Save after that.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]Entry
	byPrint map[string]string
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an empty in-memory store. A ttl of zero keeps entries forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		byID:    make(map[string]Entry),
		byPrint: make(map[string]string),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Save(_ context.Context, e Entry) (Entry, error) {
	e = prepare(e, m.now)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.byID[e.ID] = e
	if e.Fingerprint != "" {
		m.byPrint[e.Fingerprint] = e.ID
	}
	return e, nil
}

func (m *Memory) Get(_ context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok || m.expired(e) {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) FindByFingerprint(ctx context.Context, fingerprint string) (Entry, error) {
	m.mu.RLock()
	id, ok := m.byPrint[fingerprint]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, ErrNotFound
	}
	return m.Get(ctx, id)
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.byID {
		if !m.expired(e) {
			n++
		}
	}
	return n
}

func (m *Memory) expired(e Entry) bool {
	return m.ttl > 0 && !m.now().Before(e.CreatedAt.Add(m.ttl))
}

// sweep drops expired entries. Callers hold the write lock.
func (m *Memory) sweep() {
	if m.ttl <= 0 {
		return
	}
	for id, e := range m.byID {
		if !m.expired(e) {
			continue
		}
		delete(m.byID, id)
		if m.byPrint[e.Fingerprint] == id {
			delete(m.byPrint, e.Fingerprint)
		}
	}
}

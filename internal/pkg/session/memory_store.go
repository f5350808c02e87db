// internal/pkg/session/memory_store.go
package session

import (
	"context"
	"sort"
	"sync"

	"academy-service/internal/domain/auth"
)

// MemoryStorage is a tab storage held in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// MemoryDurableMap keeps copies of entries so callers can't mutate stored state.
type MemoryDurableMap struct {
	mu        sync.RWMutex
	entries   map[string]auth.TabEntry
	providers map[string]auth.ProviderSession
}

func NewMemoryDurableMap() *MemoryDurableMap {
	return &MemoryDurableMap{
		entries:   make(map[string]auth.TabEntry),
		providers: make(map[string]auth.ProviderSession),
	}
}

func (m *MemoryDurableMap) Get(_ context.Context, tabID string) (*auth.TabEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[tabID]
	if !ok {
		return nil, nil
	}
	return copyEntry(e), nil
}

func (m *MemoryDurableMap) Put(_ context.Context, entry *auth.TabEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.TabID] = *copyEntry(*entry)
	return nil
}

func (m *MemoryDurableMap) Delete(_ context.Context, tabID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, tabID)
	return nil
}

func (m *MemoryDurableMap) List(_ context.Context) ([]*auth.TabEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*auth.TabEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, copyEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out, nil
}

func (m *MemoryDurableMap) GetProvider(_ context.Context, tabID string) (*auth.ProviderSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ps, ok := m.providers[tabID]
	if !ok {
		return nil, nil
	}
	return &ps, nil
}

func (m *MemoryDurableMap) PutProvider(_ context.Context, tabID string, ps *auth.ProviderSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[tabID] = *ps
	return nil
}

func (m *MemoryDurableMap) DeleteProvider(_ context.Context, tabID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.providers, tabID)
	return nil
}

// Update mutates a stored entry in place; used by tests to age entries.
func (m *MemoryDurableMap) Update(tabID string, fn func(e *auth.TabEntry)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[tabID]
	if !ok {
		return false
	}
	fn(&e)
	m.entries[tabID] = e
	return true
}

func copyEntry(e auth.TabEntry) *auth.TabEntry {
	if e.ClosedAt != nil {
		t := *e.ClosedAt
		e.ClosedAt = &t
	}
	return &e
}

// MemoryDurableStore keeps one MemoryDurableMap per browser id
type MemoryDurableStore struct {
	mu       sync.Mutex
	browsers map[string]*MemoryDurableMap
}

func NewMemoryDurableStore() *MemoryDurableStore {
	return &MemoryDurableStore{browsers: make(map[string]*MemoryDurableMap)}
}

func (s *MemoryDurableStore) ForBrowser(browserID string) DurableMap {
	return s.Browser(browserID)
}

// Browser returns the concrete map so tests can inspect it.
func (s *MemoryDurableStore) Browser(browserID string) *MemoryDurableMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.browsers[browserID]
	if !ok {
		m = NewMemoryDurableMap()
		s.browsers[browserID] = m
	}
	return m
}

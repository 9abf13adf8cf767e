package store

import "sync"

type slot struct {
	value   string
	version uint64
}

// MemStore is an in-memory Store. Used by tests and as the fallback when
// no data directory is configured.
type MemStore struct {
	mu    sync.RWMutex
	slots map[string]slot
}

func NewMemStore() *MemStore {
	return &MemStore{slots: make(map[string]slot)}
}

func (m *MemStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slots[key]
	return s.value, ok, nil
}

func (m *MemStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[key]
	m.slots[key] = slot{value: value, version: s.version + 1}
	return nil
}

func (m *MemStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, key)
	return nil
}

func (m *MemStore) GetVersioned(key string) (string, uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slots[key]
	if !ok {
		return "", 0, false, nil
	}
	return s.value, s.version, true, nil
}

func (m *MemStore) SetVersioned(key, value string, version uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[key]
	if s.version != version {
		return ErrVersionConflict
	}
	m.slots[key] = slot{value: value, version: version + 1}
	return nil
}

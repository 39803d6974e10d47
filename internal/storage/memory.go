package storage

import "sync"

// Memory is an in-process Provider. It backs tests and is the fallback when
// the save directory is unavailable; its contents are lost on exit.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte

	// FailSaves makes every Save return this error when non-nil.
	FailSaves error
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Load returns a copy of the bytes stored under key.
func (m *Memory) Load(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return nil, ErrMissing
	}
	return append([]byte(nil), raw...), nil
}

// Save stores a copy of raw under key.
func (m *Memory) Save(key string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.data[key] = append([]byte(nil), raw...)
	return nil
}

package storage

import "sync"

// Memory keeps the collection in process memory.
type Memory struct {
	mu      sync.Mutex
	data    []byte
	saveErr error
	saves   int
}

// NewMemory returns a memory backend seeded with data.
func NewMemory(data []byte) *Memory {
	return &Memory{data: append([]byte(nil), data...)}
}

// Load returns a copy of the stored bytes, or nil when empty.
func (m *Memory) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) == 0 {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

// Save stores a copy of data unless a save error has been injected.
func (m *Memory) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

// FailSaves makes every following Save return err; nil restores saving.
func (m *Memory) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves returns the number of successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

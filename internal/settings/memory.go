package settings

import (
	"context"
	"sync"
)

// Memory keeps settings in process memory.
type Memory struct {
	mu     sync.Mutex
	values Settings
}

// NewMemory creates a store seeded with initial.
func NewMemory(initial Settings) *Memory {
	return &Memory{values: initial}
}

func (m *Memory) Get(_ context.Context, defaults Settings) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return merge(defaults, m.values), nil
}

func (m *Memory) Set(_ context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = merge(m.values, s.Normalize())
	return nil
}

func (m *Memory) Close() error { return nil }

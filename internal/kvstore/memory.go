package kvstore

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Store. It plays the role of per-run session storage.
type Memory struct {
	opts options

	mu    sync.Mutex
	items map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory(opts ...Option) *Memory {
	return &Memory{opts: newOptions(opts), items: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.items[key]
	if !ok {
		return false, nil
	}

	found, stale, err := m.opts.decode(raw, dst)
	if stale {
		delete(m.items, key)
	}
	return found, err
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}

	raw, err := m.opts.encode(value, ttl)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	clear(m.items)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

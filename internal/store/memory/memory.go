package memory

import (
	"context"
	"sync"

	"github.com/vovakirdan/grammarchat-server/internal/store"
)

// KV is an in-process store.KV. It is the default for tests and for
// running without any durable state.
type KV struct {
	mu     sync.RWMutex
	values map[string][]byte
	writes int
}

// New returns an empty in-memory KV.
func New() *KV {
	return &KV{values: make(map[string][]byte)}
}

// Get returns a copy of the value under key.
func (m *KV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value under key.
func (m *KV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	m.writes++
	return nil
}

// Delete removes key.
func (m *KV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	m.writes++
	return nil
}

// Writes reports how many Put and Delete calls have been applied.
func (m *KV) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Close is a no-op.
func (m *KV) Close() error {
	return nil
}

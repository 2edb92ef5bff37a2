package storage

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
)

// MemorySnapshotArchive keeps compressed snapshots in memory. It serves
// development setups without object storage and tests.
type MemorySnapshotArchive struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemorySnapshotArchive creates an empty archive
func NewMemorySnapshotArchive() *MemorySnapshotArchive {
	return &MemorySnapshotArchive{objects: make(map[string][]byte)}
}

func (m *MemorySnapshotArchive) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return errors.New("snapshot key is required")
	}
	body, err := compress(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = body
	m.mu.Unlock()
	return nil
}

func (m *MemorySnapshotArchive) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	body, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return decompress(bytes.NewReader(body))
}

// Keys lists archived keys in order
func (m *MemorySnapshotArchive) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

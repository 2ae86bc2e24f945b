package cache

import (
	"context"
	"sync"

	"resumelens/internal/types"
)

// MemoryStore keeps records for the lifetime of the process. There is no
// eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]types.AnalysisRecord
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]types.AnalysisRecord)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (types.AnalysisRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[key]
	return record, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, record types.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = record
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.records)
	return nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *MemoryStore) Backend() string { return "memory" }

func (m *MemoryStore) Close() error { return nil }

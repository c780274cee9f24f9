package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for single-instance deployments and tests.
type MemoryStore struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	solved    map[string]map[int]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deadlines: make(map[string]time.Time),
		solved:    make(map[string]map[int]struct{}),
	}
}

func (m *MemoryStore) Deadline(_ context.Context, key string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deadlines[key]
	return d, ok, nil
}

func (m *MemoryStore) SetDeadline(_ context.Context, key string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines[key] = deadline
	return nil
}

func (m *MemoryStore) Solved(_ context.Context, key string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.solved[key]))
	for id := range m.solved[key] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *MemoryStore) MarkSolved(_ context.Context, key string, questionID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.solved[key]
	if !ok {
		set = make(map[int]struct{})
		m.solved[key] = set
	}
	set[questionID] = struct{}{}
	return len(set), nil
}

func (m *MemoryStore) Close() error { return nil }

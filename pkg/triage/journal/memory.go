package journal

import (
	"context"
	"slices"
	"sync"
)

// DefaultMemoryCapacity bounds a MemoryStore built without
// WithMemoryCapacity.
const DefaultMemoryCapacity = 10_000

// MemoryStore keeps the most recent runs in a map guarded by a RWMutex.
// Once capacity distinct runs are held, saving a new run evicts the
// oldest. Nothing survives the process.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]Record
	ids      []string // insertion order
	capacity int
	closed   bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryCapacity caps the number of runs held. Zero or less keeps
// DefaultMemoryCapacity.
func WithMemoryCapacity(n int) MemoryOption {
	return func(m *MemoryStore) {
		if n > 0 {
			m.capacity = n
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{byID: map[string]Record{}, capacity: DefaultMemoryCapacity}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	rec, err := prepare(rec)
	if err != nil {
		return err
	}
	rec.Path = slices.Clone(rec.Path)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	if _, seen := m.byID[rec.RunID]; !seen {
		if len(m.ids) == m.capacity {
			delete(m.byID, m.ids[0])
			m.ids = m.ids[1:]
		}
		m.ids = append(m.ids, rec.RunID)
	}
	m.byID[rec.RunID] = rec
	return nil
}

func (m *MemoryStore) Get(_ context.Context, runID string) (rec Record, err error) {
	err = m.read(func() error {
		var ok bool
		if rec, ok = m.byID[runID]; !ok {
			return ErrNotFound
		}
		rec.Path = slices.Clone(rec.Path)
		return nil
	})
	return rec, err
}

// List walks insertion order backwards, so a re-saved run keeps its
// original position.
func (m *MemoryStore) List(_ context.Context, limit int) (out []Record, err error) {
	limit = normalizeLimit(limit)
	err = m.read(func() error {
		out = make([]Record, 0, min(limit, len(m.ids)))
		for i := len(m.ids) - 1; i >= 0 && len(out) < limit; i-- {
			rec := m.byID[m.ids[i]]
			rec.Path = slices.Clone(rec.Path)
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

func (m *MemoryStore) read(fn func() error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	return fn()
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed, m.byID, m.ids = true, nil, nil
	m.mu.Unlock()
	return nil
}

// Len is the number of distinct runs held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// NopStore accepts and forgets everything.
type NopStore struct{}

func (NopStore) Save(context.Context, Record) error          { return nil }
func (NopStore) Get(context.Context, string) (Record, error) { return Record{}, ErrNotFound }
func (NopStore) List(context.Context, int) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                { return nil }

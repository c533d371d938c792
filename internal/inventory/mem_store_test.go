package inventory

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// memStore is an in-memory Store with the same atomicity as MongoStore: a
// Mutate either commits both the product and the entry or neither.
type memStore struct {
	mu       sync.Mutex
	products map[string]Product
	history  []HistoryEntry

	failMutate error
	cacheHits  []string
}

func newMemStore(products ...Product) *memStore {
	m := &memStore{products: map[string]Product{}}
	for _, p := range products {
		m.products[p.ID] = clone(p)
	}
	return m
}

func clone(p Product) Product {
	p.Variants = append([]Variant(nil), p.Variants...)
	return p
}

func (m *memStore) Get(_ context.Context, id string) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clone(p)
	return &c, nil
}

func (m *memStore) GetMany(_ context.Context, ids []string) (map[string]*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]*Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			c := clone(p)
			out[id] = &c
		}
	}
	return out, nil
}

func (m *memStore) Mutate(_ context.Context, id string, fn MutateFunc) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMutate != nil {
		return nil, m.failMutate
	}
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	work := clone(p)
	entry, err := fn(&work)
	if err != nil {
		return nil, err
	}
	work.UpdatedAt = entry.CreatedAt
	m.products[id] = work
	m.history = append(m.history, *entry)
	c := clone(work)
	return &c, nil
}

func (m *memStore) Reserve(_ context.Context, id string, qty int) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || p.Stock-p.ReservedStock < qty {
		return nil, ErrInsufficientStock
	}
	p.ReservedStock += qty
	m.products[id] = p
	c := clone(p)
	return &c, nil
}

func (m *memStore) Release(_ context.Context, id string, qty int) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.ReservedStock = max(0, p.ReservedStock-qty)
	m.products[id] = p
	c := clone(p)
	return &c, nil
}

func (m *memStore) LowStock(_ context.Context, limit int) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Product
	for _, p := range m.products {
		if p.TrackInventory && p.IsActive && p.Available() < p.Threshold() {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) History(_ context.Context, q HistoryQuery) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []HistoryEntry{}
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		if e.ProductID != q.ProductID || (q.VariantID != "" && e.VariantID != q.VariantID) {
			continue
		}
		out = append(out, e)
	}
	if q.Offset >= len(out) {
		return []HistoryEntry{}, nil
	}
	out = out[q.Offset:]
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) Invalidate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits = append(m.cacheHits, id)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []HistoryEntry
	err     error
}

func (r *recordingSink) StockAdjusted(_ context.Context, e HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

var errBoom = errors.New("boom")

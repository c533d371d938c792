package inventory

import "context"

// MutateFunc edits a freshly loaded product in place and returns the ledger
// entry describing the change. Returning an error aborts the mutation and
// nothing is persisted.
type MutateFunc func(p *Product) (*HistoryEntry, error)

// Store is the persistence contract of the ledger. Mutate must apply the
// product write and the history insert as one atomic unit. Reserve and
// Release must be single conditional updates against the stored counters.
type Store interface {
	Get(ctx context.Context, productID string) (*Product, error)
	GetMany(ctx context.Context, productIDs []string) (map[string]*Product, error)
	Mutate(ctx context.Context, productID string, fn MutateFunc) (*Product, error)
	// Reserve returns ErrInsufficientStock when stock-reservedStock < qty or
	// when the product does not exist.
	Reserve(ctx context.Context, productID string, qty int) (*Product, error)
	Release(ctx context.Context, productID string, qty int) (*Product, error)
	LowStock(ctx context.Context, limit int) ([]Product, error)
	History(ctx context.Context, q HistoryQuery) ([]HistoryEntry, error)
}

// Cache drops any cached read model of a product after a write.
type Cache interface {
	Invalidate(ctx context.Context, productID string) error
}

// EventSink is told about every committed stock adjustment.
type EventSink interface {
	StockAdjusted(ctx context.Context, e HistoryEntry) error
}

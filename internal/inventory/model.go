package inventory

import "time"

// DefaultLowStockThreshold applies to products that never set a threshold.
const DefaultLowStockThreshold = 10

type Reason string

const (
	ReasonManualAdjustment Reason = "manual_adjustment"
	ReasonOrderFulfilled   Reason = "order_fulfilled"
	ReasonOrderCanceled    Reason = "order_canceled"
	ReasonOrderRefunded    Reason = "order_refunded"
	ReasonInitialStock     Reason = "initial_stock"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonManualAdjustment, ReasonOrderFulfilled, ReasonOrderCanceled, ReasonOrderRefunded, ReasonInitialStock:
		return true
	}
	return false
}

// FloorsAtZero reports whether an adjustment with this reason may drive stock
// below zero and be clamped, instead of being rejected.
func (r Reason) FloorsAtZero() bool {
	return r == ReasonManualAdjustment || r == ReasonInitialStock
}

type Variant struct {
	VariantID string `bson:"variantId" json:"variantId"`
	SKU       string `bson:"sku,omitempty" json:"sku,omitempty"`
	Stock     int    `bson:"stock" json:"stock"`
}

type Product struct {
	ID                string    `bson:"_id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	PriceCents        int64     `bson:"priceCents" json:"priceCents"`
	Variants          []Variant `bson:"variants,omitempty" json:"variants,omitempty"`
	Stock             int       `bson:"stock" json:"stock"`
	ReservedStock     int       `bson:"reservedStock" json:"reservedStock"`
	LowStockThreshold *int      `bson:"lowStockThreshold,omitempty" json:"lowStockThreshold,omitempty"`
	TrackInventory    bool      `bson:"trackInventory" json:"trackInventory"`
	IsActive          bool      `bson:"isActive" json:"isActive"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (p *Product) Threshold() int {
	if p.LowStockThreshold == nil {
		return DefaultLowStockThreshold
	}
	return *p.LowStockThreshold
}

// Available is stock not held by reservations, never negative.
func (p *Product) Available() int {
	return max(0, p.Stock-p.ReservedStock)
}

// StockFor returns variant stock when variantID is set, base stock otherwise.
func (p *Product) StockFor(variantID string) (int, error) {
	if variantID == "" {
		return p.Stock, nil
	}
	for _, v := range p.Variants {
		if v.VariantID == variantID {
			return v.Stock, nil
		}
	}
	return 0, ErrVariantNotFound
}

func (p *Product) setStockFor(variantID string, stock int) {
	if variantID == "" {
		p.Stock = stock
		return
	}
	for i := range p.Variants {
		if p.Variants[i].VariantID == variantID {
			p.Variants[i].Stock = stock
			return
		}
	}
}

// HistoryEntry is one append-only record of the stock ledger.
type HistoryEntry struct {
	ID            string         `bson:"_id" json:"id"`
	ProductID     string         `bson:"productId" json:"productId"`
	VariantID     string         `bson:"variantId,omitempty" json:"variantId,omitempty"`
	Change        int            `bson:"change" json:"change"`
	PreviousStock int            `bson:"previousStock" json:"previousStock"`
	NewStock      int            `bson:"newStock" json:"newStock"`
	Reason        Reason         `bson:"reason" json:"reason"`
	Reference     string         `bson:"reference,omitempty" json:"reference,omitempty"`
	UserID        string         `bson:"userId,omitempty" json:"userId,omitempty"`
	Metadata      map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt     time.Time      `bson:"createdAt" json:"createdAt"`
}

type Adjustment struct {
	ProductID string
	VariantID string
	Change    int
	Reason    Reason
	Reference string
	ActorID   string
	Metadata  map[string]any
}

type VariantStatus struct {
	VariantID      string `json:"variantId"`
	TotalStock     int    `json:"totalStock"`
	AvailableStock int    `json:"availableStock"`
	IsLowStock     bool   `json:"isLowStock"`
}

type InventoryStatus struct {
	ProductID         string          `json:"productId"`
	Name              string          `json:"name,omitempty"`
	AvailableStock    int             `json:"availableStock"`
	ReservedStock     int             `json:"reservedStock"`
	TotalStock        int             `json:"totalStock"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	IsLowStock        bool            `json:"isLowStock"`
	TrackInventory    bool            `json:"trackInventory"`
	Variants          []VariantStatus `json:"variants,omitempty"`
}

// StatusOf derives the read model of p. Variant figures are computed against
// the product-wide reservation counter; there is no per-variant reservation.
func StatusOf(p *Product) InventoryStatus {
	threshold := p.Threshold()
	available := p.Available()
	st := InventoryStatus{
		ProductID:         p.ID,
		Name:              p.Name,
		AvailableStock:    available,
		ReservedStock:     p.ReservedStock,
		TotalStock:        p.Stock,
		LowStockThreshold: threshold,
		IsLowStock:        available < threshold,
		TrackInventory:    p.TrackInventory,
	}
	for _, v := range p.Variants {
		va := max(0, v.Stock-p.ReservedStock)
		st.Variants = append(st.Variants, VariantStatus{
			VariantID:      v.VariantID,
			TotalStock:     v.Stock,
			AvailableStock: va,
			IsLowStock:     va < threshold,
		})
	}
	return st
}

type StockRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type Shortage struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type AvailabilityReport struct {
	Available         bool       `json:"available"`
	InsufficientStock []Shortage `json:"insufficientStock"`
}

type HistoryQuery struct {
	ProductID string
	VariantID string
	Limit     int
	Offset    int
}

const (
	defaultHistoryLimit  = 50
	maxHistoryLimit      = 200
	defaultLowStockLimit = 50
)

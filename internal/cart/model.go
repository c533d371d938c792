package cart

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrConcurrentUpdate = errors.New("session changed concurrently")
	ErrMergeInProgress  = errors.New("cart merge already in progress for user")
)

type Item struct {
	ProductID string `bson:"productId" json:"productId"`
	Qty       int    `bson:"qty" json:"qty"`
}

type Cart struct {
	Items []Item `bson:"items" json:"items"`
}

// Session is the cart document of one browser or device. Version increases on
// every write and guards merges against concurrent cart edits.
type Session struct {
	SessionID string    `bson:"_id" json:"sessionId"`
	UserID    string    `bson:"userId,omitempty" json:"userId,omitempty"`
	Cart      Cart      `bson:"cart" json:"cart"`
	Version   int64     `bson:"version" json:"version"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (s *Session) Empty() bool { return len(s.Cart.Items) == 0 }

// Coalesce sums quantities per product across all lists, keeping the order in
// which products first appear. Lines with no product or a non-positive
// quantity are dropped.
func Coalesce(lists ...[]Item) []Item {
	idx := map[string]int{}
	out := []Item{}
	for _, l := range lists {
		for _, it := range l {
			if it.ProductID == "" || it.Qty <= 0 {
				continue
			}
			if i, ok := idx[it.ProductID]; ok {
				out[i].Qty += it.Qty
				continue
			}
			idx[it.ProductID] = len(out)
			out = append(out, it)
		}
	}
	return out
}

// Subtract takes the quantities in taken out of items, per product. Products
// whose quantity drops to zero or below are removed.
func Subtract(items, taken []Item) []Item {
	minus := map[string]int{}
	for _, it := range Coalesce(taken) {
		minus[it.ProductID] = it.Qty
	}
	out := []Item{}
	for _, it := range Coalesce(items) {
		it.Qty -= minus[it.ProductID]
		if it.Qty > 0 {
			out = append(out, it)
		}
	}
	return out
}

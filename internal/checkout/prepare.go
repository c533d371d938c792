package checkout

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/cart"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/orders"
)

var ErrEmptyCart = errors.New("cart has no purchasable items")

type Line struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// Preparation is what a payment provider session is built from. Metadata and
// ClientReferenceID must be echoed back on completion.
type Preparation struct {
	ClientReferenceID string   `json:"clientReferenceId"`
	Currency          string   `json:"currency"`
	Lines             []Line   `json:"lines"`
	TotalCents        int64    `json:"totalCents"`
	CustomerEmail     string   `json:"customerEmail,omitempty"`
	Metadata          Metadata `json:"metadata"`
}

// PrepareCheckout prices the session's cart at current catalog prices. It
// calls no provider and writes nothing.
func (c *Coordinator) PrepareCheckout(ctx context.Context, sessionID, userID, email string) (*Preparation, error) {
	sess, err := c.Sessions.Get(ctx, sessionID)
	if errors.Is(err, cart.ErrSessionNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx, c.Log).With(zap.String("session_id", sessionID))
	items, products, err := c.priceLines(ctx, log, sess.Cart.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	p := &Preparation{
		ClientReferenceID: sessionID,
		Currency:          c.currency(""),
		TotalCents:        orders.NewOrder{Items: items}.TotalCents(),
		CustomerEmail:     email,
		Metadata:          Metadata{SessionID: sessionID, UserID: userID, UserEmail: email},
	}
	for _, it := range items {
		name := it.ProductID
		if pr, ok := products[it.ProductID]; ok && pr.Name != "" {
			name = pr.Name
		}
		p.Lines = append(p.Lines, Line{ProductID: it.ProductID, Name: name, Qty: it.Qty, UnitPriceCents: it.PriceCents})
	}
	return p, nil
}

package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrTrackingDisabled  = errors.New("inventory tracking is disabled for product")
	ErrProductInactive   = errors.New("product is inactive")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInvalidQuantity   = errors.New("quantity must be a non-zero integer")
	ErrInvalidReason     = errors.New("invalid adjustment reason")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError carries the figures behind a rejected reservation or
// adjustment. It matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	ProductID string
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTrackingDisabled):
		return "tracking_disabled"
	case errors.Is(err, ErrProductInactive):
		return "inactive"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrVariantNotFound):
		return "variant_not_found"
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidReason):
		return "invalid"
	default:
		return "error"
	}
}

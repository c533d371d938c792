package checkout

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/orders"
)

// TransitionOrder moves an order to status to. When the stock ledger is wired,
// canceling or refunding credits every line back as order_canceled or
// order_refunded with the order id as reference. Restock failures are logged
// and do not undo the transition.
func (c *Coordinator) TransitionOrder(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error) {
	order, err := c.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := c.Orders.UpdateStatus(ctx, orderID, to); err != nil {
		return nil, err
	}
	from := order.Status
	order.Status = to

	log := logging.FromContext(ctx, c.Log).With(
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	log.Info("order_status_changed")

	var reason inventory.Reason
	switch to {
	case orders.StatusCanceled:
		reason = inventory.ReasonOrderCanceled
	case orders.StatusRefunded:
		reason = inventory.ReasonOrderRefunded
	default:
		return order, nil
	}
	if c.Ledger == nil {
		return order, nil
	}
	for _, it := range order.Items {
		_, err := c.Ledger.AdjustStock(ctx, inventory.Adjustment{
			ProductID: it.ProductID,
			Change:    it.Qty,
			Reason:    reason,
			Reference: orderID,
		})
		if err != nil && !errors.Is(err, inventory.ErrTrackingDisabled) {
			log.Error("order_restock_failed", zap.String("product_id", it.ProductID), zap.Int("qty", it.Qty), zap.Error(err))
		}
	}
	return order, nil
}

package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/cart"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/events"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/metrics"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/orders"
)

// clearAttempts bounds the re-read loop that removes checked-out lines from a
// cart edited concurrently.
const clearAttempts = 3

var tracer = otel.Tracer("github.com/prthgajera30/Ecom-Application-main-sub001/internal/checkout")

type Sessions interface {
	Get(ctx context.Context, sessionID string) (*cart.Session, error)
	AttachUser(ctx context.Context, sessionID, userID string) error
	ReplaceItems(ctx context.Context, sessionID string, items []cart.Item, expectedVersion int64) error
}

type Catalog interface {
	GetMany(ctx context.Context, productIDs []string) (map[string]*inventory.Product, error)
}

type Orders interface {
	PaymentExists(ctx context.Context, paymentIntentID string) (bool, error)
	CreateOrder(ctx context.Context, in orders.NewOrder) (*orders.Order, error)
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status) error
}

type Users interface {
	FindUserByID(ctx context.Context, id string) (*orders.User, error)
	FindUserByEmail(ctx context.Context, email string) (*orders.User, error)
}

// Notifier is the realtime sink. Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, channel string, event any) error
}

type EventPublisher interface {
	OrderPaid(ctx context.Context, p events.OrderPaidPayload) error
}

type StockLedger interface {
	AdjustStock(ctx context.Context, a inventory.Adjustment) (*inventory.InventoryStatus, error)
}

// Coordinator turns payment completions into orders. The payments unique
// constraint on the payment intent is the idempotency anchor: however often
// an event is delivered, at most one order is created for it.
type Coordinator struct {
	Sessions Sessions
	Catalog  Catalog
	Orders   Orders
	Users    Users
	Notifier Notifier       // optional
	Events   EventPublisher // optional
	// Ledger, when set, is charged for every created order and credited when
	// an order is canceled or refunded.
	Ledger StockLedger

	DefaultCurrency string
	Log             *zap.Logger
	Metrics         *metrics.Metrics
}

// HandleCheckoutCompleted processes one delivery. Only storage failures are
// returned as errors; every other outcome is a handled delivery.
func (c *Coordinator) HandleCheckoutCompleted(ctx context.Context, ev Event) (res Result, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "checkout.HandleCheckoutCompleted")
	span.SetAttributes(
		attribute.String("event.id", ev.ID),
		attribute.String("payment_intent.id", ev.PaymentIntentID),
	)
	defer func() {
		outcome := string(res.Outcome)
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.Metrics.CheckoutCompleted(outcome, time.Since(start).Seconds())
		span.End()
	}()

	log := logging.FromContext(ctx, c.Log).With(
		zap.String("event_id", ev.ID),
		zap.String("payment_intent_id", ev.PaymentIntentID),
	)

	sessionID := ev.CartSessionID()
	if sessionID == "" {
		log.Info("checkout_missing_session")
		return Result{Outcome: OutcomeMissingSession}, nil
	}
	log = log.With(zap.String("session_id", sessionID))

	sess, err := c.Sessions.Get(ctx, sessionID)
	if errors.Is(err, cart.ErrSessionNotFound) {
		log.Info("checkout_empty_cart", zap.Bool("session_found", false))
		return Result{Outcome: OutcomeEmptyCart}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if sess.Empty() {
		log.Info("checkout_empty_cart", zap.Bool("session_found", true))
		return Result{Outcome: OutcomeEmptyCart}, nil
	}

	user, err := c.resolveUser(ctx, sess, ev)
	if err != nil {
		return Result{}, err
	}
	if user == nil {
		log.Warn("checkout_unattributable", zap.String("customer_email", ev.CustomerEmail))
		return Result{Outcome: OutcomeUnattributable}, nil
	}
	log = log.With(zap.String("user_id", user.ID))

	if sess.UserID == "" {
		if err := c.Sessions.AttachUser(ctx, sessionID, user.ID); err != nil {
			return Result{}, err
		}
	}

	if ev.PaymentIntentID != "" {
		exists, err := c.Orders.PaymentExists(ctx, ev.PaymentIntentID)
		if err != nil {
			return Result{}, err
		}
		if exists {
			return c.duplicate(ctx, log, sess, user.ID)
		}
	}

	items, _, err := c.priceLines(ctx, log, sess.Cart.Items)
	if err != nil {
		return Result{}, err
	}
	if len(items) == 0 {
		log.Warn("checkout_no_valid_items", zap.Int("cart_lines", len(sess.Cart.Items)))
		return Result{Outcome: OutcomeNoValidItems, UserID: user.ID}, nil
	}

	order, err := c.Orders.CreateOrder(ctx, orders.NewOrder{
		UserID:          user.ID,
		Currency:        c.currency(ev.Currency),
		Status:          orders.StatusForPayment(ev.PaymentStatus),
		Items:           items,
		PaymentIntentID: ev.PaymentIntentID,
		PaymentStatus:   ev.PaymentStatus,
	})
	if errors.Is(err, orders.ErrDuplicatePayment) {
		// lost the insert race against a concurrent delivery of the same event
		return c.duplicate(ctx, log, sess, user.ID)
	}
	if err != nil {
		return Result{}, err
	}
	res = Result{Outcome: OutcomeOrderCreated, OrderID: order.ID, UserID: user.ID}
	log = log.With(zap.String("order_id", order.ID))
	log.Info("checkout_order_created",
		zap.Int64("total_cents", order.TotalCents),
		zap.String("status", string(order.Status)),
		zap.Int("items", len(order.Items)))

	c.fulfill(ctx, log, order)
	c.publishOrderPaid(ctx, log, order, sessionID, ev.PaymentIntentID)

	// The order is durable from here on. If clearing fails the delivery is
	// reported as failed so the provider retries into the duplicate path,
	// which clears the cart.
	rest, err := c.removeCheckedOut(ctx, sess)
	if err != nil {
		log.Error("checkout_cart_clear_failed", zap.Error(err))
		return res, err
	}

	c.notify(ctx, log, channelSession+sessionID, CartUpdated{Type: NotificationCartUpdated, SessionID: sessionID, Items: rest})
	notification := NotificationOrderPending
	if order.Status == orders.StatusPaid {
		notification = NotificationOrderPaid
	}
	c.notify(ctx, log, channelUser+user.ID, OrderPlaced{
		Type:       notification,
		OrderID:    order.ID,
		Status:     string(order.Status),
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
	})
	return res, nil
}

func (c *Coordinator) duplicate(ctx context.Context, log *zap.Logger, sess *cart.Session, userID string) (Result, error) {
	res := Result{Outcome: OutcomeDuplicate, UserID: userID}
	log.Info("checkout_duplicate_delivery")
	rest, err := c.removeCheckedOut(ctx, sess)
	if err != nil {
		return res, err
	}
	c.notify(ctx, log, channelSession+sess.SessionID, CartUpdated{Type: NotificationCartUpdated, SessionID: sess.SessionID, Items: rest})
	return res, nil
}

// removeCheckedOut takes the lines of snap, the cart this delivery read, out
// of the stored cart. Lines added after snap was read stay in the cart. It
// returns what is left.
func (c *Coordinator) removeCheckedOut(ctx context.Context, snap *cart.Session) ([]cart.Item, error) {
	cur := snap
	for attempt := 1; ; attempt++ {
		rest := cart.Subtract(cur.Cart.Items, snap.Cart.Items)
		if !holdsAny(cur.Cart.Items, snap.Cart.Items) {
			// a concurrent delivery already removed them
			return rest, nil
		}
		err := c.Sessions.ReplaceItems(ctx, snap.SessionID, rest, cur.Version)
		if !errors.Is(err, cart.ErrConcurrentUpdate) || attempt == clearAttempts {
			return rest, err
		}
		cur, err = c.Sessions.Get(ctx, snap.SessionID)
		if errors.Is(err, cart.ErrSessionNotFound) {
			return []cart.Item{}, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// resolveUser tries, in order: the session owner, metadata userId, the
// customer email and the metadata email. It returns nil, nil when nobody
// matches.
func (c *Coordinator) resolveUser(ctx context.Context, sess *cart.Session, ev Event) (*orders.User, error) {
	lookups := []struct {
		value string
		find  func(context.Context, string) (*orders.User, error)
	}{
		{sess.UserID, c.Users.FindUserByID},
		{ev.Metadata.UserID, c.Users.FindUserByID},
		{ev.CustomerEmail, c.Users.FindUserByEmail},
		{ev.Metadata.UserEmail, c.Users.FindUserByEmail},
	}
	for _, l := range lookups {
		if strings.TrimSpace(l.value) == "" {
			continue
		}
		u, err := l.find(ctx, l.value)
		if errors.Is(err, orders.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	return nil, nil
}

// priceLines prices each cart line at the current catalog price. Lines whose
// product is gone or has no positive price are dropped.
func (c *Coordinator) priceLines(ctx context.Context, log *zap.Logger, lines []cart.Item) ([]orders.OrderItem, map[string]*inventory.Product, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := c.Catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	var items []orders.OrderItem
	for _, l := range cart.Coalesce(lines) {
		p, ok := products[l.ProductID]
		switch {
		case !ok:
			log.Warn("checkout_line_dropped", zap.String("product_id", l.ProductID), zap.String("reason", "product_missing"))
			continue
		case p.PriceCents <= 0:
			log.Warn("checkout_line_dropped", zap.String("product_id", l.ProductID), zap.String("reason", "non_positive_price"))
			continue
		}
		items = append(items, orders.OrderItem{ProductID: l.ProductID, Qty: l.Qty, PriceCents: p.PriceCents})
	}
	return items, products, nil
}

func holdsAny(items, lines []cart.Item) bool {
	want := map[string]bool{}
	for _, l := range cart.Coalesce(lines) {
		want[l.ProductID] = true
	}
	for _, it := range cart.Coalesce(items) {
		if want[it.ProductID] {
			return true
		}
	}
	return false
}

func (c *Coordinator) currency(cur string) string {
	if cur = strings.ToLower(strings.TrimSpace(cur)); cur != "" {
		return cur
	}
	if c.DefaultCurrency != "" {
		return strings.ToLower(c.DefaultCurrency)
	}
	return "usd"
}

func (c *Coordinator) fulfill(ctx context.Context, log *zap.Logger, order *orders.Order) {
	if c.Ledger == nil {
		return
	}
	for _, it := range order.Items {
		_, err := c.Ledger.AdjustStock(ctx, inventory.Adjustment{
			ProductID: it.ProductID,
			Change:    -it.Qty,
			Reason:    inventory.ReasonOrderFulfilled,
			Reference: order.ID,
			ActorID:   order.UserID,
		})
		switch {
		case err == nil:
		case errors.Is(err, inventory.ErrTrackingDisabled):
			log.Debug("checkout_stock_untracked", zap.String("product_id", it.ProductID))
		default:
			log.Error("checkout_stock_decrement_failed", zap.String("product_id", it.ProductID), zap.Int("qty", it.Qty), zap.Error(err))
		}
	}
}

func (c *Coordinator) publishOrderPaid(ctx context.Context, log *zap.Logger, order *orders.Order, sessionID, paymentIntentID string) {
	if c.Events == nil {
		return
	}
	items := make([]events.ItemPrice, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, events.ItemPrice{ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.PriceCents})
	}
	err := c.Events.OrderPaid(ctx, events.OrderPaidPayload{
		OrderID:         order.ID,
		UserID:          order.UserID,
		SessionID:       sessionID,
		Status:          string(order.Status),
		TotalCents:      order.TotalCents,
		Currency:        order.Currency,
		PaymentIntentID: paymentIntentID,
		Items:           items,
	})
	if err != nil {
		log.Warn("checkout_event_publish_failed", zap.Error(err))
	}
}

func (c *Coordinator) notify(ctx context.Context, log *zap.Logger, channel string, event any) {
	if c.Notifier == nil {
		return
	}
	if err := c.Notifier.Publish(ctx, channel, event); err != nil {
		log.Warn("checkout_notify_failed", zap.String("channel", channel), zap.Error(err))
	}
}

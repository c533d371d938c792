package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/cart"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/events"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/inventory"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/orders"
)

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]cart.Session
	getErr   error
	clearErr []error // consumed one per ReplaceItems call
}

func newSessions(ss ...cart.Session) *fakeSessions {
	f := &fakeSessions{sessions: map[string]cart.Session{}}
	for _, s := range ss {
		f.sessions[s.SessionID] = s
	}
	return f
}

func (f *fakeSessions) Get(_ context.Context, id string) (*cart.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, cart.ErrSessionNotFound
	}
	s.Cart.Items = append([]cart.Item(nil), s.Cart.Items...)
	return &s, nil
}

func (f *fakeSessions) AttachUser(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && s.UserID == "" {
		s.UserID = userID
		s.Version++
		f.sessions[id] = s
	}
	return nil
}

func (f *fakeSessions) ReplaceItems(_ context.Context, id string, items []cart.Item, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.clearErr) > 0 {
		err := f.clearErr[0]
		f.clearErr = f.clearErr[1:]
		if err != nil {
			return err
		}
	}
	s, ok := f.sessions[id]
	if !ok || s.Version != expectedVersion {
		return cart.ErrConcurrentUpdate
	}
	s.Cart.Items = append([]cart.Item(nil), items...)
	s.Version++
	f.sessions[id] = s
	return nil
}

func (f *fakeSessions) items(id string) []cart.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id].Cart.Items
}

func (f *fakeSessions) setItems(id string, items ...cart.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	s.Cart.Items = items
	s.Version++
	f.sessions[id] = s
}

// addItem appends a line the way a shopper editing the cart would.
func (f *fakeSessions) addItem(id string, it cart.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	s.Cart.Items = append(append([]cart.Item(nil), s.Cart.Items...), it)
	s.Version++
	f.sessions[id] = s
}

type fakeCatalog map[string]*inventory.Product

// editingCatalog runs edit before answering, so a cart edit lands after the
// coordinator read the session and before it clears it.
type editingCatalog struct {
	fakeCatalog
	once sync.Once
	edit func()
}

func (c *editingCatalog) GetMany(ctx context.Context, ids []string) (map[string]*inventory.Product, error) {
	c.once.Do(c.edit)
	return c.fakeCatalog.GetMany(ctx, ids)
}

func (c fakeCatalog) GetMany(_ context.Context, ids []string) (map[string]*inventory.Product, error) {
	out := map[string]*inventory.Product{}
	for _, id := range ids {
		if p, ok := c[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// fakeOrders enforces the payment-intent unique constraint like the payments
// table does.
type fakeOrders struct {
	mu       sync.Mutex
	orders   map[string]*orders.Order
	payments map[string]string // intent -> order id
	seq      int

	// staleExists makes PaymentExists always answer false, as a read that
	// raced a concurrent insert would.
	staleExists bool
}

func newOrders() *fakeOrders {
	return &fakeOrders{orders: map[string]*orders.Order{}, payments: map[string]string{}}
}

func (f *fakeOrders) PaymentExists(_ context.Context, intent string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staleExists {
		return false, nil
	}
	_, ok := f.payments[intent]
	return ok, nil
}

func (f *fakeOrders) CreateOrder(_ context.Context, in orders.NewOrder) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.PaymentIntentID != "" {
		if _, ok := f.payments[in.PaymentIntentID]; ok {
			return nil, orders.ErrDuplicatePayment
		}
	}
	f.seq++
	o := &orders.Order{
		ID:         fmt.Sprintf("order-%d", f.seq),
		UserID:     in.UserID,
		Status:     in.Status,
		TotalCents: in.TotalCents(),
		Currency:   in.Currency,
		Items:      in.Items,
	}
	f.orders[o.ID] = o
	if in.PaymentIntentID != "" {
		f.payments[in.PaymentIntentID] = o.ID
	}
	return o, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, to orders.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if !orders.CanTransition(o.Status, to) {
		return orders.ErrBadTransition
	}
	o.Status = to
	return nil
}

func (f *fakeOrders) count() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders), len(f.payments)
}

type fakeUsers struct {
	byID map[string]*orders.User
}

func newUsers(us ...orders.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*orders.User{}}
	for i := range us {
		f.byID[us[i].ID] = &us[i]
	}
	return f
}

func (f *fakeUsers) FindUserByID(_ context.Context, id string) (*orders.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, orders.ErrUserNotFound
}

func (f *fakeUsers) FindUserByEmail(_ context.Context, email string) (*orders.User, error) {
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return nil, orders.ErrUserNotFound
}

type published struct {
	channel string
	event   any
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakeNotifier) Publish(_ context.Context, channel string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{channel, event})
	return f.err
}

type fakeLedger struct {
	mu   sync.Mutex
	adjs []inventory.Adjustment
	errs map[string]error
}

func (f *fakeLedger) AdjustStock(_ context.Context, a inventory.Adjustment) (*inventory.InventoryStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjs = append(f.adjs, a)
	if err := f.errs[a.ProductID]; err != nil {
		return nil, err
	}
	return &inventory.InventoryStatus{ProductID: a.ProductID}, nil
}

type fakeEvents struct {
	paid []events.OrderPaidPayload
}

func (f *fakeEvents) OrderPaid(_ context.Context, p events.OrderPaidPayload) error {
	f.paid = append(f.paid, p)
	return nil
}

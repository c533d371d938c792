package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/apperr"
)

func intPtr(v int) *int { return &v }

func tracked(id string, stock int) Product {
	return Product{ID: id, Name: id, Stock: stock, TrackInventory: true, IsActive: true}
}

func newService(store *memStore) (*Service, *recordingSink) {
	sink := &recordingSink{}
	return &Service{Store: store, Cache: store, Events: sink}, sink
}

func TestAdjustStockManualFloorsAtZero(t *testing.T) {
	store := newMemStore(tracked("P", 3))
	svc, _ := newService(store)

	st, err := svc.AdjustStock(context.Background(), Adjustment{ProductID: "P", Change: -5, Reason: ReasonManualAdjustment})
	if err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}
	if st.TotalStock != 0 {
		t.Fatalf("stock = %d, want 0", st.TotalStock)
	}
	if len(store.history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(store.history))
	}
	e := store.history[0]
	if e.Change != -5 || e.PreviousStock != 3 || e.NewStock != 0 || e.Reason != ReasonManualAdjustment {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestAdjustStockRejectsNegativeForOrderReasons(t *testing.T) {
	for _, reason := range []Reason{ReasonOrderFulfilled, ReasonOrderCanceled, ReasonOrderRefunded} {
		t.Run(string(reason), func(t *testing.T) {
			store := newMemStore(tracked("P", 3))
			svc, sink := newService(store)

			_, err := svc.AdjustStock(context.Background(), Adjustment{ProductID: "P", Change: -5, Reason: reason})
			var ise *InsufficientStockError
			if !errors.As(err, &ise) {
				t.Fatalf("err = %v, want InsufficientStockError", err)
			}
			if ise.Requested != 5 || ise.Available != 3 {
				t.Fatalf("figures = %+v", ise)
			}
			if !errors.Is(err, ErrInsufficientStock) {
				t.Fatal("InsufficientStockError must match ErrInsufficientStock")
			}
			p, _ := store.Get(context.Background(), "P")
			if p.Stock != 3 || len(store.history) != 0 || len(sink.entries) != 0 {
				t.Fatalf("rejected adjustment wrote state: stock=%d history=%d events=%d", p.Stock, len(store.history), len(sink.entries))
			}
		})
	}
}

func TestAdjustStockVariant(t *testing.T) {
	p := tracked("P", 100)
	p.Variants = []Variant{{VariantID: "red", Stock: 4}, {VariantID: "blue", Stock: 9}}
	store := newMemStore(p)
	svc, _ := newService(store)

	st, err := svc.AdjustStock(context.Background(), Adjustment{ProductID: "P", VariantID: "red", Change: 6, Reason: ReasonOrderRefunded, Reference: "order-1"})
	if err != nil {
		t.Fatalf("AdjustStock: %v", err)
	}
	if st.TotalStock != 100 {
		t.Fatalf("base stock changed to %d", st.TotalStock)
	}
	if st.Variants[0].TotalStock != 10 || st.Variants[1].TotalStock != 9 {
		t.Fatalf("variants = %+v", st.Variants)
	}
	e := store.history[0]
	if e.VariantID != "red" || e.PreviousStock != 4 || e.NewStock != 10 || e.Reference != "order-1" {
		t.Fatalf("entry = %+v", e)
	}

	_, err = svc.AdjustStock(context.Background(), Adjustment{ProductID: "P", VariantID: "green", Change: 1, Reason: ReasonManualAdjustment})
	if !errors.Is(err, ErrVariantNotFound) {
		t.Fatalf("err = %v, want ErrVariantNotFound", err)
	}
}

func TestAdjustStockPreconditions(t *testing.T) {
	untracked := tracked("U", 5)
	untracked.TrackInventory = false
	inactive := tracked("I", 5)
	inactive.IsActive = false
	store := newMemStore(tracked("P", 5), untracked, inactive)
	svc, _ := newService(store)
	ctx := context.Background()

	cases := []struct {
		name string
		adj  Adjustment
		want error
	}{
		{"missing product", Adjustment{ProductID: "X", Change: 1, Reason: ReasonManualAdjustment}, ErrNotFound},
		{"tracking disabled", Adjustment{ProductID: "U", Change: 1, Reason: ReasonManualAdjustment}, ErrTrackingDisabled},
		{"inactive", Adjustment{ProductID: "I", Change: 1, Reason: ReasonManualAdjustment}, ErrProductInactive},
		{"zero change", Adjustment{ProductID: "P", Change: 0, Reason: ReasonManualAdjustment}, ErrInvalidQuantity},
		{"bad reason", Adjustment{ProductID: "P", Change: 1, Reason: "restock"}, ErrInvalidReason},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.AdjustStock(ctx, tc.adj); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if len(store.history) != 0 {
		t.Fatalf("failed adjustments wrote %d entries", len(store.history))
	}
}

func TestAdjustStockStorageFailure(t *testing.T) {
	store := newMemStore(tracked("P", 5))
	store.failMutate = apperr.Storage("products.mutate", errBoom)
	svc, sink := newService(store)

	_, err := svc.AdjustStock(context.Background(), Adjustment{ProductID: "P", Change: 1, Reason: ReasonManualAdjustment})
	if !apperr.IsStorage(err) {
		t.Fatalf("err = %v, want storage error", err)
	}
	if len(sink.entries) != 0 || len(store.cacheHits) != 0 {
		t.Fatal("side effects ran after a failed write")
	}
}

func TestAdjustStockSideEffects(t *testing.T) {
	store := newMemStore(tracked("P", 5))
	svc, sink := newService(store)
	sink.err = errBoom

	if _, err := svc.AdjustStock(context.Background(), Adjustment{ProductID: "P", Change: 2, Reason: ReasonInitialStock}); err != nil {
		t.Fatalf("publish failure must not fail the adjustment: %v", err)
	}
	if len(sink.entries) != 1 || sink.entries[0].NewStock != 7 {
		t.Fatalf("events = %+v", sink.entries)
	}
	if len(store.cacheHits) != 1 || store.cacheHits[0] != "P" {
		t.Fatalf("cache invalidations = %v", store.cacheHits)
	}
}

// Each committed entry must chain from the previous one and sum to the net
// change, including under concurrent writers.
func TestHistoryChainsUnderConcurrency(t *testing.T) {
	store := newMemStore(tracked("P", 50))
	svc, _ := newService(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			change := 3
			if i%2 == 0 {
				change = -2
			}
			if _, err := svc.AdjustStock(ctx, Adjustment{ProductID: "P", Change: change, Reason: ReasonManualAdjustment}); err != nil {
				t.Errorf("AdjustStock: %v", err)
			}
		}(i)
	}
	wg.Wait()

	p, _ := store.Get(ctx, "P")
	if p.Stock != 50+10*3-10*2 {
		t.Fatalf("stock = %d", p.Stock)
	}
	prev := 50
	for i, e := range store.history {
		if e.PreviousStock != prev {
			t.Fatalf("entry %d previous = %d, want %d", i, e.PreviousStock, prev)
		}
		if e.NewStock != e.PreviousStock+e.Change {
			t.Fatalf("entry %d does not add up: %+v", i, e)
		}
		prev = e.NewStock
	}
	if prev != p.Stock {
		t.Fatalf("last entry new stock %d != stock %d", prev, p.Stock)
	}
}

func TestReserveStock(t *testing.T) {
	p := tracked("P", 10)
	p.ReservedStock = 8
	store := newMemStore(p)
	svc, _ := newService(store)
	ctx := context.Background()

	_, err := svc.ReserveStock(ctx, "P", "", 3)
	var ise *InsufficientStockError
	if !errors.As(err, &ise) || ise.Requested != 3 || ise.Available != 2 {
		t.Fatalf("err = %v, want InsufficientStockError{3, 2}", err)
	}

	st, err := svc.ReserveStock(ctx, "P", "", 2)
	if err != nil {
		t.Fatalf("ReserveStock: %v", err)
	}
	if st.ReservedStock != 10 || st.AvailableStock != 0 {
		t.Fatalf("status = %+v", st)
	}
	if len(store.history) != 0 {
		t.Fatal("reservations must not write ledger entries")
	}
}

func TestReserveStockInputs(t *testing.T) {
	untracked := tracked("U", 0)
	untracked.TrackInventory = false
	store := newMemStore(tracked("P", 10), untracked)
	svc, _ := newService(store)
	ctx := context.Background()

	if _, err := svc.ReserveStock(ctx, "P", "", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero qty err = %v", err)
	}
	if _, err := svc.ReserveStock(ctx, "X", "", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing product err = %v", err)
	}
	if _, err := svc.ReserveStock(ctx, "P", "nope", 1); !errors.Is(err, ErrVariantNotFound) {
		t.Fatalf("unknown variant err = %v", err)
	}
	st, err := svc.ReserveStock(ctx, "U", "", 99)
	if err != nil {
		t.Fatalf("untracked reserve: %v", err)
	}
	if st.ReservedStock != 0 {
		t.Fatal("untracked product must be left untouched")
	}
}

// Concurrent reservations must never push reservedStock past stock.
func TestReserveStockConcurrent(t *testing.T) {
	store := newMemStore(tracked("P", 10))
	svc, _ := newService(store)
	ctx := context.Background()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ReserveStock(ctx, "P", "", 1)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrInsufficientStock) {
				t.Errorf("unexpected err: %v", err)
			}
		}()
	}
	wg.Wait()

	p, _ := store.Get(ctx, "P")
	if ok != 10 || p.ReservedStock != 10 {
		t.Fatalf("successes = %d reserved = %d, want 10/10", ok, p.ReservedStock)
	}
}

func TestReleaseStockFloorsAtZero(t *testing.T) {
	p := tracked("P", 10)
	p.ReservedStock = 2
	store := newMemStore(p)
	svc, _ := newService(store)

	st, err := svc.ReleaseStock(context.Background(), "P", "", 5)
	if err != nil {
		t.Fatalf("ReleaseStock: %v", err)
	}
	if st.ReservedStock != 0 || st.AvailableStock != 10 {
		t.Fatalf("status = %+v", st)
	}
}

func TestGetInventoryStatus(t *testing.T) {
	p := tracked("P", 12)
	p.ReservedStock = 5
	p.Variants = []Variant{{VariantID: "s", Stock: 3}, {VariantID: "m", Stock: 20}}
	q := tracked("Q", 30)
	q.LowStockThreshold = intPtr(40)
	store := newMemStore(p, q)
	svc, _ := newService(store)
	ctx := context.Background()

	st, err := svc.GetInventoryStatus(ctx, "P")
	if err != nil {
		t.Fatalf("GetInventoryStatus: %v", err)
	}
	if st.AvailableStock != 7 || st.TotalStock != 12 || st.LowStockThreshold != DefaultLowStockThreshold || !st.IsLowStock {
		t.Fatalf("status = %+v", st)
	}
	if st.Variants[0].AvailableStock != 0 || st.Variants[1].AvailableStock != 15 || st.Variants[1].IsLowStock {
		t.Fatalf("variants = %+v", st.Variants)
	}

	st, _ = svc.GetInventoryStatus(ctx, "Q")
	if st.LowStockThreshold != 40 || !st.IsLowStock {
		t.Fatalf("custom threshold status = %+v", st)
	}

	if _, err := svc.GetInventoryStatus(ctx, "X"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestGetLowStockProducts(t *testing.T) {
	low := tracked("A", 4)
	ok := tracked("B", 50)
	reserved := tracked("C", 12)
	reserved.ReservedStock = 5
	inactive := tracked("D", 0)
	inactive.IsActive = false
	untracked := tracked("E", 0)
	untracked.TrackInventory = false
	store := newMemStore(low, ok, reserved, inactive, untracked)
	svc, _ := newService(store)

	got, err := svc.GetLowStockProducts(context.Background(), 0)
	if err != nil {
		t.Fatalf("GetLowStockProducts: %v", err)
	}
	if len(got) != 2 || got[0].ProductID != "A" || got[1].ProductID != "C" {
		t.Fatalf("low stock = %+v", got)
	}
}

func TestCheckStockAvailability(t *testing.T) {
	p := tracked("P", 10)
	p.ReservedStock = 4
	p.Variants = []Variant{{VariantID: "v", Stock: 5}}
	untracked := tracked("U", 0)
	untracked.TrackInventory = false
	store := newMemStore(p, tracked("Q", 3), untracked)
	svc, _ := newService(store)
	ctx := context.Background()

	report, err := svc.CheckStockAvailability(ctx, []StockRequest{
		{ProductID: "P", Quantity: 6},
		{ProductID: "Q", Quantity: 3},
		{ProductID: "U", Quantity: 100},
	})
	if err != nil {
		t.Fatalf("CheckStockAvailability: %v", err)
	}
	if !report.Available || len(report.InsufficientStock) != 0 {
		t.Fatalf("report = %+v", report)
	}

	report, _ = svc.CheckStockAvailability(ctx, []StockRequest{
		{ProductID: "P", Quantity: 7},
		{ProductID: "Q", Quantity: 3},
		{ProductID: "P", VariantID: "v", Quantity: 2},
		{ProductID: "missing", Quantity: 1},
	})
	if report.Available {
		t.Fatal("expected unavailable")
	}
	want := []Shortage{
		{ProductID: "P", Requested: 7, Available: 6},
		{ProductID: "P", VariantID: "v", Requested: 2, Available: 1},
		{ProductID: "missing", Requested: 1, Available: 0},
	}
	if fmt.Sprint(report.InsufficientStock) != fmt.Sprint(want) {
		t.Fatalf("shortages = %+v, want %+v", report.InsufficientStock, want)
	}
}

func TestGetInventoryHistory(t *testing.T) {
	store := newMemStore(tracked("P", 0))
	svc, _ := newService(store)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := svc.AdjustStock(ctx, Adjustment{ProductID: "P", Change: i, Reason: ReasonManualAdjustment}); err != nil {
			t.Fatalf("AdjustStock: %v", err)
		}
	}

	all, err := svc.GetInventoryHistory(ctx, HistoryQuery{ProductID: "P"})
	if err != nil {
		t.Fatalf("GetInventoryHistory: %v", err)
	}
	if len(all) != 5 || all[0].Change != 5 || all[4].Change != 1 {
		t.Fatalf("history not newest first: %+v", all)
	}

	page, _ := svc.GetInventoryHistory(ctx, HistoryQuery{ProductID: "P", Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].Change != 4 || page[1].Change != 3 {
		t.Fatalf("page = %+v", page)
	}
}

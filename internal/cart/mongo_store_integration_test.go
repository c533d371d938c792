package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/mongox/mongotest"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMongoStore(t *testing.T, sessions ...Session) *MongoStore {
	t.Helper()
	store := NewMongoStore(mongotest.Database(t))
	ctx := context.Background()
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}
	for _, s := range sessions {
		if _, err := store.sessions.InsertOne(ctx, s); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestMongoCommitMergeCreatesAbsentSession(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()

	const n = 4
	var (
		wg                sync.WaitGroup
		mu                sync.Mutex
		created, conflict int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			merged := &Session{SessionID: "new", UserID: "u1", Cart: Cart{Items: []Item{{ProductID: "p1", Qty: 1}}}, UpdatedAt: t0}
			err := store.CommitMerge(ctx, merged, 0, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrConcurrentUpdate):
				conflict++
			default:
				t.Errorf("CommitMerge: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || conflict != n-1 {
		t.Fatalf("created=%d conflicts=%d", created, conflict)
	}
	got, err := store.Get(ctx, "new")
	if err != nil || got.Version != 1 || got.UserID != "u1" || len(got.Cart.Items) != 1 {
		t.Fatalf("stored = %+v, %v", got, err)
	}
}

func TestMongoCommitMergeStaleVersionRollsBack(t *testing.T) {
	store := newMongoStore(t,
		Session{SessionID: "cur", Version: 2, Cart: Cart{Items: []Item{{ProductID: "p1", Qty: 1}}}, UpdatedAt: t0},
		Session{SessionID: "old", UserID: "u1", Version: 1, Cart: Cart{Items: []Item{{ProductID: "p2", Qty: 1}}}, UpdatedAt: t0},
	)
	ctx := context.Background()
	merged := &Session{SessionID: "cur", UserID: "u1", Cart: Cart{Items: []Item{{ProductID: "p1", Qty: 1}, {ProductID: "p2", Qty: 1}}}, UpdatedAt: t0}

	// current document moved on
	err := store.CommitMerge(ctx, merged, 1, []Session{{SessionID: "old", Version: 1}})
	if !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("stale current err = %v", err)
	}
	// absorbed document moved on: the current write must roll back with it
	err = store.CommitMerge(ctx, merged, 2, []Session{{SessionID: "old", Version: 0}})
	if !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("stale absorbed err = %v", err)
	}

	cur, _ := store.Get(ctx, "cur")
	if cur.Version != 2 || cur.UserID != "" || len(cur.Cart.Items) != 1 {
		t.Fatalf("current changed by a failed merge: %+v", cur)
	}
	if _, err := store.Get(ctx, "old"); err != nil {
		t.Fatalf("absorbed session deleted by a failed merge: %v", err)
	}

	if err := store.CommitMerge(ctx, merged, 2, []Session{{SessionID: "old", Version: 1}}); err != nil {
		t.Fatalf("CommitMerge: %v", err)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("absorbed session kept: %v", err)
	}
}

func TestMongoCommitMergeOverUnversionedDocument(t *testing.T) {
	store := newMongoStore(t)
	ctx := context.Background()
	legacy := bson.M{"_id": "A", "cart": bson.M{"items": bson.A{bson.M{"productId": "p1", "qty": 2}}}, "updatedAt": t0}
	if _, err := store.sessions.InsertOne(ctx, legacy); err != nil {
		t.Fatal(err)
	}

	merged := &Session{SessionID: "A", UserID: "u1", Cart: Cart{Items: []Item{{ProductID: "p1", Qty: 2}}}, UpdatedAt: t0}
	if err := store.CommitMerge(ctx, merged, 0, nil); err != nil {
		t.Fatalf("CommitMerge: %v", err)
	}
	got, _ := store.Get(ctx, "A")
	if got.Version != 1 || got.UserID != "u1" {
		t.Fatalf("stored = %+v", got)
	}
}

func TestMongoMergeSessionCart(t *testing.T) {
	store := newMongoStore(t,
		Session{SessionID: "A", Cart: Cart{Items: []Item{{ProductID: "p1", Qty: 2}}}, UpdatedAt: t0.Add(time.Minute)},
		Session{SessionID: "B", UserID: "u1", Version: 3, Cart: Cart{Items: []Item{{ProductID: "p1", Qty: 3}, {ProductID: "p2", Qty: 1}}}, UpdatedAt: t0},
		Session{SessionID: "C", UserID: "u2", Cart: Cart{Items: []Item{{ProductID: "p9", Qty: 1}}}, UpdatedAt: t0},
	)
	m := &Merger{Store: store, Locker: &fakeLocker{}}
	ctx := context.Background()

	merged, err := m.MergeSessionCart(ctx, "A", "u1")
	if err != nil {
		t.Fatalf("MergeSessionCart: %v", err)
	}
	if got := items(merged); got["p1"] != 5 || got["p2"] != 1 {
		t.Fatalf("merged = %v", merged.Cart.Items)
	}
	stored, _ := store.Get(ctx, "A")
	if got := items(stored); got["p1"] != 5 || got["p2"] != 1 || stored.UserID != "u1" {
		t.Fatalf("stored = %+v", stored)
	}
	if _, err := store.Get(ctx, "B"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("B should be absorbed, err = %v", err)
	}
	if _, err := store.Get(ctx, "C"); err != nil {
		t.Fatalf("C belongs to another user: %v", err)
	}
}

func TestMongoReplaceItemsAndAttachUser(t *testing.T) {
	store := newMongoStore(t, Session{SessionID: "s1", Cart: Cart{Items: []Item{{ProductID: "p1", Qty: 1}}}, UpdatedAt: t0})
	ctx := context.Background()

	if err := store.AttachUser(ctx, "s1", "u1"); err != nil {
		t.Fatal(err)
	}
	if err := store.AttachUser(ctx, "s1", "u2"); err != nil {
		t.Fatal(err)
	}
	s, _ := store.Get(ctx, "s1")
	if s.UserID != "u1" || s.Version != 1 {
		t.Fatalf("after attach = %+v", s)
	}

	if err := store.ReplaceItems(ctx, "s1", nil, 0); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("stale replace err = %v", err)
	}
	if err := store.ReplaceItems(ctx, "s1", []Item{{ProductID: "p3", Qty: 2}}, 1); err != nil {
		t.Fatal(err)
	}
	s, _ = store.Get(ctx, "s1")
	if len(s.Cart.Items) != 1 || s.Cart.Items[0].ProductID != "p3" || s.Version != 2 {
		t.Fatalf("after replace = %+v", s)
	}
	if err := store.ReplaceItems(ctx, "s1", nil, 2); err != nil {
		t.Fatal(err)
	}
	if s, _ = store.Get(ctx, "s1"); !s.Empty() {
		t.Fatalf("cart not cleared: %+v", s)
	}
	if err := store.ReplaceItems(ctx, "missing", nil, 0); !errors.Is(err, ErrConcurrentUpdate) {
		t.Fatalf("missing session err = %v", err)
	}
}

package cart

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/logging"
	"github.com/prthgajera30/Ecom-Application-main-sub001/internal/metrics"
)

const (
	mergeAttempts  = 3
	lockAttempts   = 5
	lockRetryDelay = 50 * time.Millisecond
)

// Merger folds every cart a user owns into the cart of the session that just
// authenticated.
type Merger struct {
	Store   Store
	Locker  Locker // optional; without it merges rely on version checks alone
	LockTTL time.Duration
	Log     *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (m *Merger) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// MergeSessionCart sums the items of sessionID's cart and of every other cart
// owned by userID into sessionID's document, stamps userID on it and deletes
// the absorbed documents. Empty identifiers make it a no-op returning nil.
func (m *Merger) MergeSessionCart(ctx context.Context, sessionID, userID string) (*Session, error) {
	if sessionID == "" || userID == "" {
		return nil, nil
	}
	log := logging.FromContext(ctx, m.Log).With(zap.String("session_id", sessionID), zap.String("user_id", userID))

	if m.Locker != nil {
		unlock, err := m.acquire(ctx, userID)
		if err != nil {
			m.Metrics.CartMerge(outcomeOf(err))
			return nil, err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn("cart_merge_unlock_failed", zap.Error(err))
			}
		}()
	}

	for attempt := 1; attempt <= mergeAttempts; attempt++ {
		merged, absorbed, err := m.mergeOnce(ctx, sessionID, userID)
		if errors.Is(err, ErrConcurrentUpdate) {
			log.Debug("cart_merge_conflict", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			m.Metrics.CartMerge(outcomeOf(err))
			return nil, err
		}
		m.Metrics.CartMerge("merged")
		log.Info("cart_merged", zap.Int("absorbed_sessions", absorbed), zap.Int("items", len(merged.Cart.Items)))
		return merged, nil
	}
	m.Metrics.CartMerge(outcomeOf(ErrConcurrentUpdate))
	return nil, ErrConcurrentUpdate
}

func (m *Merger) mergeOnce(ctx context.Context, sessionID, userID string) (*Session, int, error) {
	docs, err := m.Store.ListForMerge(ctx, sessionID, userID)
	if err != nil {
		return nil, 0, err
	}

	current := &Session{SessionID: sessionID}
	var others []Session
	for i := range docs {
		switch {
		case docs[i].SessionID == sessionID:
			current = &docs[i]
		case docs[i].UserID == userID:
			others = append(others, docs[i])
		}
	}

	lists := [][]Item{current.Cart.Items}
	for _, o := range others {
		lists = append(lists, o.Cart.Items)
	}
	merged := *current
	merged.UserID = userID
	merged.Cart.Items = Coalesce(lists...)
	merged.UpdatedAt = m.now()

	if err := m.Store.CommitMerge(ctx, &merged, current.Version, others); err != nil {
		return nil, 0, err
	}
	merged.Version = current.Version + 1
	return &merged, len(others), nil
}

func (m *Merger) acquire(ctx context.Context, userID string) (func(context.Context) error, error) {
	ttl := m.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	for attempt := 1; ; attempt++ {
		unlock, ok, err := m.Locker.Lock(ctx, "cart-merge:"+userID, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return unlock, nil
		}
		if attempt == lockAttempts {
			return nil, ErrMergeInProgress
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * lockRetryDelay):
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrMergeInProgress):
		return "locked"
	case errors.Is(err, ErrConcurrentUpdate):
		return "conflict"
	default:
		return "error"
	}
}

package cart

import (
	"context"
	"time"
)

type Store interface {
	Get(ctx context.Context, sessionID string) (*Session, error)
	// ListForMerge returns the session document plus every document owned by
	// userID, oldest first.
	ListForMerge(ctx context.Context, sessionID, userID string) ([]Session, error)
	// CommitMerge writes merged if its stored version still equals
	// expectedVersion (0 creates it) and deletes every absorbed document whose
	// version is unchanged, all or nothing. Any mismatch returns
	// ErrConcurrentUpdate.
	CommitMerge(ctx context.Context, merged *Session, expectedVersion int64, absorbed []Session) error
	// AttachUser sets the owner only when the session has none.
	AttachUser(ctx context.Context, sessionID, userID string) error
	// ReplaceItems overwrites the cart while the stored version still equals
	// expectedVersion; otherwise it returns ErrConcurrentUpdate.
	ReplaceItems(ctx context.Context, sessionID string, items []Item, expectedVersion int64) error
}

// Locker acquires a named advisory lock. ok is false when someone else holds
// it; unlock must be called exactly once after a successful acquire.
type Locker interface {
	Lock(ctx context.Context, name string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

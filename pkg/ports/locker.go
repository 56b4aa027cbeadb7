package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a session lock taken through a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes edits to one session's tree when several
// arbor processes share a TreeStore. The session manager takes the lock
// around every load-edit-save cycle so two replicas cannot interleave
// AddChild, Relabel or Import on the same snapshot.
type DistributedLocker interface {
	// Lock blocks until the session's tree is exclusively held or ctx ends.
	// The lock lapses after ttl if the holder never releases it.
	// The returned UnlockFunc must be called once the edit is stored.
	Lock(ctx context.Context, sessionID string, ttl time.Duration) (UnlockFunc, error)
}

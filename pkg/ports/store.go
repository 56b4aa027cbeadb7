package ports

import (
	"context"

	"github.com/crabritto/arbor/pkg/domain"
)

// TreeStore holds the current snapshot of every live editing session.
// It is not an archive: a session's tree is removed when the session ends.
type TreeStore interface {
	// Save replaces the snapshot of a session.
	Save(ctx context.Context, sessionID string, tree *domain.Tree) error

	// Load retrieves the snapshot of a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Tree, error)

	// Delete ends a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of the live sessions.
	List(ctx context.Context) ([]string, error)
}

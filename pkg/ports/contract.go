package ports

import (
	"context"
	"testing"
	"time"

	"github.com/crabritto/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTreeStoreContract runs a suite of tests to verify that a TreeStore implementation
// adheres to the defined interface contract.
func RunTreeStoreContract(t *testing.T, store TreeStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	sample := func() *domain.Tree {
		left := &domain.Node{ID: "nleft", Label: 3, Side: domain.SideLeft, Arrangement: domain.ArrangementVertical, Children: []*domain.Node{}}
		right := &domain.Node{ID: "nright", Label: 5, Side: domain.SideRight, Arrangement: domain.ArrangementVertical, Children: []*domain.Node{}}
		return domain.NewTreeFromRoot(&domain.Node{ID: domain.RootID, Label: 8, Children: []*domain.Node{right, left}})
	}

	t.Run("Save and Load", func(t *testing.T) {
		tree := sample()

		err := store.Save(ctx, sessionID, tree)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, 8, loaded.Root().Label)
		require.Len(t, loaded.Root().Children, 2)
		// Stored child order is insertion order, not wire order.
		assert.Equal(t, "nright", loaded.Root().Children[0].ID)
		assert.Equal(t, domain.SideLeft, loaded.Root().Children[1].Side)
		assert.Equal(t, domain.ArrangementVertical, loaded.Root().Children[1].Arrangement)
	})

	t.Run("Save replaces the snapshot", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, sample()))
		require.NoError(t, store.Save(ctx, sessionID, domain.NewTree()))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Len())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewTree())
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewTree())
		_ = store.Save(ctx, id2, domain.NewTree())

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

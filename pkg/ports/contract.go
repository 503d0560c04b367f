package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	tourID := "contract-tour-" + time.Now().Format("20060102150405")

	newSnap := func(id string) *domain.Snapshot {
		return &domain.Snapshot{
			TourID:        id,
			CurrentNodeID: "hall/c",
			History:       []string{"hall/a", "hall/b"},
			ActiveRegions: []string{"hall"},
			UpdatedAt:     time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnap(tourID)
		require.NoError(t, store.Save(ctx, tourID, snap), "Save should not return error")

		loaded, err := store.Load(ctx, tourID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, snap.History, loaded.History, "history order must be preserved")
		assert.Equal(t, snap.ActiveRegions, loaded.ActiveRegions)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, tourID, newSnap(tourID)))

		loaded, err := store.Load(ctx, tourID)
		require.NoError(t, err)
		loaded.History[0] = "mutated"

		again, err := store.Load(ctx, tourID)
		require.NoError(t, err)
		assert.Equal(t, "hall/a", again.History[0])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+tourID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, tourID, newSnap(tourID)))
		require.NoError(t, store.Delete(ctx, tourID), "Delete should not return error")

		_, err := store.Load(ctx, tourID)
		assert.ErrorIs(t, err, domain.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := tourID + "-1"
		id2 := tourID + "-2"
		_ = store.Save(ctx, id1, newSnap(id1))
		_ = store.Save(ctx, id2, newSnap(id2))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		tours, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, tours, id1)
		assert.Contains(t, tours, id2)
	})
}

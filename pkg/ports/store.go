package ports

import (
	"context"

	"github.com/aretw0/exhibit/pkg/domain"
)

// SnapshotStore defines the interface for persisting navigation snapshots.
// This allows a visitor to leave and resume a tour where they were.
type SnapshotStore interface {
	// Save persists the snapshot for a given tour ID.
	Save(ctx context.Context, tourID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given tour ID.
	// Returns domain.ErrSnapshotNotFound if the tour does not exist.
	Load(ctx context.Context, tourID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given tour ID.
	Delete(ctx context.Context, tourID string) error

	// List returns the IDs of stored tours.
	List(ctx context.Context) ([]string, error)
}

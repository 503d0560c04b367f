package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/aretw0/exhibit/internal/logging"
	"github.com/aretw0/exhibit/pkg/domain"
	"github.com/aretw0/exhibit/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed tour lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Navigation is the part of a navigator the manager checkpoints and restores.
type Navigation interface {
	Snapshot(tourID string) *domain.Snapshot
	Restore(ctx context.Context, snap *domain.Snapshot) error
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates tour access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager with the given snapshot store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewTourID returns a fresh random tour id.
func NewTourID() string {
	return uuid.NewString()
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(tourID) after unlocking.
func (m *Manager) acquire(tourID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[tourID]
	if !exists {
		entry = &lockEntry{}
		m.locks[tourID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(tourID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[tourID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, tourID)
	}
}

// Load retrieves a snapshot from the store.
func (m *Manager) Load(ctx context.Context, tourID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, tourID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, tourID)
		return err
	})
	return snap, err
}

// Save persists a snapshot.
func (m *Manager) Save(ctx context.Context, tourID string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, tourID, func(ctx context.Context) error {
		return m.store.Save(ctx, tourID, snap)
	})
}

// Checkpoint snapshots the navigation and saves it under tourID.
func (m *Manager) Checkpoint(ctx context.Context, tourID string, nav Navigation) error {
	return m.WithLock(ctx, tourID, func(ctx context.Context) error {
		snap := nav.Snapshot(tourID)
		snap.UpdatedAt = time.Now().UTC()
		if err := m.store.Save(ctx, tourID, snap); err != nil {
			return fmt.Errorf("failed to checkpoint tour: %w", err)
		}
		return nil
	})
}

// Resume restores the navigation from the stored snapshot. It reports false without error when
// the tour has no snapshot yet.
func (m *Manager) Resume(ctx context.Context, tourID string, nav Navigation) (bool, error) {
	resumed := false
	err := m.WithLock(ctx, tourID, func(ctx context.Context) error {
		snap, err := m.store.Load(ctx, tourID)
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load tour: %w", err)
		}
		if err := nav.Restore(ctx, snap); err != nil {
			return err
		}
		resumed = true
		return nil
	})
	return resumed, err
}

// Delete removes the tour from the store.
func (m *Manager) Delete(ctx context.Context, tourID string) error {
	return m.WithLock(ctx, tourID, func(ctx context.Context) error {
		return m.store.Delete(ctx, tourID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock executes a function while holding the lock for the tour.
func (m *Manager) WithLock(ctx context.Context, tourID string, fn func(context.Context) error) error {
	entry := m.acquire(tourID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(tourID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, tourID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"tour_id", tourID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

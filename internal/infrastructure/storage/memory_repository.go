package storage

import (
	"context"
	"sync"

	"StudyPlanner/internal/domain"
	"StudyPlanner/internal/ports"
)

// MemoryRepository keeps snapshots in process memory. Used for DSN-less runs
// and in tests; same append-only contract as the Postgres repository.
type MemoryRepository struct {
	mu        sync.Mutex
	snapshots []domain.Snapshot
}

var _ ports.SnapshotRepository = (*MemoryRepository)(nil)

// NewMemoryRepository builds an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Save appends a snapshot.
func (r *MemoryRepository) Save(_ context.Context, snap domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snap)
	return nil
}

// Latest returns the most recently saved snapshot, or nil when none exists.
func (r *MemoryRepository) Latest(_ context.Context) (*domain.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil, nil
	}
	snap := r.snapshots[len(r.snapshots)-1]
	return &snap, nil
}

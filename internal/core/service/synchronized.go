// Package service provides domain services for SnapKeeper.
package service

import (
	"context"
	"sync"

	"github.com/yndnr/snapkeeper-go/internal/core/domain"
)

// synchronizedRepository serializes every operation of the wrapped
// repository behind one mutex covering the whole cache.
type synchronizedRepository struct {
	mu    sync.Mutex
	inner SnapshotRepository
}

// NewSynchronizedRepository returns a SnapshotRepository that is safe for
// concurrent use. Operations are serialized, including the database service
// calls they make.
func NewSynchronizedRepository(inner SnapshotRepository) SnapshotRepository {
	if inner == nil {
		panic(domain.ErrMissingArgument.WithDetails("repository is required"))
	}
	return &synchronizedRepository{inner: inner}
}

func (s *synchronizedRepository) LoadSnapshots(ctx context.Context, database domain.DatabaseInfo) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.LoadSnapshots(ctx, database)
}

// GetLoadedSnapshots returns a copy so callers never share the cached slice
// outside the lock.
func (s *synchronizedRepository) GetLoadedSnapshots(database domain.DatabaseInfo) []domain.SnapshotInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots := s.inner.GetLoadedSnapshots(database)
	out := make([]domain.SnapshotInfo, len(snapshots))
	copy(out, snapshots)
	return out
}

func (s *synchronizedRepository) ClearSnapshots(database domain.DatabaseInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.ClearSnapshots(database)
}

func (s *synchronizedRepository) ClearConnectionSnapshots(connection domain.ConnectionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.ClearConnectionSnapshots(connection)
}

func (s *synchronizedRepository) CreateSnapshot(ctx context.Context, name string, database domain.DatabaseInfo) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.CreateSnapshot(ctx, name, database)
}

func (s *synchronizedRepository) RestoreSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.RestoreSnapshot(ctx, snapshot)
}

func (s *synchronizedRepository) DeleteSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.DeleteSnapshot(ctx, snapshot)
}

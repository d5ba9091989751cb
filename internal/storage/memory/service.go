// Package memory provides an in-memory database engine for SnapKeeper.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yndnr/snapkeeper-go/internal/core/domain"
)

// Operation names accepted by FailNext and Calls.
const (
	OpEnumerate = "enumerate"
	OpCreate    = "create"
	OpRestore   = "restore"
	OpDelete    = "delete"
)

// ErrDatabaseNotFound is the cause reported for databases the engine does
// not know.
var ErrDatabaseNotFound = errors.New("database does not exist")

// Service is an in-memory database engine holding snapshots per database.
type Service struct {
	mu sync.RWMutex

	// databases maps each known database to its snapshots in creation order.
	databases map[domain.DatabaseInfo][]domain.SnapshotInfo

	// restored records the snapshot each database was last restored from.
	restored map[domain.DatabaseInfo]string

	failures map[string]error
	calls    map[string]int
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithDatabases registers databases that exist from the start.
func WithDatabases(databases ...domain.DatabaseInfo) Option {
	return func(s *Service) {
		for _, db := range databases {
			s.databases[db] = nil
		}
	}
}

// WithClock overrides the time source used for CreatedAt and snapshot IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates an empty in-memory engine.
func New(opts ...Option) *Service {
	s := &Service{
		databases: make(map[domain.DatabaseInfo][]domain.SnapshotInfo),
		restored:  make(map[domain.DatabaseInfo]string),
		failures:  make(map[string]error),
		calls:     make(map[string]int),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// AddDatabase registers a database. Existing snapshots are kept.
func (s *Service) AddDatabase(database domain.DatabaseInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.databases[database]; !ok {
		s.databases[database] = nil
	}
}

// FailNext makes the next call of op return err.
func (s *Service) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Service) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// RestoredFrom returns the ID of the snapshot database was last restored
// from, or "" if it never was.
func (s *Service) RestoredFrom(database domain.DatabaseInfo) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored[database]
}

// EnumerateSnapshots returns a copy of database's snapshots in creation order.
func (s *Service) EnumerateSnapshots(_ context.Context, database domain.DatabaseInfo) ([]domain.SnapshotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(OpEnumerate); err != nil {
		return nil, domain.ErrEnumerateSnapshots.WithCause(err)
	}

	snapshots, ok := s.databases[database]
	if !ok {
		return nil, domain.ErrEnumerateSnapshots.WithDetails(database.String()).WithCause(ErrDatabaseNotFound)
	}

	out := make([]domain.SnapshotInfo, len(snapshots))
	copy(out, snapshots)
	return out, nil
}

// CreateSnapshot appends a new snapshot of database.
func (s *Service) CreateSnapshot(_ context.Context, name string, database domain.DatabaseInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(OpCreate); err != nil {
		return domain.ErrCreateSnapshot.WithCause(err)
	}

	if err := domain.ValidateSnapshotName(name); err != nil {
		return err
	}

	snapshots, ok := s.databases[database]
	if !ok {
		return domain.ErrCreateSnapshot.WithDetails(database.String()).WithCause(ErrDatabaseNotFound)
	}

	for _, existing := range snapshots {
		if existing.Name == name {
			return domain.ErrCreateSnapshot.WithCause(fmt.Errorf("snapshot %q already exists", name))
		}
	}

	now := s.now()
	id, err := domain.NewSnapshotID(now)
	if err != nil {
		return domain.ErrCreateSnapshot.WithCause(err)
	}

	s.databases[database] = append(snapshots, domain.SnapshotInfo{
		ID:           id,
		Name:         name,
		PhysicalName: database.Name + "__snap_" + id,
		Database:     database,
		CreatedAt:    now,
	})
	return nil
}

// RestoreSnapshot records that snapshot's database was restored from it.
func (s *Service) RestoreSnapshot(_ context.Context, snapshot domain.SnapshotInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(OpRestore); err != nil {
		return domain.ErrRestoreSnapshot.WithCause(err)
	}

	if s.indexOf(snapshot) < 0 {
		return domain.ErrRestoreSnapshot.WithDetails(snapshot.Name).WithCause(domain.ErrSnapshotNotFound)
	}

	s.restored[snapshot.Database] = snapshot.ID
	return nil
}

// DeleteSnapshot removes snapshot from its database.
func (s *Service) DeleteSnapshot(_ context.Context, snapshot domain.SnapshotInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.begin(OpDelete); err != nil {
		return domain.ErrDeleteSnapshot.WithCause(err)
	}

	i := s.indexOf(snapshot)
	if i < 0 {
		return domain.ErrDeleteSnapshot.WithDetails(snapshot.Name).WithCause(domain.ErrSnapshotNotFound)
	}

	snapshots := s.databases[snapshot.Database]
	kept := make([]domain.SnapshotInfo, 0, len(snapshots)-1)
	kept = append(kept, snapshots[:i]...)
	kept = append(kept, snapshots[i+1:]...)
	s.databases[snapshot.Database] = kept
	return nil
}

// begin counts a call of op and returns a pending injected failure.
// Caller must hold s.mu.
func (s *Service) begin(op string) error {
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// indexOf returns the position of snapshot in its database, or -1.
// Caller must hold s.mu.
func (s *Service) indexOf(snapshot domain.SnapshotInfo) int {
	for i, existing := range s.databases[snapshot.Database] {
		if existing.ID == snapshot.ID {
			return i
		}
	}
	return -1
}

// Package service provides domain services for SnapKeeper.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/snapkeeper-go/internal/core/domain"
	"github.com/yndnr/snapkeeper-go/internal/telemetry/logger"
	"github.com/yndnr/snapkeeper-go/internal/telemetry/metric"
)

// DatabaseService performs snapshot operations against a database engine.
//
// Every method reports failures as errors; the repository converts them
// into failed Results.
type DatabaseService interface {
	// EnumerateSnapshots returns the snapshots of database in engine order.
	EnumerateSnapshots(ctx context.Context, database domain.DatabaseInfo) ([]domain.SnapshotInfo, error)

	// CreateSnapshot creates a snapshot called name of database.
	CreateSnapshot(ctx context.Context, name string, database domain.DatabaseInfo) error

	// RestoreSnapshot overwrites the snapshot's database with the snapshot.
	RestoreSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) error

	// DeleteSnapshot removes the snapshot.
	DeleteSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) error
}

// SnapshotRepository caches the snapshots of databases and keeps that view
// consistent across create, restore and delete.
type SnapshotRepository interface {
	// LoadSnapshots drops the cached list for database and reloads it.
	LoadSnapshots(ctx context.Context, database domain.DatabaseInfo) domain.Result

	// GetLoadedSnapshots returns the cached list; empty when not loaded.
	GetLoadedSnapshots(database domain.DatabaseInfo) []domain.SnapshotInfo

	// ClearSnapshots forgets the cached list for database.
	ClearSnapshots(database domain.DatabaseInfo)

	// ClearConnectionSnapshots forgets the cached lists of every database
	// on connection.
	ClearConnectionSnapshots(connection domain.ConnectionInfo)

	// CreateSnapshot creates a snapshot and reloads the database's list.
	CreateSnapshot(ctx context.Context, name string, database domain.DatabaseInfo) domain.Result

	// RestoreSnapshot restores a snapshot, reloading its database's list
	// when that list was loaded.
	RestoreSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) domain.Result

	// DeleteSnapshot deletes a snapshot, reloading its database's list when
	// that list was loaded.
	DeleteSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) domain.Result
}

// Operation names used in logs and metrics.
const (
	OpLoad            = "load"
	OpClear           = "clear"
	OpClearConnection = "clear_connection"
	OpCreate          = "create"
	OpRestore         = "restore"
	OpDelete          = "delete"
)

// Repository is the cache-backed SnapshotRepository.
//
// Repository is not safe for concurrent use: every operation reads and then
// writes the cache. Callers that share one instance across goroutines must
// wrap it with NewSynchronizedRepository.
type Repository struct {
	svc       DatabaseService
	snapshots map[domain.DatabaseInfo][]domain.SnapshotInfo

	log     logger.Logger
	metrics *metric.Registry
}

// Option configures the Repository.
type Option func(*Repository)

// WithLogger sets the repository logger. Without it the logger is taken
// from the operation's context.
func WithLogger(l logger.Logger) Option {
	return func(r *Repository) {
		r.log = l
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

// NewSnapshotRepository creates a Repository backed by svc.
func NewSnapshotRepository(svc DatabaseService, opts ...Option) *Repository {
	if svc == nil {
		panic(domain.ErrMissingArgument.WithDetails("database service is required"))
	}

	r := &Repository{
		svc:       svc,
		snapshots: make(map[domain.DatabaseInfo][]domain.SnapshotInfo),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// LoadSnapshots drops any cached list for database, then asks the service
// for the current one. On failure the database stays unloaded.
func (r *Repository) LoadSnapshots(ctx context.Context, database domain.DatabaseInfo) domain.Result {
	requireDatabase(database)

	r.ClearSnapshots(database)

	started := time.Now()
	snapshots, err := r.svc.EnumerateSnapshots(ctx, database)
	r.metrics.ObserveServiceCall("enumerate", started)
	if err != nil {
		return r.fail(ctx, OpLoad, database, err)
	}

	if snapshots == nil {
		snapshots = []domain.SnapshotInfo{}
	}
	r.snapshots[database] = snapshots
	r.metrics.SetCachedDatabases(len(r.snapshots))

	r.logger(ctx).Debug("snapshots loaded",
		"op", OpLoad,
		"database", database.String(),
		"count", len(snapshots))
	r.metrics.ObserveOperation(OpLoad, true)

	return domain.Success()
}

// GetLoadedSnapshots returns the cached list for database, or an empty
// slice when it is not loaded. It never calls the service.
func (r *Repository) GetLoadedSnapshots(database domain.DatabaseInfo) []domain.SnapshotInfo {
	requireDatabase(database)

	snapshots, ok := r.snapshots[database]
	if !ok {
		return []domain.SnapshotInfo{}
	}
	return snapshots
}

// ClearSnapshots removes the cached list for database. It is a no-op when
// nothing is cached.
func (r *Repository) ClearSnapshots(database domain.DatabaseInfo) {
	requireDatabase(database)

	if _, ok := r.snapshots[database]; !ok {
		return
	}
	delete(r.snapshots, database)
	r.metrics.SetCachedDatabases(len(r.snapshots))
}

// ClearConnectionSnapshots removes the cached lists of all databases on
// connection.
func (r *Repository) ClearConnectionSnapshots(connection domain.ConnectionInfo) {
	if connection.IsZero() {
		panic(domain.ErrMissingArgument.WithDetails("connection is required"))
	}

	// Collect first; ClearSnapshots mutates the map.
	var databases []domain.DatabaseInfo
	for database := range r.snapshots {
		if database.Connection == connection {
			databases = append(databases, database)
		}
	}

	for _, database := range databases {
		r.ClearSnapshots(database)
	}

	if len(databases) > 0 {
		r.logger(context.Background()).Debug("connection snapshots cleared",
			"op", OpClearConnection,
			"connection", connection.String(),
			"databases", len(databases))
	}
}

// CreateSnapshot creates a snapshot called name of database and returns the
// outcome of the reload that follows. An empty name is passed through to the
// service.
func (r *Repository) CreateSnapshot(ctx context.Context, name string, database domain.DatabaseInfo) domain.Result {
	requireDatabase(database)

	started := time.Now()
	err := r.svc.CreateSnapshot(ctx, name, database)
	r.metrics.ObserveServiceCall(OpCreate, started)
	if err != nil {
		return r.fail(ctx, OpCreate, database, err)
	}
	r.metrics.ObserveOperation(OpCreate, true)

	return r.LoadSnapshots(ctx, database)
}

// RestoreSnapshot restores snapshot into its database.
func (r *Repository) RestoreSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) domain.Result {
	requireSnapshot(snapshot)

	started := time.Now()
	err := r.svc.RestoreSnapshot(ctx, snapshot)
	r.metrics.ObserveServiceCall(OpRestore, started)
	if err != nil {
		return r.fail(ctx, OpRestore, snapshot.Database, err)
	}
	r.metrics.ObserveOperation(OpRestore, true)

	return r.reloadIfLoaded(ctx, snapshot.Database)
}

// DeleteSnapshot deletes snapshot.
func (r *Repository) DeleteSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) domain.Result {
	requireSnapshot(snapshot)

	started := time.Now()
	err := r.svc.DeleteSnapshot(ctx, snapshot)
	r.metrics.ObserveServiceCall(OpDelete, started)
	if err != nil {
		return r.fail(ctx, OpDelete, snapshot.Database, err)
	}
	r.metrics.ObserveOperation(OpDelete, true)

	return r.reloadIfLoaded(ctx, snapshot.Database)
}

// reloadIfLoaded refreshes database only when its list is cached, so a
// restore or delete never starts caching a database nobody loaded.
func (r *Repository) reloadIfLoaded(ctx context.Context, database domain.DatabaseInfo) domain.Result {
	if _, ok := r.snapshots[database]; ok {
		return r.LoadSnapshots(ctx, database)
	}
	return domain.Success()
}

func (r *Repository) fail(ctx context.Context, op string, database domain.DatabaseInfo, err error) domain.Result {
	msg := FailureMessage(err)

	r.logger(ctx).Warn("snapshot operation failed",
		"op", op,
		"connection", database.Connection.String(),
		"database", database.Name,
		"code", domain.GetErrorCode(err),
		"error", err)
	r.metrics.ObserveOperation(op, false)

	return domain.Failure(msg)
}

func (r *Repository) logger(ctx context.Context) logger.Logger {
	if r.log != nil {
		return r.log.WithContext(ctx)
	}
	return logger.L(ctx)
}

// FailureMessage renders err for a failed Result. A domain error becomes
// "<message>[: <details>] (<cause>)" without its code, the cause rendered
// the same way, and text added by outer wrapping is kept.
func FailureMessage(err error) string {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		return err.Error()
	}

	msg := de.Describe()
	if de.Cause != nil {
		msg = fmt.Sprintf("%s (%s)", msg, FailureMessage(de.Cause))
	}

	if outer := err.Error(); strings.Contains(outer, de.Error()) {
		return strings.Replace(outer, de.Error(), msg, 1)
	}
	return msg
}

func requireDatabase(database domain.DatabaseInfo) {
	if database.IsZero() {
		panic(domain.ErrMissingArgument.WithDetails("database is required"))
	}
}

func requireSnapshot(snapshot domain.SnapshotInfo) {
	if snapshot.IsZero() {
		panic(domain.ErrMissingArgument.WithDetails("snapshot is required"))
	}
	if snapshot.Database.IsZero() {
		panic(domain.ErrMissingArgument.WithDetails("snapshot database is required"))
	}
}

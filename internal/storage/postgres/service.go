package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/yndnr/snapkeeper-go/internal/core/domain"
	"github.com/yndnr/snapkeeper-go/internal/storage"
	"github.com/yndnr/snapkeeper-go/internal/telemetry/metric"
)

// ConnectionConfig describes how to reach one PostgreSQL server.
type ConnectionConfig struct {
	// DSN points at the maintenance database of the server.
	DSN string

	// MaintenanceDB is used when DSN names no database.
	MaintenanceDB string

	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int32
}

// Service implements service.DatabaseService on PostgreSQL.
type Service struct {
	pools   map[string]*pgxpool.Pool
	catalog storage.Catalog
	logger  *slog.Logger
	metrics *metric.Registry
	now     func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the registry that receives catalog entry counts.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New opens one pool per connection. Pools connect lazily; call Ping to
// verify reachability.
func New(ctx context.Context, connections map[string]ConnectionConfig, catalog storage.Catalog, opts ...Option) (*Service, error) {
	if catalog == nil {
		return nil, domain.ErrMissingArgument.WithDetails("catalog is required")
	}

	s := &Service{
		pools:   make(map[string]*pgxpool.Pool, len(connections)),
		catalog: catalog,
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}
	logger := s.logger

	for name, conn := range connections {
		cfg, err := pgxpool.ParseConfig(conn.DSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres: parse dsn for connection %q: %w", name, err)
		}
		if cfg.ConnConfig.Database == "" {
			cfg.ConnConfig.Database = conn.MaintenanceDB
		}
		if conn.MaxConns > 0 {
			cfg.MaxConns = conn.MaxConns
		}

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres: open pool for connection %q: %w", name, err)
		}
		s.pools[name] = pool
	}

	logger.Info("postgres service opened", "connections", len(s.pools))
	return s, nil
}

// Ping checks every pool concurrently.
func (s *Service) Ping(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, pool := range s.pools {
		g.Go(func() error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: ping connection %q: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close closes all pools. The catalog is owned by the caller.
func (s *Service) Close() {
	for _, pool := range s.pools {
		pool.Close()
	}
}

// EnumerateSnapshots lists the catalogued snapshots of database whose
// physical databases still exist. Entries whose database vanished are
// pruned from the catalog.
func (s *Service) EnumerateSnapshots(ctx context.Context, database domain.DatabaseInfo) ([]domain.SnapshotInfo, error) {
	pool, err := s.pool(database.Connection)
	if err != nil {
		return nil, domain.ErrEnumerateSnapshots.WithDetails(database.String()).WithCause(err)
	}

	entries, err := s.catalog.List(ctx, database)
	if err != nil {
		return nil, domain.ErrEnumerateSnapshots.WithDetails(database.String()).WithCause(err)
	}
	if len(entries) == 0 {
		s.metrics.SetCatalogEntries(database.String(), 0)
		return []domain.SnapshotInfo{}, nil
	}

	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.PhysicalName
	}

	rows, err := pool.Query(ctx, sqlExistingDatabases, names)
	if err != nil {
		return nil, domain.ErrEnumerateSnapshots.WithDetails(database.String()).WithCause(err)
	}
	defer rows.Close()

	existing := make(map[string]bool, len(names))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, domain.ErrEnumerateSnapshots.WithDetails(database.String()).WithCause(err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrEnumerateSnapshots.WithDetails(database.String()).WithCause(err)
	}

	snapshots := make([]domain.SnapshotInfo, 0, len(entries))
	for _, entry := range entries {
		if existing[entry.PhysicalName] {
			snapshots = append(snapshots, entry)
			continue
		}

		s.logger.Warn("pruning catalog entry without database",
			"snapshot", entry.ID,
			"physical_name", entry.PhysicalName,
			"database", database.String())
		if err := s.catalog.Delete(ctx, entry); err != nil {
			return nil, domain.ErrEnumerateSnapshots.WithDetails(database.String()).WithCause(err)
		}
	}

	s.metrics.SetCatalogEntries(database.String(), len(snapshots))
	return snapshots, nil
}

// CreateSnapshot clones database into a new physical database and records
// it in the catalog.
func (s *Service) CreateSnapshot(ctx context.Context, name string, database domain.DatabaseInfo) error {
	if err := domain.ValidateSnapshotName(name); err != nil {
		return err
	}

	pool, err := s.pool(database.Connection)
	if err != nil {
		return domain.ErrCreateSnapshot.WithDetails(name).WithCause(err)
	}

	if err := s.checkNameFree(ctx, name, database); err != nil {
		return err
	}

	createdAt := s.now().UTC()
	id, err := domain.NewSnapshotID(createdAt)
	if err != nil {
		return domain.ErrCreateSnapshot.WithDetails(name).WithCause(err)
	}

	snapshot := domain.SnapshotInfo{
		ID:           id,
		Name:         name,
		PhysicalName: PhysicalName(database.Name, id),
		Database:     database,
		CreatedAt:    createdAt,
	}

	if err := s.cloneDatabase(ctx, pool, snapshot.PhysicalName, database.Name); err != nil {
		return domain.ErrCreateSnapshot.WithDetails(name).WithCause(err)
	}

	if err := s.catalog.Put(ctx, snapshot); err != nil {
		// Without a catalog entry the clone would be invisible; drop it.
		if _, dropErr := pool.Exec(context.WithoutCancel(ctx), dropDatabase(snapshot.PhysicalName)); dropErr != nil {
			s.logger.Error("failed to drop uncatalogued snapshot database",
				"physical_name", snapshot.PhysicalName,
				"error", dropErr)
		}
		return domain.ErrCreateSnapshot.WithDetails(name).WithCause(err)
	}

	s.logger.Info("snapshot created",
		"snapshot", snapshot.ID,
		"name", name,
		"database", database.String(),
		"physical_name", snapshot.PhysicalName)
	return nil
}

// RestoreSnapshot replaces the snapshot's database with a fresh clone of
// the snapshot. The clone is built under a staging name first, so the live
// database is only dropped once a complete copy exists.
func (s *Service) RestoreSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) error {
	fail := func(err error) error {
		return domain.ErrRestoreSnapshot.WithDetails(snapshot.Name).WithCause(err)
	}

	pool, err := s.pool(snapshot.Database.Connection)
	if err != nil {
		return fail(err)
	}

	if err := s.requireCatalogued(ctx, snapshot); err != nil {
		return fail(err)
	}

	var exists bool
	if err := pool.QueryRow(ctx, sqlDatabaseExists, snapshot.PhysicalName).Scan(&exists); err != nil {
		return fail(err)
	}
	if !exists {
		return fail(domain.ErrSnapshotNotFound.WithDetails(snapshot.PhysicalName))
	}

	target := snapshot.Database.Name
	staging := RestoreName(target, snapshot.ID)

	// A restore interrupted after cloning leaves its staging database behind.
	if _, err := pool.Exec(ctx, dropDatabase(staging)); err != nil {
		return fail(err)
	}
	if _, err := pool.Exec(ctx, sqlTerminateSessions, snapshot.PhysicalName); err != nil {
		return fail(err)
	}
	if err := s.cloneDatabase(ctx, pool, staging, snapshot.PhysicalName); err != nil {
		s.dropStaging(pool, staging)
		return fail(err)
	}

	if _, err := pool.Exec(ctx, dropDatabase(target)); err != nil {
		s.dropStaging(pool, staging)
		return fail(err)
	}
	if _, err := pool.Exec(ctx, renameDatabase(staging, target)); err != nil {
		s.logger.Error("restored copy left under staging name",
			"snapshot", snapshot.ID,
			"database", snapshot.Database.String(),
			"staging", staging,
			"error", err)
		return fail(err)
	}

	s.logger.Info("snapshot restored",
		"snapshot", snapshot.ID,
		"name", snapshot.Name,
		"database", snapshot.Database.String())
	return nil
}

func (s *Service) dropStaging(pool *pgxpool.Pool, staging string) {
	if _, err := pool.Exec(context.Background(), dropDatabase(staging)); err != nil {
		s.logger.Warn("failed to drop staging database", "staging", staging, "error", err)
	}
}

// DeleteSnapshot drops the snapshot's physical database and its catalog
// entry.
func (s *Service) DeleteSnapshot(ctx context.Context, snapshot domain.SnapshotInfo) error {
	pool, err := s.pool(snapshot.Database.Connection)
	if err != nil {
		return domain.ErrDeleteSnapshot.WithDetails(snapshot.Name).WithCause(err)
	}

	if err := s.requireCatalogued(ctx, snapshot); err != nil {
		return domain.ErrDeleteSnapshot.WithDetails(snapshot.Name).WithCause(err)
	}

	if _, err := pool.Exec(ctx, dropDatabase(snapshot.PhysicalName)); err != nil {
		return domain.ErrDeleteSnapshot.WithDetails(snapshot.Name).WithCause(err)
	}
	if err := s.catalog.Delete(ctx, snapshot); err != nil {
		return domain.ErrDeleteSnapshot.WithDetails(snapshot.Name).WithCause(err)
	}

	s.logger.Info("snapshot deleted",
		"snapshot", snapshot.ID,
		"name", snapshot.Name,
		"database", snapshot.Database.String())
	return nil
}

// Connections returns the configured connection names in sorted order.
func (s *Service) Connections() []string {
	names := make([]string, 0, len(s.pools))
	for name := range s.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cloneDatabase runs CREATE DATABASE ... TEMPLATE, retrying while the
// template still has sessions that are shutting down.
func (s *Service) cloneDatabase(ctx context.Context, pool *pgxpool.Pool, target, template string) error {
	var err error
	for attempt := 1; attempt <= cloneAttempts; attempt++ {
		if _, err = pool.Exec(ctx, createFromTemplate(target, template)); err == nil || !isObjectInUse(err) {
			return err
		}

		s.logger.Debug("template database in use, retrying",
			"template", template,
			"attempt", attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * cloneBackoff):
		}
	}
	return err
}

func isObjectInUse(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateObjectInUse
}

func (s *Service) pool(connection domain.ConnectionInfo) (*pgxpool.Pool, error) {
	pool, ok := s.pools[connection.Name]
	if !ok {
		return nil, domain.ErrConnectionNotFound.WithDetails(connection.Name)
	}
	return pool, nil
}

func (s *Service) checkNameFree(ctx context.Context, name string, database domain.DatabaseInfo) error {
	entries, err := s.catalog.List(ctx, database)
	if err != nil {
		return domain.ErrCreateSnapshot.WithDetails(name).WithCause(err)
	}
	for _, entry := range entries {
		if entry.Name == name {
			return domain.ErrCreateSnapshot.WithDetails(name).
				WithCause(fmt.Errorf("snapshot %q already exists", name))
		}
	}
	return nil
}

// requireCatalogued guards against acting on a physical database that
// SnapKeeper did not create.
func (s *Service) requireCatalogued(ctx context.Context, snapshot domain.SnapshotInfo) error {
	entries, err := s.catalog.List(ctx, snapshot.Database)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.ID == snapshot.ID && entry.PhysicalName == snapshot.PhysicalName {
			return nil
		}
	}
	return domain.ErrSnapshotNotFound.WithDetails(snapshot.ID)
}

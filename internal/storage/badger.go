// Package storage provides the snapshot catalog for SnapKeeper.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/snapkeeper-go/internal/core/domain"
)

// ErrClosed is returned by a catalog that has been closed.
var ErrClosed = errors.New("catalog closed")

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory.
	Dir string

	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// SyncWrites enables fsync after each write.
	// Default: true (catalog writes are rare)
	SyncWrites bool

	// InMemory keeps all data in memory. Dir is ignored.
	InMemory bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		SyncWrites:  true,
	}
}

// BadgerCatalog implements Catalog on an embedded Badger database.
type BadgerCatalog struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	metricsSize prometheus.GaugeFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerCatalog opens (or creates) a catalog in cfg.Dir.
func NewBadgerCatalog(cfg BadgerConfig, logger *slog.Logger) (*BadgerCatalog, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	c := &BadgerCatalog{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go c.gcLoop()

	logger.Info("badger catalog opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return c, nil
}

// Put stores or replaces the entry for snapshot.
func (c *BadgerCatalog) Put(_ context.Context, snapshot domain.SnapshotInfo) error {
	value, err := EncodeEntry(snapshot)
	if err != nil {
		return domain.ErrCatalog.WithCause(err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(SnapshotKey(snapshot)), value)
	})
	if err != nil {
		return domain.ErrCatalog.WithDetails("put " + snapshot.ID).WithCause(c.translate(err))
	}
	return nil
}

// Delete removes the entry for snapshot.
func (c *BadgerCatalog) Delete(_ context.Context, snapshot domain.SnapshotInfo) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(SnapshotKey(snapshot)))
	})
	if err != nil {
		return domain.ErrCatalog.WithDetails("delete " + snapshot.ID).WithCause(c.translate(err))
	}
	return nil
}

// List returns the entries of database in creation order.
func (c *BadgerCatalog) List(ctx context.Context, database domain.DatabaseInfo) ([]domain.SnapshotInfo, error) {
	snapshots := []domain.SnapshotInfo{}

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(DatabasePrefix(database))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			snapshot, err := DecodeEntry(value)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, snapshot)
		}

		return nil
	})
	if err != nil {
		return nil, domain.ErrCatalog.WithDetails("list " + database.String()).WithCause(c.translate(err))
	}

	return snapshots, nil
}

// GC runs value log garbage collection until nothing more can be reclaimed.
// Returns the number of rewrite cycles.
func (c *BadgerCatalog) GC() (int, error) {
	cycles := 0
	for {
		err := c.db.RunValueLogGC(c.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
				return cycles, nil
			}
			return cycles, fmt.Errorf("gc: %w", err)
		}
		cycles++
	}
}

// RegisterMetrics registers the catalog size gauge with Prometheus.
// Returns the catalog for method chaining.
func (c *BadgerCatalog) RegisterMetrics(registry prometheus.Registerer) *BadgerCatalog {
	c.metricsSize = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "snapkeeper",
		Subsystem: "catalog",
		Name:      "badger_size_bytes",
		Help:      "Badger catalog size in bytes (LSM + value log)",
	}, func() float64 {
		lsm, vlog := c.db.Size()
		return float64(lsm + vlog)
	})

	registry.MustRegister(c.metricsSize)
	return c
}

// Close stops background GC and closes the database.
func (c *BadgerCatalog) Close() error {
	select {
	case <-c.stopCh:
		return nil
	default:
	}

	close(c.stopCh)
	<-c.doneCh

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	c.logger.Info("badger catalog closed")
	return nil
}

func (c *BadgerCatalog) translate(err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// gcLoop runs periodic garbage collection.
func (c *BadgerCatalog) gcLoop() {
	defer close(c.doneCh)

	interval := c.cfg.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cycles, err := c.GC(); err != nil {
				c.logger.Error("catalog gc failed", "error", err)
			} else if cycles > 0 {
				c.logger.Debug("catalog gc completed", "cycles", cycles)
			}

		case <-c.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

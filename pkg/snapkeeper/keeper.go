package snapkeeper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/snapkeeper-go/internal/config"
	"github.com/yndnr/snapkeeper-go/internal/core/domain"
	"github.com/yndnr/snapkeeper-go/internal/core/service"
	"github.com/yndnr/snapkeeper-go/internal/infra/buildinfo"
	"github.com/yndnr/snapkeeper-go/internal/infra/confloader"
	"github.com/yndnr/snapkeeper-go/internal/infra/tlsroots"
	"github.com/yndnr/snapkeeper-go/internal/storage"
	"github.com/yndnr/snapkeeper-go/internal/storage/memory"
	"github.com/yndnr/snapkeeper-go/internal/storage/postgres"
	"github.com/yndnr/snapkeeper-go/internal/storage/rediscatalog"
	"github.com/yndnr/snapkeeper-go/internal/telemetry/logger"
	"github.com/yndnr/snapkeeper-go/internal/telemetry/metric"
)

// Public names for the domain types.
type (
	ConnectionInfo = domain.ConnectionInfo
	DatabaseInfo   = domain.DatabaseInfo
	SnapshotInfo   = domain.SnapshotInfo
	Result         = domain.Result
	Repository     = service.SnapshotRepository
)

// ErrUnknownConnection is returned by Keeper.Database for names missing
// from the configuration.
var ErrUnknownConnection = domain.ErrConnectionNotFound

type options struct {
	registerer prometheus.Registerer
	logOutput  io.Writer
}

// Option configures Open.
type Option func(*options)

// WithRegisterer registers SnapKeeper's Prometheus collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithLogOutput redirects log output, which defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// WithRequestID tags ctx so that repository log entries for calls made
// with it carry request_id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return logger.WithRequestID(ctx, requestID)
}

// Keeper owns a configured snapshot repository and its resources.
type Keeper struct {
	cfg  *Config
	log  logger.Logger
	repo Repository

	connections map[string]ConnectionInfo

	pinger  func(context.Context) error
	closers []func() error

	mu      sync.Mutex
	watcher *confloader.Watcher
	closed  bool
}

// Open builds a Keeper from cfg.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Keeper, error) {
	if cfg == nil {
		return nil, domain.ErrMissingArgument.WithDetails("config is required")
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: o.logOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	k := &Keeper{
		cfg:         cfg,
		log:         log,
		connections: connectionInfos(cfg),
		pinger:      func(context.Context) error { return nil },
	}

	log.Info("opening snapkeeper", buildinfo.Get().LogAttrs()...)
	log.Debug("configuration", "engine", cfg.Engine.Driver, "catalog", cfg.Catalog.Driver,
		"connections", config.Sanitize(cfg).Connections)

	metrics := metric.NewRegistry(o.registerer)

	engine, err := k.openEngine(ctx, o, metrics)
	if err != nil {
		_ = k.Close()
		return nil, err
	}

	repo := service.NewSnapshotRepository(engine,
		service.WithLogger(log),
		service.WithMetrics(metrics),
	)
	k.repo = service.NewSynchronizedRepository(repo)

	return k, nil
}

func (k *Keeper) openEngine(ctx context.Context, o *options, metrics *metric.Registry) (service.DatabaseService, error) {
	if k.cfg.Engine.Driver == config.EngineMemory {
		var databases []domain.DatabaseInfo
		for name, conn := range k.cfg.Connections {
			for _, db := range conn.Databases {
				databases = append(databases, domain.NewDatabaseInfo(k.connections[name], db))
			}
		}
		k.log.Info("using in-memory engine", "databases", len(databases))
		return memory.New(memory.WithDatabases(databases...)), nil
	}

	catalog, err := k.openCatalog(ctx, o)
	if err != nil {
		return nil, err
	}

	conns := make(map[string]postgres.ConnectionConfig, len(k.cfg.Connections))
	for name, conn := range k.cfg.Connections {
		conns[name] = postgres.ConnectionConfig{
			DSN:           conn.DSN,
			MaintenanceDB: k.cfg.Engine.MaintenanceDB,
			MaxConns:      conn.MaxConns,
		}
	}

	svc, err := postgres.New(ctx, conns, catalog,
		postgres.WithLogger(k.log.Slog()),
		postgres.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	k.closers = append(k.closers, func() error {
		svc.Close()
		return nil
	})
	k.pinger = svc.Ping

	return svc, nil
}

func (k *Keeper) openCatalog(ctx context.Context, o *options) (storage.Catalog, error) {
	c := k.cfg.Catalog

	switch c.Driver {
	case config.CatalogRedis:
		opts := rediscatalog.Options{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			KeyPrefix: c.KeyPrefix,
		}
		if c.RedisTLS {
			tlsConfig, err := tlsroots.ClientConfig(tlsroots.ClientOptions{
				CAFile:   c.RedisTLSCAFile,
				CertFile: c.RedisTLSCertFile,
				KeyFile:  c.RedisTLSKeyFile,
			})
			if err != nil {
				return nil, fmt.Errorf("redis catalog tls: %w", err)
			}
			opts.TLS = tlsConfig
		}

		catalog, err := rediscatalog.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("open redis catalog: %w", err)
		}
		k.closers = append(k.closers, catalog.Close)
		return catalog, nil

	default:
		bc := storage.DefaultBadgerConfig(c.Dir)
		bc.InMemory = c.InMemory
		if c.GCInterval > 0 {
			bc.GCInterval = c.GCInterval
		}

		catalog, err := storage.NewBadgerCatalog(bc, k.log.Slog())
		if err != nil {
			return nil, fmt.Errorf("open badger catalog: %w", err)
		}
		if o.registerer != nil {
			catalog.RegisterMetrics(o.registerer)
		}
		k.closers = append(k.closers, catalog.Close)
		return catalog, nil
	}
}

// Repository returns the snapshot repository. It is safe for concurrent use.
func (k *Keeper) Repository() Repository {
	return k.repo
}

// Connections returns the configured connections sorted by name.
func (k *Keeper) Connections() []ConnectionInfo {
	out := make([]ConnectionInfo, 0, len(k.connections))
	for _, conn := range k.connections {
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Database returns the identity of database name on the configured
// connection.
func (k *Keeper) Database(connection, name string) (DatabaseInfo, error) {
	conn, ok := k.connections[connection]
	if !ok {
		return DatabaseInfo{}, ErrUnknownConnection.WithDetails(connection)
	}
	if name == "" {
		return DatabaseInfo{}, domain.ErrMissingArgument.WithDetails("database name is required")
	}
	return domain.NewDatabaseInfo(conn, name), nil
}

// Ping checks that every configured database server is reachable.
func (k *Keeper) Ping(ctx context.Context) error {
	return k.pinger(ctx)
}

// WatchConfig re-reads the file at path whenever it changes and applies the
// new log level. Other settings take effect on the next Open.
func (k *Keeper) WatchConfig(path string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return errors.New("snapkeeper: keeper is closed")
	}
	if k.watcher != nil {
		return errors.New("snapkeeper: config is already watched")
	}

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(k.log.Slog()))
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	w.OnChange(k.reload)
	w.StartAsync()
	k.watcher = w
	return nil
}

func (k *Keeper) reload(path string) {
	cfg, err := LoadConfig(path)
	if err != nil {
		k.log.Warn("ignoring invalid config change", "path", path, "error", err)
		return
	}

	previous := logger.CurrentLevel()
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		k.log.Warn("ignoring log level change", "level", cfg.Log.Level, "error", err)
		return
	}
	if current := logger.CurrentLevel(); current != previous {
		k.log.Info("log level changed", "from", previous, "to", current)
	}
}

// Close releases every resource opened by Open. It is safe to call more
// than once.
func (k *Keeper) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	watcher := k.watcher
	k.mu.Unlock()

	var errs []error
	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	// Reverse order: the engine writes to the catalog opened before it.
	for i := len(k.closers) - 1; i >= 0; i-- {
		if err := k.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	k.log.Info("snapkeeper closed")
	return errors.Join(errs...)
}

func connectionInfos(cfg *Config) map[string]ConnectionInfo {
	out := make(map[string]ConnectionInfo, len(cfg.Connections))
	for name, conn := range cfg.Connections {
		out[name] = ConnectionInfo{Name: name, Host: conn.Host, Port: conn.Port}
	}
	return out
}

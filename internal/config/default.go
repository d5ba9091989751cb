package config

import "time"

// Engine drivers.
const (
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// Catalog drivers.
const (
	CatalogBadger = "badger"
	CatalogRedis  = "redis"
)

// Default configuration values.
const (
	DefaultEngine        = EnginePostgres
	DefaultMaintenanceDB = "postgres"

	DefaultCatalog    = CatalogBadger
	DefaultCatalogDir = "/var/lib/snapkeeper/catalog"
	DefaultGCInterval = 10 * time.Minute
	DefaultRedisAddr  = "127.0.0.1:6379"
	DefaultKeyPrefix  = "snapkeeper:"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineSection{
			Driver:        DefaultEngine,
			MaintenanceDB: DefaultMaintenanceDB,
		},
		Connections: map[string]ConnectionSection{},
		Catalog: CatalogSection{
			Driver:     DefaultCatalog,
			Dir:        DefaultCatalogDir,
			GCInterval: DefaultGCInterval,
			RedisAddr:  DefaultRedisAddr,
			KeyPrefix:  DefaultKeyPrefix,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

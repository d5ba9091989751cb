package config

import "time"

// Config is the root configuration.
type Config struct {
	Engine      EngineSection                `koanf:"engine"`
	Connections map[string]ConnectionSection `koanf:"connections"`
	Catalog     CatalogSection               `koanf:"catalog"`
	Log         LogSection                   `koanf:"log"`
}

// EngineSection selects the database service.
type EngineSection struct {
	// Driver is "postgres" or "memory".
	Driver string `koanf:"driver"`

	// MaintenanceDB is the database the postgres pools connect to when the
	// DSN names none.
	MaintenanceDB string `koanf:"maintenance_db"`
}

// ConnectionSection describes one database server.
type ConnectionSection struct {
	DSN  string `koanf:"dsn"`
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// MaxConns caps the postgres pool. Zero keeps the driver default.
	MaxConns int32 `koanf:"max_conns"`

	// Databases are registered up front by the memory engine.
	Databases []string `koanf:"databases"`
}

// CatalogSection configures where snapshot records are kept.
type CatalogSection struct {
	// Driver is "badger" or "redis".
	Driver string `koanf:"driver"`

	Dir        string        `koanf:"dir"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	KeyPrefix     string `koanf:"key_prefix"`

	// RedisTLS enables TLS to Redis. The file paths are optional.
	RedisTLS         bool   `koanf:"redis_tls"`
	RedisTLSCAFile   string `koanf:"redis_tls_ca_file"`
	RedisTLSCertFile string `koanf:"redis_tls_cert_file"`
	RedisTLSKeyFile  string `koanf:"redis_tls_key_file"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Keys lists the configuration keys whose names contain underscores, for
// environment variable mapping.
func Keys() []string {
	return []string{
		"engine.maintenance_db",
		"catalog.in_memory",
		"catalog.gc_interval",
		"catalog.redis_addr",
		"catalog.redis_password",
		"catalog.redis_db",
		"catalog.key_prefix",
		"catalog.redis_tls",
		"catalog.redis_tls_ca_file",
		"catalog.redis_tls_cert_file",
		"catalog.redis_tls_key_file",
	}
}

package config

import (
	"errors"
	"fmt"
	"sort"
)

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyEngine(cfg); err != nil {
		return err
	}
	if err := verifyCatalog(&cfg.Catalog); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyEngine(cfg *Config) error {
	switch cfg.Engine.Driver {
	case EngineMemory:
		return nil
	case EnginePostgres:
	default:
		return fmt.Errorf("engine.driver %q is not supported (want %s or %s)",
			cfg.Engine.Driver, EnginePostgres, EngineMemory)
	}

	if len(cfg.Connections) == 0 {
		return errors.New("connections: at least one connection is required for the postgres engine")
	}

	names := make([]string, 0, len(cfg.Connections))
	for name := range cfg.Connections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		conn := cfg.Connections[name]
		if conn.DSN == "" {
			return fmt.Errorf("connections.%s.dsn is required", name)
		}
		if conn.MaxConns < 0 {
			return fmt.Errorf("connections.%s.max_conns must not be negative", name)
		}
	}
	return nil
}

func verifyCatalog(cfg *CatalogSection) error {
	switch cfg.Driver {
	case CatalogBadger:
		if cfg.Dir == "" && !cfg.InMemory {
			return errors.New("catalog.dir is required for the badger catalog")
		}
	case CatalogRedis:
		if cfg.RedisAddr == "" {
			return errors.New("catalog.redis_addr is required for the redis catalog")
		}
		if (cfg.RedisTLSCertFile == "") != (cfg.RedisTLSKeyFile == "") {
			return errors.New("catalog.redis_tls_cert_file and catalog.redis_tls_key_file must be set together")
		}
	default:
		return fmt.Errorf("catalog.driver %q is not supported (want %s or %s)",
			cfg.Driver, CatalogBadger, CatalogRedis)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch cfg.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not supported", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not supported", cfg.Format)
	}
	return nil
}

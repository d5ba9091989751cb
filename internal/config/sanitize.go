package config

import (
	"strings"

	"github.com/yndnr/snapkeeper-go/internal/telemetry/logger"
)

// Sanitize returns a copy of the config with credentials masked, for
// logging.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	sanitized.Connections = make(map[string]ConnectionSection, len(cfg.Connections))
	for name, conn := range cfg.Connections {
		conn.DSN = logger.RedactString(conn.DSN)
		sanitized.Connections[name] = conn
	}

	if sanitized.Catalog.RedisPassword != "" {
		sanitized.Catalog.RedisPassword = maskSecret(sanitized.Catalog.RedisPassword)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Catalog struct {
		Driver     string        `koanf:"driver"`
		GCInterval time.Duration `koanf:"gc_interval"`
	} `koanf:"catalog"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLoader_Defaults(t *testing.T) {
	l := NewLoader()
	assert.Equal(t, DefaultEnvPrefix, l.envPrefix)
	assert.Empty(t, l.filePath)
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeFile(t, "catalog:\n  driver: redis\n  gc_interval: 5m\n")

	l := NewLoader()
	require.NoError(t, l.LoadFile(path))

	var cfg testConfig
	require.NoError(t, l.Unmarshal(&cfg))
	assert.Equal(t, "redis", cfg.Catalog.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.GCInterval)
}

func TestLoader_LoadFile_NotFound(t *testing.T) {
	l := NewLoader()
	assert.Error(t, l.LoadFile("/nonexistent/config.yaml"))
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeFile(t, "catalog:\n  driver: redis\n  gc_interval: 5m\nlog:\n  level: warn\n")
	t.Setenv("SNAPKEEPER_LOG_LEVEL", "debug")
	t.Setenv("SNAPKEEPER_CATALOG_GC_INTERVAL", "30s")

	var cfg testConfig
	cfg.Catalog.Driver = "badger"
	cfg.Log.Level = "info"

	l := NewLoader(WithConfigFile(path), WithKnownKeys("catalog.gc_interval"))
	require.NoError(t, l.Load(&cfg))

	assert.Equal(t, "redis", cfg.Catalog.Driver, "file overrides default")
	assert.Equal(t, "debug", cfg.Log.Level, "env overrides file")
	assert.Equal(t, 30*time.Second, cfg.Catalog.GCInterval)
}

func TestLoader_Load_DefaultsKept(t *testing.T) {
	var cfg testConfig
	cfg.Catalog.Driver = "badger"

	l := NewLoader()
	require.NoError(t, l.Load(&cfg))

	assert.Equal(t, "badger", cfg.Catalog.Driver)
}

func TestLoader_EnvKey(t *testing.T) {
	l := NewLoader(WithKnownKeys("engine.maintenance_db"))

	assert.Equal(t, "engine.maintenance_db", l.envKey("SNAPKEEPER_ENGINE_MAINTENANCE_DB"))
	assert.Equal(t, "connections.main.dsn", l.envKey("SNAPKEEPER_CONNECTIONS_MAIN_DSN"))
}

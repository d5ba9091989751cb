package snapkeeper

import (
	"fmt"

	"github.com/yndnr/snapkeeper-go/internal/config"
	"github.com/yndnr/snapkeeper-go/internal/infra/confloader"
)

// Config is the SnapKeeper configuration.
type Config = config.Config

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads the YAML file at path (optional) and SNAPKEEPER_*
// environment variables over the defaults, then validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := config.Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithKnownKeys(config.Keys()...),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

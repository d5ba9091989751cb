// Package config defines the SnapKeeper configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: credential masking for logs
//
// Configuration is loaded via internal/infra/confloader.
package config

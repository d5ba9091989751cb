// Package domain defines the core domain models for SnapKeeper.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - ConnectionInfo, DatabaseInfo: comparable identities used as cache keys
//   - SnapshotInfo: a point-in-time copy of a database
//   - Result: success/failure outcome returned by the repository
//   - Errors: domain-specific error definitions
package domain

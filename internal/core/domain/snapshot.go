// Package domain defines the core domain models for SnapKeeper.
package domain

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ConnectionInfo identifies a database server reachable by the engine.
//
// Name is the configured connection key. The struct is comparable and is
// matched by value.
type ConnectionInfo struct {
	Name string `json:"name"`
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// IsZero reports whether the connection is absent.
func (c ConnectionInfo) IsZero() bool {
	return c.Name == ""
}

// String returns a printable form of the connection.
func (c ConnectionInfo) String() string {
	return c.Name
}

// DatabaseInfo identifies a database on a connection.
//
// It is used directly as a map key, so every field must stay comparable.
type DatabaseInfo struct {
	Connection ConnectionInfo `json:"connection"`
	Name       string         `json:"database"`
}

// NewDatabaseInfo creates a DatabaseInfo for the named database.
func NewDatabaseInfo(conn ConnectionInfo, name string) DatabaseInfo {
	return DatabaseInfo{Connection: conn, Name: name}
}

// IsZero reports whether the database is absent.
func (d DatabaseInfo) IsZero() bool {
	return d.Name == "" || d.Connection.IsZero()
}

// String returns "connection/database".
func (d DatabaseInfo) String() string {
	return d.Connection.Name + "/" + d.Name
}

// SnapshotInfo describes one point-in-time copy of a database.
type SnapshotInfo struct {
	// ID is a lowercase ULID; lexical order equals creation order.
	ID string `json:"id"`

	// Name is the label given at creation time.
	Name string `json:"name"`

	// PhysicalName is the engine-side object backing the snapshot.
	PhysicalName string `json:"physical_name"`

	// Database is the database the snapshot was taken from.
	Database DatabaseInfo `json:"source"`

	CreatedAt time.Time `json:"created_at"`
}

// IsZero reports whether the snapshot is absent.
func (s SnapshotInfo) IsZero() bool {
	return s.ID == ""
}

// Shared so IDs minted within one millisecond still sort in creation order.
var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewSnapshotID generates a new lowercase ULID for a snapshot.
func NewSnapshotID(at time.Time) (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(at), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", err
	}
	return strings.ToLower(id.String()), nil
}

// ValidateSnapshotName rejects names that are empty or only whitespace.
func ValidateSnapshotName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrSnapshotInvalid.WithDetails("name is required")
	}
	return nil
}

// ValidateSnapshotID checks that id is a ULID.
func ValidateSnapshotID(id string) error {
	if _, err := ulid.Parse(strings.ToUpper(id)); err != nil {
		return ErrSnapshotInvalid.WithDetails("malformed snapshot id").WithCause(err)
	}
	return nil
}

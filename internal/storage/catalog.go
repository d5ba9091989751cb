// Package storage provides the snapshot catalog for SnapKeeper.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yndnr/snapkeeper-go/internal/core/domain"
)

// Catalog records the snapshots created through SnapKeeper.
//
// Implementations must be safe for concurrent use.
type Catalog interface {
	// Put stores or replaces the entry for snapshot.
	Put(ctx context.Context, snapshot domain.SnapshotInfo) error

	// Delete removes the entry for snapshot. A missing entry is not an error.
	Delete(ctx context.Context, snapshot domain.SnapshotInfo) error

	// List returns the entries of database in creation order.
	List(ctx context.Context, database domain.DatabaseInfo) ([]domain.SnapshotInfo, error)

	// Close releases the catalog's resources.
	Close() error
}

const keyPrefix = "snap/"

// DatabasePrefix returns the key prefix shared by all entries of database.
func DatabasePrefix(database domain.DatabaseInfo) string {
	return keyPrefix + escapeSegment(database.Connection.Name) + "/" + escapeSegment(database.Name) + "/"
}

// SnapshotKey returns the key of snapshot's entry.
func SnapshotKey(snapshot domain.SnapshotInfo) string {
	return DatabasePrefix(snapshot.Database) + snapshot.ID
}

// escapeSegment keeps "/" inside names from producing ambiguous keys.
func escapeSegment(s string) string {
	return strings.NewReplacer("%", "%25", "/", "%2F").Replace(s)
}

// EncodeEntry serializes a catalog entry.
func EncodeEntry(snapshot domain.SnapshotInfo) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode catalog entry %s: %w", snapshot.ID, err)
	}
	return data, nil
}

// DecodeEntry parses a catalog entry.
func DecodeEntry(data []byte) (domain.SnapshotInfo, error) {
	var snapshot domain.SnapshotInfo
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.SnapshotInfo{}, fmt.Errorf("decode catalog entry: %w", err)
	}
	return snapshot, nil
}

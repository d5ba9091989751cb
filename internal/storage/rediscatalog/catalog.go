// Package rediscatalog stores the snapshot catalog in Redis so several
// SnapKeeper processes can share it.
//
// Each database owns one hash. Fields are snapshot IDs and values are the
// JSON-encoded entries.
package rediscatalog

import (
	"context"
	"crypto/tls"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/yndnr/snapkeeper-go/internal/core/domain"
	"github.com/yndnr/snapkeeper-go/internal/storage"
)

// DefaultKeyPrefix namespaces all catalog keys.
const DefaultKeyPrefix = "snapkeeper:"

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	// TLS enables TLS when non-nil.
	TLS *tls.Config
}

// Catalog implements storage.Catalog on Redis hashes.
type Catalog struct {
	client    *redis.Client
	keyPrefix string
}

var _ storage.Catalog = (*Catalog)(nil)

// Connect dials Redis and verifies the connection with PING.
func Connect(ctx context.Context, opts Options) (*Catalog, error) {
	client := redis.NewClient(&redis.Options{
		Addr:      opts.Addr,
		Password:  opts.Password,
		DB:        opts.DB,
		Protocol:  2,
		TLSConfig: opts.TLS,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}

	return New(client, opts.KeyPrefix), nil
}

// New wraps an existing client. Close closes the client.
func New(client *redis.Client, keyPrefix string) *Catalog {
	if client == nil {
		panic("redis client cannot be nil for Catalog")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Catalog{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *Catalog) databaseKey(database domain.DatabaseInfo) string {
	return c.keyPrefix + strings.TrimSuffix(storage.DatabasePrefix(database), "/")
}

// Put stores or replaces the entry for snapshot.
func (c *Catalog) Put(ctx context.Context, snapshot domain.SnapshotInfo) error {
	value, err := storage.EncodeEntry(snapshot)
	if err != nil {
		return domain.ErrCatalog.WithCause(err)
	}

	key := c.databaseKey(snapshot.Database)
	if err := c.client.HSet(ctx, key, snapshot.ID, value).Err(); err != nil {
		return domain.ErrCatalog.WithDetails("put " + snapshot.ID).
			WithCause(fmt.Errorf("redis: hset %s: %w", key, err))
	}
	return nil
}

// Delete removes the entry for snapshot.
func (c *Catalog) Delete(ctx context.Context, snapshot domain.SnapshotInfo) error {
	key := c.databaseKey(snapshot.Database)
	if err := c.client.HDel(ctx, key, snapshot.ID).Err(); err != nil {
		return domain.ErrCatalog.WithDetails("delete " + snapshot.ID).
			WithCause(fmt.Errorf("redis: hdel %s: %w", key, err))
	}
	return nil
}

// List returns the entries of database in creation order.
func (c *Catalog) List(ctx context.Context, database domain.DatabaseInfo) ([]domain.SnapshotInfo, error) {
	key := c.databaseKey(database)
	fields, err := c.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, domain.ErrCatalog.WithDetails("list " + database.String()).
			WithCause(fmt.Errorf("redis: hgetall %s: %w", key, err))
	}

	ids := make([]string, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snapshots := make([]domain.SnapshotInfo, 0, len(ids))
	for _, id := range ids {
		snapshot, err := storage.DecodeEntry([]byte(fields[id]))
		if err != nil {
			return nil, domain.ErrCatalog.WithDetails("list " + database.String()).WithCause(err)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

// Close closes the Redis client.
func (c *Catalog) Close() error {
	return c.client.Close()
}

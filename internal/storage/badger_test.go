package storage

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/snapkeeper-go/internal/core/domain"
)

var (
	mainConn = domain.ConnectionInfo{Name: "main", Host: "db", Port: 5432}
	orders   = domain.NewDatabaseInfo(mainConn, "orders")
	billing  = domain.NewDatabaseInfo(mainConn, "billing")
)

func newSnapshot(t *testing.T, db domain.DatabaseInfo, name string, at time.Time) domain.SnapshotInfo {
	t.Helper()
	id, err := domain.NewSnapshotID(at)
	require.NoError(t, err)
	return domain.SnapshotInfo{
		ID:           id,
		Name:         name,
		PhysicalName: db.Name + "__snap_" + id,
		Database:     db,
		CreatedAt:    at.UTC(),
	}
}

func openCatalog(t *testing.T, dir string) *BadgerCatalog {
	t.Helper()
	cfg := DefaultBadgerConfig(dir)
	c, err := NewBadgerCatalog(cfg, nil)
	require.NoError(t, err)
	return c
}

func TestNewBadgerCatalog_RequiresDir(t *testing.T) {
	_, err := NewBadgerCatalog(BadgerConfig{}, nil)
	assert.Error(t, err)
}

func TestBadgerCatalog_PutListDelete(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, t.TempDir())
	defer c.Close()

	base := time.Now()
	first := newSnapshot(t, orders, "first", base)
	second := newSnapshot(t, orders, "second", base.Add(time.Second))
	other := newSnapshot(t, billing, "other", base)

	// Insert out of order; listing must follow creation order.
	require.NoError(t, c.Put(ctx, second))
	require.NoError(t, c.Put(ctx, first))
	require.NoError(t, c.Put(ctx, other))

	got, err := c.List(ctx, orders)
	require.NoError(t, err)
	assert.Equal(t, []domain.SnapshotInfo{first, second}, got)

	require.NoError(t, c.Delete(ctx, first))
	require.NoError(t, c.Delete(ctx, first), "deleting a missing entry is not an error")

	got, err = c.List(ctx, orders)
	require.NoError(t, err)
	assert.Equal(t, []domain.SnapshotInfo{second}, got)

	got, err = c.List(ctx, domain.NewDatabaseInfo(mainConn, "unknown"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBadgerCatalog_PrefixDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, t.TempDir())
	defer c.Close()

	short := domain.NewDatabaseInfo(mainConn, "app")
	long := domain.NewDatabaseInfo(mainConn, "app2")
	require.NoError(t, c.Put(ctx, newSnapshot(t, long, "x", time.Now())))

	got, err := c.List(ctx, short)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBadgerCatalog_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newSnapshot(t, orders, "durable", time.Now())

	c := openCatalog(t, dir)
	require.NoError(t, c.Put(ctx, s))
	require.NoError(t, c.Close())

	c = openCatalog(t, dir)
	defer c.Close()
	got, err := c.List(ctx, orders)
	require.NoError(t, err)
	assert.Equal(t, []domain.SnapshotInfo{s}, got)
}

func TestBadgerCatalog_InMemory(t *testing.T) {
	ctx := context.Background()
	c, err := NewBadgerCatalog(BadgerConfig{InMemory: true, GCThreshold: 0.5}, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Put(ctx, newSnapshot(t, orders, "mem", time.Now())))
	cycles, err := c.GC()
	require.NoError(t, err)
	assert.Zero(t, cycles)
}

func TestBadgerCatalog_ClosedReturnsError(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t, t.TempDir())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close is a no-op")

	err := c.Put(ctx, newSnapshot(t, orders, "late", time.Now()))
	assert.ErrorIs(t, err, domain.ErrCatalog)
}

func TestBadgerCatalog_ListHonoursContext(t *testing.T) {
	c := openCatalog(t, t.TempDir())
	defer c.Close()
	require.NoError(t, c.Put(context.Background(), newSnapshot(t, orders, "a", time.Now())))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.List(ctx, orders)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBadgerCatalog_Metrics(t *testing.T) {
	c := openCatalog(t, t.TempDir())
	defer c.Close()

	reg := prometheus.NewRegistry()
	c.RegisterMetrics(reg)

	assert.Equal(t, 1, testutil.CollectAndCount(c.metricsSize))
}

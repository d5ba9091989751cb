package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseInfo_IsZero(t *testing.T) {
	conn := ConnectionInfo{Name: "main", Host: "db", Port: 5432}

	assert.True(t, DatabaseInfo{}.IsZero())
	assert.True(t, DatabaseInfo{Name: "orders"}.IsZero(), "database without connection is absent")
	assert.True(t, DatabaseInfo{Connection: conn}.IsZero())
	assert.False(t, NewDatabaseInfo(conn, "orders").IsZero())
}

func TestDatabaseInfo_UsableAsMapKey(t *testing.T) {
	conn := ConnectionInfo{Name: "main", Host: "db", Port: 5432}
	m := map[DatabaseInfo]int{}

	m[NewDatabaseInfo(conn, "orders")] = 1
	m[NewDatabaseInfo(ConnectionInfo{Name: "main", Host: "db", Port: 5432}, "orders")]++

	assert.Len(t, m, 1)
	assert.Equal(t, 2, m[NewDatabaseInfo(conn, "orders")])
	assert.Equal(t, "main/orders", NewDatabaseInfo(conn, "orders").String())
}

func TestNewSnapshotID(t *testing.T) {
	now := time.Now()

	first, err := NewSnapshotID(now)
	require.NoError(t, err)
	second, err := NewSnapshotID(now.Add(time.Millisecond))
	require.NoError(t, err)

	assert.Len(t, first, 26)
	assert.Equal(t, strings.ToLower(first), first)
	assert.Less(t, first, second, "ids must sort in creation order")
	assert.NoError(t, ValidateSnapshotID(first))

	third, err := NewSnapshotID(now.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Less(t, second, third, "ids within one millisecond must still increase")
}

func TestValidateSnapshotName(t *testing.T) {
	for _, name := range []string{"", " ", "\t\n"} {
		assert.ErrorIs(t, ValidateSnapshotName(name), ErrSnapshotInvalid, "%q", name)
	}
	assert.NoError(t, ValidateSnapshotName("nightly"))
	assert.NoError(t, ValidateSnapshotName(" padded "))
}

func TestValidateSnapshotID(t *testing.T) {
	err := ValidateSnapshotID("not-a-ulid")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotInvalid)
}

func TestSnapshotInfo_IsZero(t *testing.T) {
	assert.True(t, SnapshotInfo{}.IsZero())
	assert.False(t, SnapshotInfo{ID: "01hzz"}.IsZero())
}

func TestResult(t *testing.T) {
	ok := Success()
	assert.True(t, ok.Succeeded())
	assert.Empty(t, ok.Message())
	assert.Equal(t, "success", ok.String())

	failed := Failure("enumerate failed (connection refused)")
	assert.False(t, failed.Succeeded())
	assert.Equal(t, "enumerate failed (connection refused)", failed.Message())
	assert.Equal(t, "failure: enumerate failed (connection refused)", failed.String())

	assert.False(t, Result{}.Succeeded(), "zero value is not a success")
}

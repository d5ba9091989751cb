package postgres

import (
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
)

// maxIdentifierLen is PostgreSQL's NAMEDATALEN - 1.
const maxIdentifierLen = 63

const (
	physicalInfix = "__snap_"
	restoreInfix  = "__restore_"
)

// sqlStateObjectInUse is raised when a template database has sessions.
const sqlStateObjectInUse = "55006"

const (
	cloneAttempts = 5
	cloneBackoff  = 200 * time.Millisecond
)

const (
	sqlExistingDatabases = `SELECT datname FROM pg_database WHERE datname = ANY($1)`

	sqlDatabaseExists = `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`

	sqlTerminateSessions = `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`
)

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func createFromTemplate(target, template string) string {
	return "CREATE DATABASE " + quote(target) + " TEMPLATE " + quote(template)
}

func dropDatabase(name string) string {
	return "DROP DATABASE IF EXISTS " + quote(name) + " WITH (FORCE)"
}

func renameDatabase(from, to string) string {
	return "ALTER DATABASE " + quote(from) + " RENAME TO " + quote(to)
}

// PhysicalName returns the name of the database backing snapshot id of
// database.
func PhysicalName(database, id string) string {
	return derivedName(database, physicalInfix, id)
}

// RestoreName returns the staging database a restore of snapshot id clones
// into before it replaces database.
func RestoreName(database, id string) string {
	return derivedName(database, restoreInfix, id)
}

// derivedName joins database, infix and id, shortening the database part on
// a rune boundary so the result fits in a PostgreSQL identifier.
func derivedName(database, infix, id string) string {
	suffix := infix + id
	room := maxIdentifierLen - len(suffix)
	if room < 0 {
		room = 0
	}

	prefix := database
	for len(prefix) > room {
		_, size := utf8.DecodeLastRuneInString(prefix)
		prefix = prefix[:len(prefix)-size]
	}
	return prefix + suffix
}

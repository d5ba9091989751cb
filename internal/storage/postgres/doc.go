// Package postgres implements the SnapKeeper database service on PostgreSQL.
//
// A snapshot is a full database cloned with CREATE DATABASE ... TEMPLATE.
// PostgreSQL has no notion of which databases are snapshots of which, so
// every snapshot is also recorded in a storage.Catalog; enumeration joins
// the catalog against pg_database.
//
// Each configured connection gets its own pgxpool.Pool connected to the
// maintenance database, since a database cannot be dropped or used as a
// template while the pool is connected to it.
package postgres

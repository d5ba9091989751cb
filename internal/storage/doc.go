// Package storage provides the snapshot catalog for SnapKeeper.
//
// Most database engines keep no record of which databases are snapshots of
// which. The catalog fills that gap: every snapshot created through
// SnapKeeper is recorded with its ID, label, physical name and source
// database.
//
// Implementations:
//
//   - BadgerCatalog: embedded, on-disk catalog for a single process
//   - redis.Catalog (subpackage): shared catalog for several processes
//
// Keys have the form snap/<connection>/<database>/<id>. IDs are ULIDs, so a
// prefix scan returns entries in creation order.
package storage

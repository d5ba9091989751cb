// Package service provides domain services for SnapKeeper.
//
// The snapshot repository keeps an in-memory map from database to its
// loaded snapshots. Loading replaces an entry wholesale; create, restore and
// delete go through the DatabaseService and then reload the affected entry
// so the cache never shows a pre-mutation list. Failures reported by the
// DatabaseService come back as failed domain.Result values; a missing
// identity argument is a programming error and panics.
//
// Repository itself does no locking. NewSynchronizedRepository wraps it
// with a single mutex for concurrent callers.
package service

// Package memory provides an in-memory database engine for SnapKeeper.
//
// Service implements the snapshot operations of a database engine entirely
// in process. It backs tests and the "memory" engine driver, and supports
// failure injection so callers can exercise their error paths.
//
// Thread Safety:
//
// All operations are thread-safe. Read operations use RLock, write
// operations use Lock.
package memory

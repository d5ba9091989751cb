// Package logger provides structured logging for SnapKeeper on log/slog.
//
// All loggers built by New share one level, which the configuration watcher
// adjusts at runtime. Entries logged through a logger bound with
// WithContext carry the request_id set by WithRequestID, and connection
// passwords are masked before they reach the output.
package logger

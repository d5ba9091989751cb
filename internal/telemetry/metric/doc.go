// Package metric provides Prometheus metrics for SnapKeeper.
//
// Collectors are registered on a caller-supplied prometheus.Registerer.
// Exposing them over HTTP is left to the embedding application.
//
// Metrics include:
//
//   - Repository operation counters by outcome
//   - Number of databases with a loaded snapshot list
//   - Database service call latency
package metric

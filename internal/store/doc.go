// Package store provides SQLite-backed run history for scenario reports.
//
// Every report is stored twice: as canonical JSON in runs.report, which
// round-trips exactly, and flattened into one results row per check, which
// the history queries read.
//
// # Ordering
//
// Runs are ordered by seq, the insertion order, never by timestamps.
// Results keep their check order in idx. Every query orders explicitly so
// listings are identical across machines.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

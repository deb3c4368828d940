// Package store persists scenario runs and their kernel traces in SQLite.
//
// Each run is one execution of a scenario: its pass/fail outcome, the
// failure messages, and every trace event the fake kernel recorded. Runs
// are listed in insertion order and events in logical sequence order, so
// reading a run back yields exactly what the kernel recorded.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events are deleted with their run
package store

// Package storage persists the operator audit trail and the scheduler run
// history.
//
// Drivers:
//   - "file": JSON Lines files next to the configured path
//   - "sqlite": a single SQLite database (modernc.org/sqlite, no cgo)
//
// An empty or "none" driver disables storage; Open then returns a nil Store.
package storage

// Package stores persists solver run history: run records, per-quarter
// convergence reports, and solved variable values. The reporting surface
// reads from here instead of holding the in-memory model state.
//
// The only implementation is SQLite (modernc.org/sqlite, pure Go), with
// schema migrations embedded in the binary and applied through
// golang-migrate at startup.
package stores

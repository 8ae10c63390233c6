// Package storage persists users, deadlines, per-horizon reminder flags and the
// delivery audit trail.
//
// The only backend is SQLite (modernc, pure Go). Instants are stored as UTC unix
// milliseconds; reminder flags only ever move from 0 to 1 through MarkSent.
package storage

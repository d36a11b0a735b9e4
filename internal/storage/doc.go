// Package storage persists the play-time aggregator between restarts.
//
// Drivers:
//   - file: a single JSON snapshot, replaced atomically on every save
//   - sqlite: one row per day/server/player in a SQLite database
package storage

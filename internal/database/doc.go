// Package database provides the PostgreSQL connection pool and schema for
// the game recorder.
//
// Tables:
//   - games: one row per observed startGame
//   - placements: one row per player finishing position in a game
//
// Both are append-only; duplicate keys are ignored on insert.
package database

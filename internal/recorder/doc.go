// Package recorder persists observed games to PostgreSQL.
//
// The recorder consumes router.GameEvent values from the router's event
// queue. A game_started event opens a game with a fresh UUID; each
// player_finished event adds a placement with a WPM derived from the game
// text and the time since the game started. Rows are batched and written
// with ON CONFLICT DO NOTHING.
package recorder

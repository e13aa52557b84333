// Package router decodes inbound game-server frames and routes them into the
// session's state cells.
//
// Frames are JSON objects discriminated by their "type" field:
//   - roomStatus: replaces the player roster
//   - startGame: replaces the game snapshot and resets per-game cells
//   - userProgress, playerRank, endGame: update per-game progress cells
//   - anything else: logged and dropped
//
// A frame that is not valid JSON never mutates any cell.
package router

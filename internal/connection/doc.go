// Package connection implements the game-session Connection Manager.
//
// The Connection Manager:
//   - Owns at most one live WebSocket and at most one pending reconnect timer
//   - Publishes connection status into a store.Session
//   - Routes inbound frames through a router.Router
//   - Reconnects after every transport close, with a fixed delay by default
//     and optional exponential backoff, attempt ceiling and StopRetrying
//   - Never reconnects after a caller-initiated Close
//
// All state transitions run on a single event-loop goroutine, so socket
// callbacks, timer callbacks and caller requests are applied in order and
// subscribers may call back into the manager.
package connection

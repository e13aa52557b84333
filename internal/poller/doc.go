// Package poller implements the Room Status Poller component.
//
// The Room Status Poller:
//   - Asks the game server to rebroadcast the roster on a fixed interval
//   - Skips ticks while the connection is not open
//   - Repairs a roster that drifted after a missed broadcast
package poller

// Package metrics provides Prometheus metrics for monitoring a game-session client.
//
// Key metrics:
//   - Connection status and connect/reconnect counts
//   - Inbound frame rates by message type
//   - Decode errors and local send failures
//
// All Collector methods are safe to call on a nil *Collector.
package metrics

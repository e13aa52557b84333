// Package model defines shared data types used across the elevenfingers client.
//
// Conventions:
//   - Player IDs: opaque strings assigned by the game server
//   - Progress: ratio in [0, 1] for roster entries, integer percent for progress frames
//   - Timestamps: time.Time in UTC
package model

// Package store provides observable state cells.
//
// A Cell holds one value and notifies subscribers whenever it is replaced.
// Views subscribe to the cells of a Session; only the connection manager and
// the message router write to them.
package store

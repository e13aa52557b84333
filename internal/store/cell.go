package store

import (
	"sync"
)

// Cell is an observable value. Subscribers are called synchronously, in
// subscription order, every time the value is set.
//
// A subscriber must not call Set or Update on the cell that is notifying it.
type Cell[T any] struct {
	notifyMu sync.Mutex // serializes notifications so subscribers see sets in order

	mu     sync.RWMutex
	value  T
	subs   map[uint64]func(T)
	order  []uint64
	nextID uint64
}

// NewCell creates a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{
		value: initial,
		subs:  make(map[uint64]func(T)),
	}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the value and notifies subscribers.
func (c *Cell[T]) Set(v T) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.value = v
	fns := c.subscribersLocked()
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Update replaces the value with fn(current) and notifies subscribers.
func (c *Cell[T]) Update(fn func(T) T) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.value = fn(c.value)
	v := c.value
	fns := c.subscribersLocked()
	c.mu.Unlock()

	for _, sub := range fns {
		sub(v)
	}
}

// Subscribe registers fn and immediately calls it with the current value.
// The returned function removes the subscription; calling it twice is safe.
func (c *Cell[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.order = append(c.order, id)
	v := c.value
	c.mu.Unlock()

	fn(v)

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id) })
	}
}

// Subscribers returns the number of active subscriptions.
func (c *Cell[T]) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func (c *Cell[T]) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.subs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// subscribersLocked returns subscriber funcs in order. Must be called with mu held.
func (c *Cell[T]) subscribersLocked() []func(T) {
	fns := make([]func(T), 0, len(c.order))
	for _, id := range c.order {
		fns = append(fns, c.subs[id])
	}
	return fns
}

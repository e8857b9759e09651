package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// NewSiteID returns a random id for one replica (one open board).
func NewSiteID() string { return uuid.NewString() }

// Clock is a Lamport clock. Every local transaction ticks it and every
// received transaction pushes it forward.
type Clock struct {
	counter atomic.Uint64
}

// Tick increments the clock and returns the new value.
func (c *Clock) Tick() uint64 {
	return c.counter.Add(1)
}

// Update moves the clock forward to a received timestamp.
func (c *Clock) Update(timestamp uint64) {
	for {
		cur := c.counter.Load()
		if timestamp <= cur || c.counter.CompareAndSwap(cur, timestamp) {
			return
		}
	}
}

// Now returns the current value without ticking.
func (c *Clock) Now() uint64 { return c.counter.Load() }

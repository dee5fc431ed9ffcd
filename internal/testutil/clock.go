package testutil

import (
	"sync"
	"time"
)

// Epoch is where every Clock starts unless told otherwise.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Clock is a manual time source for build timestamps and tracker updates.
// With a step set, each Now call moves the clock forward by that much, so
// builds saved one after another get distinct updated_at values.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock returns a Clock stopped at Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// NewTickingClock returns a Clock at Epoch that advances by step after
// every reading.
func NewTickingClock(step time.Duration) *Clock {
	return &Clock{now: Epoch, step: step}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

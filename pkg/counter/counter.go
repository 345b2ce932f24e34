// Package counter models integer counters mirrored into a display element.
package counter

import (
	"strconv"
	"sync"
)

// TextSink receives the decimal text of a counter after every change.
// *registry.Registry satisfies it.
type TextSink interface {
	MutateText(key, text string) error
}

// Counter holds a non-negative value and the key of the element whose text
// mirrors it.
type Counter struct {
	key        string
	displayKey string
	sink       TextSink

	mu    sync.Mutex
	value int
}

// New creates a counter at zero. It does not touch the display element; call
// Reset to synchronize it.
func New(key, displayKey string, sink TextSink) *Counter {
	return &Counter{key: key, displayKey: displayKey, sink: sink}
}

// Key returns the counter key.
func (c *Counter) Key() string { return c.key }

// DisplayKey returns the key of the mirroring element.
func (c *Counter) DisplayKey() string { return c.displayKey }

// Value returns the current value.
func (c *Counter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Increment adds one and publishes the new value. The display is written
// while the counter lock is held so concurrent increments publish in order.
// If publishing fails the increment is rolled back.
func (c *Counter) Increment() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.value + 1
	if err := c.sink.MutateText(c.displayKey, strconv.Itoa(next)); err != nil {
		return c.value, err
	}
	c.value = next
	return next, nil
}

// Reset sets the value back to zero and publishes "0".
func (c *Counter) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = 0
	return c.sink.MutateText(c.displayKey, "0")
}

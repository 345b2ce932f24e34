// Package scroll models vertically scrolling, possibly virtualized lists.
package scroll

import (
	"math"
	"sync"

	"github.com/devicelab-dev/uiharness/pkg/core"
)

// DefaultRowHeight is used when a container does not configure one.
const DefaultRowHeight = 10

// Container is an ordered list of item keys seen through a viewport of
// ViewportSize rows starting at the current offset.
type Container struct {
	key          string
	items        []string
	index        map[string]int
	viewportSize int
	rowHeight    int
	initial      int
	virtualized  bool

	mu     sync.Mutex
	offset int
}

// Options configures a container.
type Options struct {
	ViewportSize  int
	RowHeight     int
	InitialOffset int
	// Virtualized lists only materialize the items inside the viewport.
	Virtualized bool
}

// New creates a container. The initial offset is clamped to the valid range.
func New(key string, items []string, opts Options) *Container {
	c := &Container{
		key:          key,
		items:        append([]string(nil), items...),
		index:        make(map[string]int, len(items)),
		viewportSize: opts.ViewportSize,
		rowHeight:    opts.RowHeight,
		virtualized:  opts.Virtualized,
	}
	if c.viewportSize <= 0 || c.viewportSize > len(items) {
		c.viewportSize = len(items)
	}
	if c.rowHeight <= 0 {
		c.rowHeight = DefaultRowHeight
	}
	for i, item := range items {
		if _, seen := c.index[item]; !seen {
			c.index[item] = i
		}
	}
	c.initial = c.clamp(opts.InitialOffset)
	c.offset = c.initial
	return c
}

// Key returns the container key.
func (c *Container) Key() string { return c.key }

// Items returns a copy of the item keys.
func (c *Container) Items() []string { return append([]string(nil), c.items...) }

// ViewportSize returns the number of visible rows.
func (c *Container) ViewportSize() int { return c.viewportSize }

// Virtualized reports whether off-screen items are unavailable.
func (c *Container) Virtualized() bool { return c.virtualized }

// Contains reports whether itemKey belongs to the container.
func (c *Container) Contains(itemKey string) bool {
	_, ok := c.index[itemKey]
	return ok
}

// Offset returns the index of the first visible item.
func (c *Container) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// IsVisible reports whether itemKey is inside the viewport.
func (c *Container) IsVisible(itemKey string) bool {
	i, ok := c.index[itemKey]
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inView(i)
}

// Visible returns the item keys currently inside the viewport.
func (c *Container) Visible() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	end := c.offset + c.viewportSize
	return append([]string(nil), c.items[c.offset:end]...)
}

// ScrollInto moves the viewport by dy and reports whether itemKey is then in
// view. Negative dy moves toward later items; |dy| is converted to whole
// rows using the row height. dx is accepted for symmetry and ignored since
// containers only scroll vertically.
//
// An unknown item leaves the offset untouched. When the item stays out of
// view the new offset is kept so repeated calls make progress.
func (c *Container) ScrollInto(itemKey string, dx, dy int) error {
	i, ok := c.index[itemKey]
	if !ok {
		return core.ErrItemNotFound.
			WithMessagef("item %q not found in %q", itemKey, c.key).
			WithDetails(map[string]interface{}{"container": c.key, "item": itemKey})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	steps := min(c.stepsFor(abs(dy)), len(c.items))
	c.offset = c.clamp(c.offset - sign(dy)*steps)
	if c.inView(i) {
		return nil
	}
	return core.ErrOutOfBounds.
		WithMessagef("item %q at index %d not in view (offset %d, viewport %d)", itemKey, i, c.offset, c.viewportSize).
		WithDetails(map[string]interface{}{
			"container": c.key,
			"item":      itemKey,
			"index":     i,
			"offset":    c.offset,
		})
}

// Reset restores the initial offset.
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = c.initial
}

func (c *Container) stepsFor(delta int) int {
	return delta / c.rowHeight
}

func (c *Container) maxOffset() int {
	if m := len(c.items) - c.viewportSize; m > 0 {
		return m
	}
	return 0
}

func (c *Container) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if m := c.maxOffset(); offset > m {
		return m
	}
	return offset
}

func (c *Container) inView(i int) bool {
	return c.offset <= i && i < c.offset+c.viewportSize
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// abs saturates at math.MaxInt for math.MinInt.
func abs(v int) int {
	switch {
	case v == math.MinInt:
		return math.MaxInt
	case v < 0:
		return -v
	}
	return v
}

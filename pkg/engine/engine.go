// Package engine applies commands to the in-memory state of the application
// under test: its elements, counters and scrollable containers.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/uiharness/pkg/command"
	"github.com/devicelab-dev/uiharness/pkg/config"
	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/counter"
	"github.com/devicelab-dev/uiharness/pkg/logger"
	"github.com/devicelab-dev/uiharness/pkg/registry"
	"github.com/devicelab-dev/uiharness/pkg/scroll"
)

// Engine is the application state. Reset takes mu exclusively; every other
// command holds it shared and relies on the per-aggregate locks of the
// registry, counters and containers.
type Engine struct {
	mu         sync.RWMutex
	generation uint64

	registry   *registry.Registry
	counters   map[string]*counter.Counter
	containers map[string]*scroll.Container
	initial    []registry.Element

	settleMode string
	pipeline   *pipeline
}

// New builds the engine from a resolved layout and brings every counter
// display in line with its counter.
func New(layout *config.ResolvedLayout, settle config.SettleConfig) (*Engine, error) {
	e := &Engine{
		registry:   registry.New(layout.Elements),
		counters:   make(map[string]*counter.Counter, len(layout.Counters)),
		containers: make(map[string]*scroll.Container, len(layout.Containers)),
		settleMode: settle.Mode,
	}

	for _, cs := range layout.Counters {
		e.counters[cs.Key] = counter.New(cs.Key, cs.Display, e.registry)
	}
	for _, rc := range layout.Containers {
		e.containers[rc.Key] = scroll.New(rc.Key, rc.Items, scroll.Options{
			ViewportSize:  rc.ViewportSize,
			RowHeight:     rc.RowHeight,
			InitialOffset: rc.Offset,
			Virtualized:   rc.Virtualized,
		})
	}
	for _, c := range e.counters {
		if err := c.Reset(); err != nil {
			return nil, fmt.Errorf("init counter %q: %w", c.Key(), err)
		}
	}
	e.initial = e.registry.Snapshot()

	if settle.Mode == config.SettleAsync {
		e.pipeline = newPipeline(settle.Delay, settle.QueueSize, e.runJob)
	}
	return e, nil
}

// FromConfig resolves the configured layout and builds the engine.
func FromConfig(cfg *config.Config) (*Engine, error) {
	layout, err := cfg.Layout.Resolve()
	if err != nil {
		return nil, err
	}
	return New(layout, cfg.Settle)
}

// Close stops the settle pipeline, if any.
func (e *Engine) Close() {
	if e.pipeline != nil {
		e.pipeline.close()
	}
}

// SettleMode returns "sync" or "async".
func (e *Engine) SettleMode() string {
	return e.settleMode
}

// Apply runs one command. Mutations are all-or-nothing: a failed command
// leaves the state unchanged, except that an out-of-bounds scroll keeps its
// new offset.
func (e *Engine) Apply(ctx context.Context, cmd command.Command) *core.CommandResult {
	start := time.Now()

	var result *core.CommandResult
	switch c := cmd.(type) {
	case command.Reset:
		result = e.reset()
	case command.Tap:
		result = e.tap(ctx, c)
	case command.QueryTexts:
		result = e.queryTexts(c)
	case command.ScrollInto:
		result = e.scrollInto(c)
	default:
		result = core.Failure(core.ErrMalformedRequest.WithMessagef("unsupported command %T", cmd))
	}

	result.Duration = time.Since(start)
	if result.Error != nil {
		logger.Debug("%s failed in %v: %v", cmd.Describe(), result.Duration, result.Error)
	} else {
		logger.Debug("%s ok in %v", cmd.Describe(), result.Duration)
	}
	return result
}

// WaitIdle blocks until pending tap effects have been applied. It returns
// immediately in sync mode.
func (e *Engine) WaitIdle(ctx context.Context) error {
	if e.pipeline == nil {
		return nil
	}
	return e.pipeline.waitIdle(ctx)
}

// Elements returns every element with its current text and whether it is
// currently interactable.
func (e *Engine) Elements() []ElementState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := e.registry.Snapshot()
	out := make([]ElementState, len(snap))
	for i, el := range snap {
		out[i] = ElementState{Element: el, Visible: e.visible(el)}
	}
	return out
}

// ElementState is an element plus its visibility.
type ElementState struct {
	registry.Element
	Visible bool `json:"visible"`
}

// Container returns the named container, for inspection.
func (e *Engine) Container(key string) (*scroll.Container, bool) {
	c, ok := e.containers[key]
	return c, ok
}

// Counter returns the named counter, for inspection.
func (e *Engine) Counter(key string) (*counter.Counter, bool) {
	c, ok := e.counters[key]
	return c, ok
}

func (e *Engine) reset() *core.CommandResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	e.registry.Restore(e.initial)
	for _, c := range e.counters {
		if err := c.Reset(); err != nil {
			return core.Failure(core.ErrInternal.WithCause(err))
		}
	}
	for _, c := range e.containers {
		c.Reset()
	}
	return core.Success("reset")
}

func (e *Engine) tap(ctx context.Context, c command.Tap) *core.CommandResult {
	e.mu.RLock()
	el, err := e.registry.Resolve(c.Target, e.visible)
	if err != nil {
		e.mu.RUnlock()
		return core.Failure(err)
	}
	if el.Kind == registry.KindTapTrigger && el.Action == registry.ActionReset {
		e.mu.RUnlock()
		return e.reset()
	}

	cnt, bound := e.counters[el.Counter]
	if el.Kind != registry.KindTapTrigger || !bound {
		e.mu.RUnlock()
		return core.Success(fmt.Sprintf("tapped %s", el.Key))
	}

	if e.pipeline == nil {
		defer e.mu.RUnlock()
		value, err := cnt.Increment()
		if err != nil {
			return core.Failure(core.AsExecutionError(err))
		}
		return core.Success(fmt.Sprintf("tapped %s, %s=%d", el.Key, cnt.Key(), value))
	}

	// Submit outside the lock: the worker needs it to apply queued effects.
	j := job{
		desc:       fmt.Sprintf("increment %s via %s", cnt.Key(), el.Key),
		generation: e.generation,
		apply: func() {
			if _, err := cnt.Increment(); err != nil {
				logger.Error("increment %s: %v", cnt.Key(), err)
			}
		},
	}
	e.mu.RUnlock()

	if err := e.pipeline.submit(ctx, j); err != nil {
		return core.Failure(err)
	}
	return core.Success(fmt.Sprintf("tapped %s, effect submitted", el.Key))
}

// runJob applies a deferred effect unless a Reset happened since it was
// submitted.
func (e *Engine) runJob(j job) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if j.generation != e.generation {
		logger.Debug("dropping %s: state was reset", j.desc)
		return
	}
	j.apply()
}

func (e *Engine) queryTexts(c command.QueryTexts) *core.CommandResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := core.Success("")
	result.Texts = e.registry.QueryByKey(c.Key, e.visible)
	return result
}

func (e *Engine) scrollInto(c command.ScrollInto) *core.CommandResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	container, ok := e.containers[c.ContainerKey]
	if !ok {
		return core.Failure(core.ErrContainerNotFound.
			WithMessagef("scrollable container not found: key=%q", c.ContainerKey))
	}
	if err := container.ScrollInto(c.ItemKey, c.DX, c.DY); err != nil {
		return core.Failure(err)
	}
	return core.Success(fmt.Sprintf("%s visible at offset %d", c.ItemKey, container.Offset()))
}

// visible hides items of virtualized containers that are outside the
// viewport. Callers hold e.mu.
func (e *Engine) visible(el registry.Element) bool {
	if el.Container == "" {
		return true
	}
	c, ok := e.containers[el.Container]
	if !ok || !c.Virtualized() {
		return true
	}
	return c.IsVisible(el.Key)
}

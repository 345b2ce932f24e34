package engine

import (
	"context"
	"sync"
	"time"

	"github.com/devicelab-dev/uiharness/pkg/core"
	"github.com/devicelab-dev/uiharness/pkg/logger"
)

// job is a deferred UI effect tagged with the reset generation it was
// submitted in.
type job struct {
	desc       string
	generation uint64
	apply      func()
}

// pipeline applies tap effects on a single worker after a settle delay,
// emulating a UI that re-renders asynchronously.
type pipeline struct {
	delay time.Duration
	jobs  chan job
	done  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	pending int
	waiters []chan struct{}
}

func newPipeline(delay time.Duration, queueSize int, run func(job)) *pipeline {
	if queueSize <= 0 {
		queueSize = 1
	}
	p := &pipeline{
		delay: delay,
		jobs:  make(chan job, queueSize),
		done:  make(chan struct{}),
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.done:
				return
			case j := <-p.jobs:
				if !p.sleep() {
					return
				}
				run(j)
				p.finish()
			}
		}
	}()
	return p
}

// submit queues a job. It blocks while the queue is full, bounded by ctx.
func (p *pipeline) submit(ctx context.Context, j job) error {
	select {
	case <-p.done:
		return core.ErrInternal.WithMessage("settle pipeline stopped")
	default:
	}

	p.mu.Lock()
	p.pending++
	p.mu.Unlock()

	select {
	case p.jobs <- j:
		return nil
	case <-ctx.Done():
		p.finish()
		return core.ErrTimeout.WithMessage("settle queue full").WithCause(ctx.Err())
	case <-p.done:
		p.finish()
		return core.ErrInternal.WithMessage("settle pipeline stopped")
	}
}

// waitIdle blocks until every submitted job has been applied.
func (p *pipeline) waitIdle(ctx context.Context) error {
	p.mu.Lock()
	if p.pending == 0 {
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return core.ErrTimeout.WithMessage("ui did not settle").WithCause(ctx.Err())
	}
}

func (p *pipeline) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending > 0 {
		p.pending--
	}
	if p.pending > 0 {
		return
	}
	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil
}

func (p *pipeline) sleep() bool {
	if p.delay <= 0 {
		return true
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-p.done:
		return false
	}
}

func (p *pipeline) close() {
	close(p.done)
	p.wg.Wait()

	p.mu.Lock()
	dropped := p.pending
	p.pending = 0
	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil
	p.mu.Unlock()

	if dropped > 0 {
		logger.Warn("settle pipeline closed with %d pending effects", dropped)
	}
}

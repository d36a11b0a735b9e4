// Package publisher batches tracker events per target and delivers them to
// the chat surface on a fixed interval.
package publisher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"fs22bot/internal/runtime/supervisor"
	logx "fs22bot/pkg/logx"
)

const (
	DefaultInterval       = 60 * time.Second
	DefaultPace           = time.Second
	DefaultDeliverTimeout = 15 * time.Second
)

// Strategy is the channel-specific part of a Publisher.
//
// Merge runs under the publisher lock and must not block. Render and Deliver
// run without any lock held.
type Strategy[C, E any] interface {
	Merge(targetID int, pending []E, ev E) []E
	Render(cfg C, item E) string
	Deliver(ctx context.Context, cfg C, text string) error
}

type Decision int

const (
	Apply Decision = iota
	Discard
	Defer
)

// Gate is an optional Strategy capability deciding whether a drained item is
// delivered now, dropped, or put back for a later tick. Applied is called
// after every delivery attempt, successful or not.
type Gate[E any] interface {
	Admit(targetID int, item E, now time.Time) Decision
	Applied(targetID int, item E, now time.Time)
}

// Forgetter is an optional Strategy capability for per-target state kept
// outside the pending store.
type Forgetter interface {
	Forget(targetID int)
}

type Options struct {
	Interval       time.Duration
	Pace           time.Duration
	DeliverTimeout time.Duration
	Clock          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Pace <= 0 {
		o.Pace = DefaultPace
	}
	if o.DeliverTimeout <= 0 {
		o.DeliverTimeout = DefaultDeliverTimeout
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Stats are best-effort counters.
type Stats struct {
	Name      string `json:"name"`
	Targets   int    `json:"targets"`
	Pending   int    `json:"pending"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Discarded uint64 `json:"discarded"`
	Deferred  uint64 `json:"deferred"`
	Dropped   uint64 `json:"dropped"`
}

// Publisher accumulates events per target and flushes them every interval.
// Within a flush the lock is held only to copy and clear the pending store.
type Publisher[C, E any] struct {
	name     string
	strategy Strategy[C, E]
	gate     Gate[E]
	opts     Options
	limiter  *rate.Limiter
	log      logx.Logger

	mu      sync.Mutex
	targets map[int]C
	pending map[int][]E

	delivered, failed, discarded, deferred, dropped atomic.Uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     <-chan struct{}
}

func New[C, E any](name string, s Strategy[C, E], opts Options, log logx.Logger) *Publisher[C, E] {
	opts = opts.withDefaults()
	p := &Publisher[C, E]{
		name:     name,
		strategy: s,
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Every(opts.Pace), 1),
		log:      log.With(logx.String("comp", "publisher."+name)),
		targets:  make(map[int]C),
		pending:  make(map[int][]E),
		stop:     make(chan struct{}),
	}
	if g, ok := s.(Gate[E]); ok {
		p.gate = g
	}
	return p
}

func (p *Publisher[C, E]) Name() string { return p.name }

// AddTarget registers or replaces a target and resets its pending state.
func (p *Publisher[C, E]) AddTarget(id int, cfg C) {
	p.mu.Lock()
	p.targets[id] = cfg
	delete(p.pending, id)
	p.mu.Unlock()
	p.forget(id)
}

// RemoveTarget deletes the target together with its pending state.
func (p *Publisher[C, E]) RemoveTarget(id int) {
	p.mu.Lock()
	delete(p.targets, id)
	delete(p.pending, id)
	p.mu.Unlock()
	p.forget(id)
}

func (p *Publisher[C, E]) forget(id int) {
	if f, ok := p.strategy.(Forgetter); ok {
		f.Forget(id)
	}
}

func (p *Publisher[C, E]) Target(id int) (C, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg, ok := p.targets[id]
	return cfg, ok
}

// TargetIDs lists registered targets in ascending order.
func (p *Publisher[C, E]) TargetIDs() []int {
	p.mu.Lock()
	ids := make([]int, 0, len(p.targets))
	for id := range p.targets {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	sort.Ints(ids)
	return ids
}

// OnEvent merges ev into the pending slot of target id. Events for
// unregistered targets are dropped.
func (p *Publisher[C, E]) OnEvent(id int, ev E) {
	p.mu.Lock()
	if _, ok := p.targets[id]; !ok {
		p.mu.Unlock()
		p.dropped.Add(1)
		p.log.Trace("event for unregistered target dropped", logx.Int("target", id))
		return
	}
	p.pending[id] = p.strategy.Merge(id, p.pending[id], ev)
	p.mu.Unlock()
}

func (p *Publisher[C, E]) Stats() Stats {
	p.mu.Lock()
	st := Stats{Name: p.name, Targets: len(p.targets)}
	for _, items := range p.pending {
		st.Pending += len(items)
	}
	p.mu.Unlock()
	st.Delivered = p.delivered.Load()
	st.Failed = p.failed.Load()
	st.Discarded = p.discarded.Load()
	st.Deferred = p.deferred.Load()
	st.Dropped = p.dropped.Load()
	return st
}

// Start runs the flush loop under sup.
func (p *Publisher[C, E]) Start(sup *supervisor.Supervisor) {
	p.done = sup.GoRestart("publisher."+p.name, func(ctx context.Context) error {
		runTicks(ctx, p.stop, p.opts.Interval, p.Flush)
		return nil
	})
}

// Stop prevents further ticks. A flush already in progress runs to completion.
func (p *Publisher[C, E]) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Wait blocks until the loop has exited or ctx is done.
func (p *Publisher[C, E]) Wait(ctx context.Context) error {
	return waitDone(ctx, p.done)
}

// Flush performs one tick: drain, then deliver every drained item.
func (p *Publisher[C, E]) Flush(ctx context.Context) {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[int][]E, len(batch))
	targets := make(map[int]C, len(p.targets))
	for id, cfg := range p.targets {
		targets[id] = cfg
	}
	p.mu.Unlock()

	for id, items := range batch {
		cfg, ok := targets[id]
		if !ok || len(items) == 0 {
			continue
		}
		for _, item := range items {
			p.process(ctx, id, cfg, item)
		}
	}
}

func (p *Publisher[C, E]) process(ctx context.Context, id int, cfg C, item E) {
	if p.gate != nil {
		switch p.gate.Admit(id, item, p.opts.Clock()) {
		case Discard:
			p.discarded.Add(1)
			return
		case Defer:
			p.deferred.Add(1)
			p.requeue(id, item)
			return
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		p.failed.Add(1)
		p.log.Warn("pacing aborted", logx.Int("target", id), logx.Err(err))
		return
	}
	err := p.deliver(ctx, cfg, item)
	if p.gate != nil {
		p.gate.Applied(id, item, p.opts.Clock())
	}
	if err != nil {
		p.failed.Add(1)
		p.log.Warn("delivery failed", logx.Int("target", id), logx.Err(err))
		return
	}
	p.delivered.Add(1)
}

// requeue puts a deferred item back unless the target is gone. Anything that
// arrived since the drain is merged on top of it, so newer events still win
// while partial ones keep the deferred item as their base.
func (p *Publisher[C, E]) requeue(id int, item E) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.targets[id]; !ok {
		return
	}
	merged := []E{item}
	for _, ev := range p.pending[id] {
		merged = p.strategy.Merge(id, merged, ev)
	}
	p.pending[id] = merged
}

func (p *Publisher[C, E]) deliver(ctx context.Context, cfg C, item E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("delivery panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			err = fmt.Errorf("publisher %s: panic: %v", p.name, r)
		}
	}()
	text := p.strategy.Render(cfg, item)
	dctx, cancel := context.WithTimeout(ctx, p.opts.DeliverTimeout)
	defer cancel()
	return p.strategy.Deliver(dctx, cfg, text)
}

// runTicks calls fn every interval until stop is closed or ctx is done. A
// tick in progress is never interrupted: fn gets a context that outlives ctx
// cancellation.
func runTicks(ctx context.Context, stop <-chan struct{}, interval time.Duration, fn func(context.Context)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
		}
		select {
		case <-stop:
			return
		default:
		}
		fn(context.WithoutCancel(ctx))
	}
}

func waitDone(ctx context.Context, done <-chan struct{}) error {
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Replace is the latest-wins merge.
func Replace[E any](_ []E, ev E) []E { return []E{ev} }

// Append is the ordered, non-coalescing merge.
func Append[E any](pending []E, ev E) []E { return append(pending, ev) }

package tracker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"fs22bot/internal/fs22"
	"fs22bot/internal/runtime/supervisor"
	logx "fs22bot/pkg/logx"
)

const DefaultPollInterval = 5 * time.Second

// Tracker owns the poll loop of one server and its last known snapshot.
type Tracker struct {
	cfg      fs22.ServerConfig
	provider fs22.Provider
	dispatch *Dispatcher
	interval time.Duration
	log      logx.Logger

	mu      sync.Mutex
	last    fs22.Snapshot
	hasLast bool
	polled  time.Time

	cancel context.CancelFunc
	done   <-chan struct{}
}

func newTracker(cfg fs22.ServerConfig, p fs22.Provider, d *Dispatcher, interval time.Duration, log logx.Logger) *Tracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tracker{cfg: cfg, provider: p, dispatch: d, interval: interval, log: log}
}

func (t *Tracker) Config() fs22.ServerConfig { return t.cfg }

func (t *Tracker) Dispatcher() *Dispatcher { return t.dispatch }

// Last returns the last observed snapshot and when it was taken.
func (t *Tracker) Last() (fs22.Snapshot, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.polled, t.hasLast
}

func (t *Tracker) start(sup *supervisor.Supervisor) {
	ctx, cancel := context.WithCancel(sup.Context())
	t.cancel = cancel
	t.done = sup.GoRestart("tracker."+strconv.Itoa(t.cfg.ID), func(context.Context) error {
		return t.run(ctx)
	})
}

// stop requests the loop to end. It returns at once; use wait to join.
func (t *Tracker) stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Tracker) wait(ctx context.Context) error {
	if t.done == nil {
		return nil
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		t.pollOnce(ctx)
		timer.Reset(t.interval)
	}
}

// pollOnce performs one poll and emits the resulting events. The first call
// emits only Initial and records the baseline.
func (t *Tracker) pollOnce(ctx context.Context) {
	next := t.provider.Poll(ctx, t.cfg)
	if ctx.Err() != nil {
		return
	}
	if next.Players == nil {
		next.Players = map[string]fs22.PlayerStatus{}
	}

	t.mu.Lock()
	prev, had := t.last, t.hasLast
	t.last, t.hasLast, t.polled = next, true, time.Now()
	t.mu.Unlock()

	if !had {
		t.log.Info("first poll", logx.String("status", next.Status.String()), logx.Int("players", next.PlayerCount()))
		t.dispatch.Emit(Event{Kind: KindInitial, ServerID: t.cfg.ID, Snapshot: next})
		return
	}
	if prev.Status != next.Status {
		t.log.Info("status changed", logx.String("from", prev.Status.String()), logx.String("to", next.Status.String()))
	}
	for _, ev := range Diff(t.cfg.ID, prev, next) {
		t.dispatch.Emit(ev)
	}
}

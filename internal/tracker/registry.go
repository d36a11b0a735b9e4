package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"fs22bot/internal/fs22"
	"fs22bot/internal/runtime/supervisor"
	logx "fs22bot/pkg/logx"
)

var (
	ErrDuplicateServer = errors.New("tracker: server id already registered")
	ErrUnknownServer   = errors.New("tracker: unknown server id")
)

// BindFunc wires a freshly created dispatch table before the first poll.
type BindFunc func(serverID int, cfg fs22.ServerConfig, d *Dispatcher)

// PurgeFunc drops every bit of state kept for a removed server.
type PurgeFunc func(serverID int)

type RegistryOptions struct {
	Provider     fs22.Provider
	PollInterval time.Duration
	Bind         BindFunc
	Purge        PurgeFunc
}

// Registry assigns server ids and owns the running trackers.
type Registry struct {
	opts RegistryOptions
	sup  *supervisor.Supervisor
	log  logx.Logger

	mu       sync.Mutex
	nextID   int
	trackers map[int]*Tracker
}

func NewRegistry(sup *supervisor.Supervisor, opts RegistryOptions, log logx.Logger) *Registry {
	return &Registry{
		opts:     opts,
		sup:      sup,
		log:      log.With(logx.String("comp", "tracker")),
		nextID:   1,
		trackers: make(map[int]*Tracker),
	}
}

// Add registers a server and starts polling it. A positive cfg.ID is kept
// as-is; otherwise the next free id is assigned. Ids are never reused while
// the owner is active.
func (r *Registry) Add(cfg fs22.ServerConfig) (int, error) {
	r.mu.Lock()
	if cfg.ID <= 0 {
		for r.trackers[r.nextID] != nil {
			r.nextID++
		}
		cfg.ID = r.nextID
	}
	if _, ok := r.trackers[cfg.ID]; ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %d", ErrDuplicateServer, cfg.ID)
	}
	r.nextID = max(r.nextID, cfg.ID+1)

	log := r.log.With(logx.Int("server", cfg.ID))
	d := NewDispatcher(log)
	if r.opts.Bind != nil {
		r.opts.Bind(cfg.ID, cfg, d)
	}
	t := newTracker(cfg, r.opts.Provider, d, r.opts.PollInterval, log)
	r.trackers[cfg.ID] = t
	t.start(r.sup)
	r.mu.Unlock()

	log.Info("server registered", logx.String("host", cfg.Host), logx.Int("port", cfg.Port))
	return cfg.ID, nil
}

// Remove stops the tracker, waits for its loop (bounded by ctx) and runs the
// purge hook. The purge runs even when the wait times out.
func (r *Registry) Remove(ctx context.Context, id int) error {
	r.mu.Lock()
	t, ok := r.trackers[id]
	delete(r.trackers, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownServer, id)
	}

	t.stop()
	err := t.wait(ctx)
	if r.opts.Purge != nil {
		r.opts.Purge(id)
	}
	r.log.Info("server removed", logx.Int("server", id), logx.Err(err))
	return err
}

func (r *Registry) Get(id int) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[id]
	return t, ok
}

// Status is a point-in-time view of one tracked server.
type Status struct {
	Config    fs22.ServerConfig
	Snapshot  fs22.Snapshot
	UpdatedAt time.Time
	// Polled is false until the first poll has completed.
	Polled bool
}

// Status reports the last known state of server id.
func (r *Registry) Status(id int) (Status, bool) {
	t, ok := r.Get(id)
	if !ok {
		return Status{}, false
	}
	snap, at, polled := t.Last()
	if !polled {
		snap = fs22.UnknownSnapshot()
	}
	return Status{Config: t.Config(), Snapshot: snap, UpdatedAt: at, Polled: polled}, true
}

// IDs lists registered server ids in ascending order.
func (r *Registry) IDs() []int {
	r.mu.Lock()
	ids := make([]int, 0, len(r.trackers))
	for id := range r.trackers {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Ints(ids)
	return ids
}

// StopAll signals every tracker and waits for them, bounded by ctx.
// Purge hooks are not run; this is the shutdown path.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	list := make([]*Tracker, 0, len(r.trackers))
	for _, t := range r.trackers {
		list = append(list, t)
	}
	r.mu.Unlock()

	for _, t := range list {
		t.stop()
	}
	var errs []error
	for _, t := range list {
		if err := t.wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server %d: %w", t.cfg.ID, err))
		}
	}
	return errors.Join(errs...)
}

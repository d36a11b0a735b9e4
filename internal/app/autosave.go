package app

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "fs22bot/pkg/logx"
)

const autosaveTimeout = 10 * time.Second

// cronLogger routes cron's internal logging into logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Warn("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}

// autosaver periodically persists the stats window on a cron schedule.
type autosaver struct {
	save func(context.Context) error
	log  logx.Logger

	mu    sync.Mutex
	c     *cron.Cron
	spec  string
	tz    string
	entry cron.EntryID
}

func newAutosaver(save func(context.Context) error, log logx.Logger) *autosaver {
	return &autosaver{save: save, log: log.With(logx.String("comp", "autosave"))}
}

// Apply (re)schedules the job. An empty spec disables autosave.
func (a *autosaver) Apply(spec string, loc *time.Location) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.c != nil && spec == a.spec && loc.String() == a.tz {
		return nil
	}
	a.stopLocked()
	if spec == "" {
		a.log.Info("autosave disabled")
		return nil
	}

	cl := cronLogger{log: a.log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := c.AddFunc(spec, a.run)
	if err != nil {
		return err
	}
	c.Start()
	a.c, a.spec, a.tz, a.entry = c, spec, loc.String(), id
	a.log.Info("autosave scheduled", logx.String("spec", spec), logx.String("tz", loc.String()))
	return nil
}

func (a *autosaver) run() {
	ctx, cancel := context.WithTimeout(context.Background(), autosaveTimeout)
	defer cancel()
	start := time.Now()
	if err := a.save(ctx); err != nil {
		a.log.Warn("autosave failed", logx.Err(err))
		return
	}
	a.log.Debug("autosave done", logx.Duration("took", time.Since(start)))
}

// Next reports the next scheduled run, if any.
func (a *autosaver) Next() (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c == nil {
		return time.Time{}, false
	}
	return a.c.Entry(a.entry).Next, true
}

// Stop unschedules the job and waits for a running save, bounded by ctx.
func (a *autosaver) Stop(ctx context.Context) error {
	a.mu.Lock()
	c := a.c
	a.c, a.spec, a.tz, a.entry = nil, "", "", 0
	a.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *autosaver) stopLocked() {
	if a.c != nil {
		a.c.Stop()
		a.c, a.spec, a.tz, a.entry = nil, "", "", 0
	}
}

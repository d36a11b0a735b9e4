package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fs22bot/internal/config"
	"fs22bot/internal/fs22"
	"fs22bot/internal/httpapi"
	"fs22bot/internal/publisher"
	"fs22bot/internal/runtime/supervisor"
	"fs22bot/internal/stats"
	"fs22bot/internal/storage"
	"fs22bot/internal/tracker"
	"fs22bot/internal/transport"
	logx "fs22bot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	root logx.Logger
	log  logx.Logger
	logs *logx.Service

	adapter  transport.Adapter
	store    storage.Store
	provider fs22.Provider

	agg      *stats.Aggregator
	recorder *stats.PlayTimeRecorder
	channels *publisher.Channels
	reporter *publisher.Reporter
	registry *tracker.Registry
	autosave *autosaver
	api      *httpapi.Server

	tracking  trackerSettings
	statsCfg  statsSettings
	applied   *config.Config // owned by Start, then by the reload loop
	startedAt time.Time

	reloadCancel context.CancelFunc
	reloadDone   <-chan struct{}
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.startedAt = time.Now()
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.root.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	a.cfgm.SetLogger(a.root.With(logx.String("comp", "config")))

	a.registry = tracker.NewRegistry(a.sup, tracker.RegistryOptions{
		Provider:     a.provider,
		PollInterval: a.tracking.pollInterval,
		Bind:         a.bind,
		Purge:        a.purge,
	}, a.root)

	a.channels.Start(a.sup)
	a.reporter.Start(a.sup)

	cfg := a.cfgm.Get()
	for _, sc := range cfg.Servers {
		if err := a.addServer(sc); err != nil {
			return err
		}
	}
	applyReports(a.reporter, cfg.StatsReports)
	a.applied = cfg

	if err := a.autosave.Apply(a.statsCfg.autosave, a.statsCfg.loc); err != nil {
		return fmt.Errorf("stats.autosave: %w", err)
	}

	if cfg.HTTP.Enabled {
		a.api = httpapi.New(httpapi.Config{Addr: cfg.HTTP.Addr, Pprof: cfg.HTTP.Pprof}, httpapi.Deps{
			Servers:    a.registry,
			Stats:      a.agg,
			Tasks:      a.sup.Snapshot,
			Publishers: a.publisherStats,
			Started:    a.startedAt,
		}, a.root)
		a.sup.GoRestart("httpapi", a.api.Run, supervisor.WithRestartBackoff(time.Second, time.Minute))
	}

	sub := a.cfgm.Subscribe(8)
	rctx, rcancel := context.WithCancel(a.sup.Context())
	a.reloadCancel = rcancel
	a.reloadDone = a.sup.Go0("config.reload", func(context.Context) { a.reloadLoop(rctx, sub) })
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started",
		logx.Int("servers", len(cfg.Servers)),
		logx.Int("stats_reports", len(cfg.StatsReports)),
		logx.Bool("storage", a.store != nil),
		logx.Bool("http", a.api != nil),
	)
	return nil
}

// bind wires the publishers and the play-time recorder to a new server's
// dispatch table.
func (a *App) bind(serverID int, _ fs22.ServerConfig, d *tracker.Dispatcher) {
	a.channels.Bind(serverID, d)

	observe := func(ev tracker.Event) { a.recorder.ObserveSnapshot(ev.ServerID, ev.Snapshot) }
	d.Subscribe(tracker.KindInitial, observe)
	d.Subscribe(tracker.KindUpdated, observe)
	d.Subscribe(tracker.KindPlayerOffline, func(ev tracker.Event) {
		a.recorder.PlayerLeft(ev.ServerID, ev.Player)
	})
}

func (a *App) purge(serverID int) {
	a.channels.Purge(serverID)
	a.recorder.Forget(serverID)
	if f, ok := a.provider.(interface{ Forget(int) }); ok {
		f.Forget(serverID)
	}
}

// addServer registers the targets first so the Initial event is not dropped.
func (a *App) addServer(sc config.ServerConfig) error {
	applyTargets(a.channels, sc.ID, nil, sc)
	if _, err := a.registry.Add(endpoint(sc)); err != nil {
		a.channels.Purge(sc.ID)
		return fmt.Errorf("server %d: %w", sc.ID, err)
	}
	return nil
}

func (a *App) saveStats(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	a.agg.Advance()
	return a.store.SaveStats(ctx, a.agg.State())
}

func (a *App) publisherStats() []publisher.Stats {
	return append(a.channels.Stats(), a.reporter.Stats())
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))

	if a.sup != nil {
		// A reload must not add servers behind the shutdown.
		a.step(ctx, "config.reload", 10*time.Second, func(c context.Context) error {
			if a.reloadCancel == nil {
				return nil
			}
			a.reloadCancel()
			select {
			case <-a.reloadDone:
				return nil
			case <-c.Done():
				return c.Err()
			}
		})
		// Trackers first so no new events reach the publishers.
		a.step(ctx, "trackers", 5*time.Second, a.registry.StopAll)
		a.step(ctx, "publishers", 50*time.Second, func(c context.Context) error {
			a.channels.Stop()
			a.reporter.Stop()
			return errors.Join(a.channels.Wait(c), a.reporter.Wait(c))
		})
		a.step(ctx, "autosave", 2*time.Second, a.autosave.Stop)
		a.step(ctx, "stats.save", 5*time.Second, a.saveStats)

		a.sup.Cancel()
		a.step(ctx, "supervisor", 5*time.Second, a.sup.Wait)
	}
	a.step(ctx, "storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// step runs one shutdown step with an upper bound so one component can't
// stall the whole stop. The caller's deadline is never extended.
func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error) {
	start := time.Now()
	a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", limit))

	if dl, ok := ctx.Deadline(); ok {
		limit = min(limit, time.Until(dl))
	}
	stepCtx, cancel := context.WithTimeout(ctx, max(limit, 0))
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		took := time.Since(start)
		if took >= 500*time.Millisecond {
			a.log.Info("stop step end", logx.String("name", name), logx.Duration("took", took))
		} else {
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Err(stepCtx.Err()),
			logx.Duration("elapsed", time.Since(start)),
		)
		go func() {
			err := <-done
			a.log.Info("stop step finished after deadline",
				logx.String("name", name),
				logx.Err(err),
				logx.Duration("took", time.Since(start)),
			)
		}()
	}
}

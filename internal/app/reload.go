package app

import (
	"context"
	"strings"
	"time"

	"fs22bot/internal/config"
	logx "fs22bot/pkg/logx"
)

const removeServerTimeout = 10 * time.Second

// restartOnly lists sections that are read once at startup.
var restartOnly = map[string]bool{
	"telegram":   true,
	"storage":    true,
	"http":       true,
	"tracker":    true,
	"publishers": true,
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	defer a.cfgm.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: only the newest config matters.
			for drained := false; !drained; {
				select {
				case newer, ok := <-sub:
					if !ok {
						return
					}
					cfg = newer
				default:
					drained = true
				}
			}
			a.applyConfig(ctx, cfg)
		}
	}
}

// applyConfig moves the running app from the last applied config to next.
func (a *App) applyConfig(ctx context.Context, next *config.Config) {
	prev := a.applied
	sections, attrs, servers := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		a.applied = next
		return
	}
	a.log.Debug("config change summary", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)

	for _, s := range sections {
		if restartOnly[s] {
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	a.logs.Apply(mapLogConfig(next))
	a.applyStats(next)
	a.applyServers(ctx, prev, next, servers)
	applyReports(a.reporter, next.StatsReports)
	a.applied = next

	a.log.Info("config reloaded",
		logx.String("changed", strings.Join(sections, ",")),
		logx.Int("servers", len(next.Servers)),
	)
}

// applyStats resizes the window and reschedules autosave. Report pacing, the
// session cache and the day boundary timezone need a restart.
func (a *App) applyStats(next *config.Config) {
	sset, err := mapStatsConfig(next)
	if err != nil {
		a.log.Warn("invalid stats config; keeping previous", logx.Err(err))
		return
	}
	if sset.window != a.agg.Window() {
		a.log.Info("stats window resized", logx.Int("from", a.agg.Window()), logx.Int("to", sset.window))
		a.agg.Resize(sset.window)
	}
	if err := a.autosave.Apply(sset.autosave, sset.loc); err != nil {
		a.log.Warn("autosave reschedule failed", logx.Err(err))
	}

	prev := a.statsCfg
	if sset.report != prev.report || sset.cache != prev.cache || sset.loc.String() != prev.loc.String() {
		a.log.Warn("stats interval, pace, session cache or timezone changed; restart required")
	}
	a.statsCfg.window, a.statsCfg.autosave = sset.window, sset.autosave
}

// applyServers removes, re-targets and adds servers. A server whose endpoint
// changed is re-registered so its tracker starts from a fresh baseline.
func (a *App) applyServers(ctx context.Context, prev, next *config.Config, ch config.ServerChanges) {
	remove := func(id int) {
		rctx, cancel := context.WithTimeout(ctx, removeServerTimeout)
		defer cancel()
		if err := a.registry.Remove(rctx, id); err != nil {
			a.log.Warn("server remove failed", logx.Int("server", id), logx.Err(err))
		}
	}
	add := func(sc config.ServerConfig) {
		if err := a.addServer(sc); err != nil {
			a.log.Warn("server add failed", logx.Int("server", sc.ID), logx.Err(err))
		}
	}

	for _, id := range ch.Removed {
		remove(id)
	}
	for _, id := range ch.Changed {
		o, _ := prev.Server(id)
		n, _ := next.Server(id)
		if endpoint(o) != endpoint(n) {
			remove(id)
			add(n)
			continue
		}
		if changed := applyTargets(a.channels, id, &o, n); changed > 0 {
			a.log.Info("server targets updated", logx.Int("server", id), logx.Int("channels", changed))
		}
	}
	for _, id := range ch.Added {
		n, _ := next.Server(id)
		add(n)
	}
}

package config

import (
	"reflect"
	"sort"
	"strings"

	logx "fs22bot/pkg/logx"
)

// ServerChanges lists server ids by how they differ between two configs.
type ServerChanges struct {
	Added   []int
	Removed []int
	Changed []int
}

func (c ServerChanges) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// DiffServers compares the server lists by id. A server counts as changed when
// any of its fields (endpoint, labels or targets) differs.
func DiffServers(oldCfg, newCfg *Config) ServerChanges {
	oldM := serversByID(oldCfg)
	newM := serversByID(newCfg)

	var out ServerChanges
	for id, n := range newM {
		o, ok := oldM[id]
		switch {
		case !ok:
			out.Added = append(out.Added, id)
		case !reflect.DeepEqual(o, n):
			out.Changed = append(out.Changed, id)
		}
	}
	for id := range oldM {
		if _, ok := newM[id]; !ok {
			out.Removed = append(out.Removed, id)
		}
	}
	sort.Ints(out.Added)
	sort.Ints(out.Removed)
	sort.Ints(out.Changed)
	return out
}

func serversByID(cfg *Config) map[int]ServerConfig {
	if cfg == nil {
		return map[int]ServerConfig{}
	}
	m := make(map[int]ServerConfig, len(cfg.Servers))
	for _, s := range cfg.Servers {
		m[s.ID] = s
	}
	return m
}

// SummarizeConfigChange returns (1) a compact list of changed sections,
// (2) safe structured attrs for logging (never includes secrets like tokens),
// and (3) the server id changes.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, ServerChanges) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 20)

	// Telegram (never log token)
	if oldCfg.Telegram.Token != newCfg.Telegram.Token ||
		strings.TrimSpace(oldCfg.Telegram.RequestTimeout) != strings.TrimSpace(newCfg.Telegram.RequestTimeout) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", oldCfg.Telegram.Token != newCfg.Telegram.Token),
			logx.String("telegram.request_timeout", strings.TrimSpace(newCfg.Telegram.RequestTimeout)),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	// Storage (persistence). Nil means disabled.
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if s := oldCfg.Storage; s != nil {
		oDriver = strings.TrimSpace(s.Driver)
		oBusy = strings.TrimSpace(s.BusyTimeout)
		oPathSet = strings.TrimSpace(s.Path) != ""
	}
	if s := newCfg.Storage; s != nil {
		nDriver = strings.TrimSpace(s.Driver)
		nBusy = strings.TrimSpace(s.BusyTimeout)
		nPathSet = strings.TrimSpace(s.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
			logx.String("storage.busy_timeout", nBusy),
		)
	}

	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", newCfg.HTTP.Enabled),
			logx.String("http.addr", strings.TrimSpace(newCfg.HTTP.Addr)),
			logx.Bool("http.pprof", newCfg.HTTP.Pprof),
		)
	}

	if oldCfg.Tracker != newCfg.Tracker {
		changed = append(changed, "tracker")
		attrs = append(attrs,
			logx.String("tracker.poll_interval", newCfg.Tracker.PollInterval),
			logx.String("tracker.poll_timeout", newCfg.Tracker.PollTimeout),
		)
	}

	if oldCfg.Publishers != newCfg.Publishers {
		changed = append(changed, "publishers")
		attrs = append(attrs,
			logx.String("publishers.interval", newCfg.Publishers.Interval),
			logx.String("publishers.pace", newCfg.Publishers.Pace),
			logx.String("publishers.summary_cooldown", newCfg.Publishers.SummaryCooldown),
		)
	}

	if oldCfg.Stats != newCfg.Stats {
		changed = append(changed, "stats")
		attrs = append(attrs,
			logx.Int("stats.window_days", newCfg.Stats.WindowDays),
			logx.String("stats.autosave", newCfg.Stats.Autosave),
			logx.String("stats.timezone", newCfg.Stats.Timezone),
		)
	}

	servers := DiffServers(oldCfg, newCfg)
	if !servers.Empty() {
		changed = append(changed, "servers")
		attrs = append(attrs,
			logx.Int("servers.added", len(servers.Added)),
			logx.Int("servers.removed", len(servers.Removed)),
			logx.Int("servers.changed", len(servers.Changed)),
		)
	}

	if !reflect.DeepEqual(oldCfg.StatsReports, newCfg.StatsReports) {
		changed = append(changed, "stats_reports")
		attrs = append(attrs, logx.Int("stats_reports.count", len(newCfg.StatsReports)))
	}

	sort.Strings(changed)
	return changed, attrs, servers
}

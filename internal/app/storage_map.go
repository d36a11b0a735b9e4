package app

import (
	"fmt"
	"strings"
	"time"

	"fs22bot/internal/config"
	"fs22bot/internal/fs22"
	"fs22bot/internal/publisher"
	"fs22bot/internal/stats"
	"fs22bot/internal/storage"
	"fs22bot/internal/tracker"
	logx "fs22bot/pkg/logx"
)

const (
	defaultAutosave   = "@every 5m"
	defaultReqTimeout = 10 * time.Second
)

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			ChatID:     l.Telegram.ChatID,
			ThreadID:   l.Telegram.ThreadID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

type trackerSettings struct {
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func mapTrackerConfig(cfg *config.Config) (trackerSettings, error) {
	var (
		out trackerSettings
		err error
	)
	out.pollInterval, err = config.ParseDurationOrDefault("tracker.poll_interval", cfg.Tracker.PollInterval, tracker.DefaultPollInterval)
	if err != nil {
		return out, err
	}
	out.pollTimeout, err = config.ParseDurationOrDefault("tracker.poll_timeout", cfg.Tracker.PollTimeout, fs22.DefaultPollTimeout)
	return out, err
}

type publisherSettings struct {
	opts     publisher.Options
	cooldown time.Duration
}

func mapPublisherConfig(cfg *config.Config) (publisherSettings, error) {
	var (
		out publisherSettings
		err error
	)
	p := cfg.Publishers
	if out.opts.Interval, err = config.ParseDurationOrDefault("publishers.interval", p.Interval, publisher.DefaultInterval); err != nil {
		return out, err
	}
	if out.opts.Pace, err = config.ParseDurationOrDefault("publishers.pace", p.Pace, publisher.DefaultPace); err != nil {
		return out, err
	}
	out.cooldown, err = config.ParseDurationOrDefault("publishers.summary_cooldown", p.SummaryCooldown, publisher.DefaultSummaryCooldown)
	return out, err
}

type statsSettings struct {
	window   int
	report   publisher.Options
	autosave string // empty when disabled
	loc      *time.Location
	cache    int
}

func mapStatsConfig(cfg *config.Config) (statsSettings, error) {
	s := cfg.Stats
	out := statsSettings{window: s.WindowDays, cache: s.SessionCache, loc: time.Local}
	if out.window <= 0 {
		out.window = stats.DefaultWindowDays
	}

	var err error
	if out.report.Interval, err = config.ParseDurationOrDefault("stats.interval", s.Interval, publisher.DefaultInterval); err != nil {
		return out, err
	}
	if out.report.Pace, err = config.ParseDurationOrDefault("stats.pace", s.Pace, publisher.DefaultReportPace); err != nil {
		return out, err
	}

	switch a := strings.TrimSpace(s.Autosave); {
	case a == "":
		out.autosave = defaultAutosave
	case strings.EqualFold(a, config.AutosaveOff):
	default:
		out.autosave = a
	}

	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return out, fmt.Errorf("stats.timezone: %w", err)
		}
		out.loc = loc
	}
	return out, nil
}

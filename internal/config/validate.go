package config

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// AutosaveOff disables periodic stats saving.
const AutosaveOff = "off"

// Validate checks the config for problems that would only surface at runtime.
// All problems are reported together.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	dur := func(path, raw string) {
		_, err := ParseDurationField(path, raw)
		add(err)
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add(errors.New("telegram.token: required"))
	}
	dur("telegram.request_timeout", cfg.Telegram.RequestTimeout)
	if cfg.Logging.Telegram.Enabled && cfg.Logging.Telegram.ChatID == 0 {
		add(errors.New("logging.telegram.chat_id: required when enabled"))
	}

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			add(fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		dur("storage.busy_timeout", st.BusyTimeout)
	}

	dur("tracker.poll_interval", cfg.Tracker.PollInterval)
	dur("tracker.poll_timeout", cfg.Tracker.PollTimeout)
	dur("publishers.interval", cfg.Publishers.Interval)
	dur("publishers.pace", cfg.Publishers.Pace)
	dur("publishers.summary_cooldown", cfg.Publishers.SummaryCooldown)

	dur("stats.interval", cfg.Stats.Interval)
	dur("stats.pace", cfg.Stats.Pace)
	if cfg.Stats.WindowDays < 0 {
		add(errors.New("stats.window_days: must be >= 0"))
	}
	if cfg.Stats.SessionCache < 0 {
		add(errors.New("stats.session_cache: must be >= 0"))
	}
	if s := strings.TrimSpace(cfg.Stats.Autosave); s != "" && !strings.EqualFold(s, AutosaveOff) {
		if _, err := cron.ParseStandard(s); err != nil {
			add(fmt.Errorf("stats.autosave: %w", err))
		}
	}
	if tz := strings.TrimSpace(cfg.Stats.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			add(fmt.Errorf("stats.timezone: %w", err))
		}
	}

	seen := make(map[int]struct{}, len(cfg.Servers))
	for i, s := range cfg.Servers {
		p := fmt.Sprintf("servers[%d]", i)
		if s.ID <= 0 {
			add(fmt.Errorf("%s.id: must be > 0", p))
		} else if _, dup := seen[s.ID]; dup {
			add(fmt.Errorf("%s.id: duplicate id %d", p, s.ID))
		}
		seen[s.ID] = struct{}{}
		if strings.TrimSpace(s.Host) == "" {
			add(fmt.Errorf("%s.host: required", p))
		}
		if s.Port <= 0 || s.Port > 65535 {
			add(fmt.Errorf("%s.port: out of range", p))
		}
		if strings.TrimSpace(s.APICode) == "" {
			add(fmt.Errorf("%s.api_code: required", p))
		}
		if t := s.Panel; t != nil && (t.ChatID == 0 || t.MessageID == 0) {
			add(fmt.Errorf("%s.panel: chat_id and message_id are required", p))
		}
		if t := s.Presence; t != nil && t.ChatID == 0 {
			add(fmt.Errorf("%s.presence.chat_id: required", p))
		}
		if t := s.Availability; t != nil && t.ChatID == 0 {
			add(fmt.Errorf("%s.availability.chat_id: required", p))
		}
		if t := s.Summary; t != nil {
			if t.ChatID == 0 {
				add(fmt.Errorf("%s.summary.chat_id: required", p))
			}
			if strings.TrimSpace(t.ShortName) == "" {
				add(fmt.Errorf("%s.summary.short_name: required", p))
			}
		}
	}

	for i, r := range cfg.StatsReports {
		p := fmt.Sprintf("stats_reports[%d]", i)
		if r.ChatID == 0 || r.MessageID == 0 {
			add(fmt.Errorf("%s: chat_id and message_id are required", p))
		}
		for _, id := range r.Servers {
			if _, ok := seen[id]; !ok {
				add(fmt.Errorf("%s.servers: unknown server id %d", p, id))
			}
		}
	}

	return errors.Join(errs...)
}

// Validator adapts Validate to the ConfigManager validation hook.
func Validator(_ context.Context, cfg *Config) error { return Validate(cfg) }

// hashBytes returns a stable 64-bit hash of bytes. Empty input returns 0.
func hashBytes(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Storage persists the rolling stats window. Omitted means in-memory only.
	Storage *StorageConfig `json:"storage,omitempty"`
	HTTP    HTTPConfig     `json:"http,omitempty"`

	Tracker    TrackerConfig    `json:"tracker,omitempty"`
	Publishers PublishersConfig `json:"publishers,omitempty"`
	Stats      StatsConfig      `json:"stats,omitempty"`

	Servers      []ServerConfig      `json:"servers"`
	StatsReports []StatsReportConfig `json:"stats_reports,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// RequestTimeout is a Go duration string (e.g. "10s", "2m").
	RequestTimeout string `json:"request_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./fs22bot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// HTTPConfig controls the read-only status API.
//
// Prefer binding to localhost (e.g. "127.0.0.1:8080"); the API has no auth.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8080"
	// Pprof mounts the runtime profiler under /debug.
	Pprof bool `json:"pprof,omitempty"`
}

// TrackerConfig controls status polling. Durations are Go duration strings.
//
// Defaults: poll_interval "5s", poll_timeout "2s".
type TrackerConfig struct {
	PollInterval string `json:"poll_interval,omitempty"`
	PollTimeout  string `json:"poll_timeout,omitempty"`
}

// PublishersConfig controls the per-channel batch publishers.
//
// Defaults: interval "60s", pace "1s", summary_cooldown "6m".
type PublishersConfig struct {
	Interval        string `json:"interval,omitempty"`
	Pace            string `json:"pace,omitempty"`
	SummaryCooldown string `json:"summary_cooldown,omitempty"`
}

// StatsConfig controls the rolling online-time window and the report publisher.
//
// Defaults: window_days 14, interval "60s", pace "3s", autosave "@every 5m",
// timezone Local, session_cache 4096.
type StatsConfig struct {
	WindowDays int    `json:"window_days,omitempty"`
	Interval   string `json:"interval,omitempty"`
	Pace       string `json:"pace,omitempty"`
	// Autosave is a cron spec (robfig/cron standard syntax or "@every 5m").
	// Use "off" to only save on shutdown.
	Autosave     string `json:"autosave,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
	SessionCache int    `json:"session_cache,omitempty"`
}

// ServerConfig describes one tracked FS22 dedicated server and the chat
// targets fed by its events. Every target section is optional.
type ServerConfig struct {
	ID      int    `json:"id"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	APICode string `json:"api_code"`

	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`

	Panel        *MessageTarget `json:"panel,omitempty"`
	Presence     *ChatTarget    `json:"presence,omitempty"`
	Availability *ChatTarget    `json:"availability,omitempty"`
	Summary      *SummaryTarget `json:"summary,omitempty"`
}

type ChatTarget struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`
}

// MessageTarget is an existing message that gets edited in place.
type MessageTarget struct {
	ChatID    int64 `json:"chat_id"`
	ThreadID  int   `json:"thread_id,omitempty"`
	MessageID int   `json:"message_id"`
}

type SummaryTarget struct {
	ChatID    int64  `json:"chat_id"`
	ThreadID  int    `json:"thread_id,omitempty"`
	ShortName string `json:"short_name"`
}

// StatsReportConfig is a message edited with the online-time ranking of the
// listed servers. An empty server list covers every server.
type StatsReportConfig struct {
	ChatID    int64 `json:"chat_id"`
	ThreadID  int   `json:"thread_id,omitempty"`
	MessageID int   `json:"message_id"`
	Servers   []int `json:"servers,omitempty"`
}

// Server returns the configured server with the given id.
func (c *Config) Server(id int) (ServerConfig, bool) {
	if c == nil {
		return ServerConfig{}, false
	}
	for _, s := range c.Servers {
		if s.ID == id {
			return s, true
		}
	}
	return ServerConfig{}, false
}

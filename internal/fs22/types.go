// Package fs22 reads the status feed of Farming Simulator 22 dedicated servers.
package fs22

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// ServerConfig holds what is needed to reach one server's status feed.
type ServerConfig struct {
	ID      int
	Host    string
	Port    int
	APICode string
}

// StatusURL is the XML stats feed of the dedicated server web interface.
func (c ServerConfig) StatusURL() string {
	q := url.Values{"code": {c.APICode}}
	return "http://" + c.hostPort() + "/feed/dedicated-server-stats.xml?" + q.Encode()
}

// ModsURL is the public mod list page of the server.
func (c ServerConfig) ModsURL() string {
	return "http://" + c.hostPort() + "/mods.html"
}

func (c ServerConfig) hostPort() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type OnlineState int

const (
	Unknown OnlineState = iota
	Offline
	Online
)

func (s OnlineState) String() string {
	switch s {
	case Offline:
		return "offline"
	case Online:
		return "online"
	default:
		return "unknown"
	}
}

func (s OnlineState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *OnlineState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unknown":
		*s = Unknown
	case "offline":
		*s = Offline
	case "online":
		*s = Online
	default:
		return fmt.Errorf("fs22: invalid online state %q", b)
	}
	return nil
}

type PlayerStatus struct {
	OnlineMinutes int  `json:"online_minutes"`
	IsAdmin       bool `json:"is_admin"`
}

// Snapshot is the observed state of a server at one poll. Treat as immutable
// once published: Players must not be mutated after the snapshot leaves the tracker.
type Snapshot struct {
	Status     OnlineState             `json:"status"`
	ServerName string                  `json:"server_name"`
	MapName    string                  `json:"map_name"`
	MaxPlayers int                     `json:"max_players"`
	DayTime    int64                   `json:"day_time"` // in-game time of day, milliseconds
	Version    string                  `json:"version"`
	Players    map[string]PlayerStatus `json:"players"`
}

// UnknownSnapshot is what a failed poll degrades to.
func UnknownSnapshot() Snapshot {
	return Snapshot{
		Status:     Unknown,
		ServerName: "Unknown",
		MapName:    "Unknown",
		Version:    "pending",
		Players:    map[string]PlayerStatus{},
	}
}

func (s Snapshot) PlayerCount() int { return len(s.Players) }

// ClockHHMM renders DayTime as an in-game wall clock.
func (s Snapshot) ClockHHMM() string {
	secs := s.DayTime / 1000
	h := (secs / 3600) % 24
	m := (secs / 60) % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Provider fetches one snapshot. Implementations never fail: any error
// collapses into UnknownSnapshot.
type Provider interface {
	Poll(ctx context.Context, cfg ServerConfig) Snapshot
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, cfg ServerConfig) Snapshot

func (f ProviderFunc) Poll(ctx context.Context, cfg ServerConfig) Snapshot { return f(ctx, cfg) }

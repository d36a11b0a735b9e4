package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fs22bot/internal/fs22"
	"fs22bot/internal/publisher"
	"fs22bot/internal/runtime/supervisor"
	"fs22bot/internal/tracker"
	logx "fs22bot/pkg/logx"
)

type playerView struct {
	Name          string `json:"name"`
	OnlineMinutes int    `json:"online_minutes"`
	Admin         bool   `json:"admin,omitempty"`
}

type serverView struct {
	ID         int              `json:"id"`
	Host       string           `json:"host"`
	Port       int              `json:"port"`
	Status     fs22.OnlineState `json:"status"`
	Name       string           `json:"server_name"`
	Map        string           `json:"map"`
	Clock      string           `json:"clock"`
	Version    string           `json:"version"`
	Online     int              `json:"players_online"`
	MaxPlayers int              `json:"max_players"`
	Players    []playerView     `json:"players"`
	ModsURL    string           `json:"mods_url"`
	Polled     bool             `json:"polled"`
	UpdatedAt  time.Time        `json:"updated_at,omitzero"`
}

func newServerView(st tracker.Status) serverView {
	snap := st.Snapshot
	players := make([]playerView, 0, len(snap.Players))
	for name, p := range snap.Players {
		players = append(players, playerView{Name: name, OnlineMinutes: p.OnlineMinutes, Admin: p.IsAdmin})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })
	return serverView{
		ID:         st.Config.ID,
		Host:       st.Config.Host,
		Port:       st.Config.Port,
		Status:     snap.Status,
		Name:       snap.ServerName,
		Map:        snap.MapName,
		Clock:      snap.ClockHHMM(),
		Version:    snap.Version,
		Online:     snap.PlayerCount(),
		MaxPlayers: snap.MaxPlayers,
		Players:    players,
		ModsURL:    st.Config.ModsURL(),
		Polled:     st.Polled,
		UpdatedAt:  st.UpdatedAt,
	}
}

type healthView struct {
	Status        string                 `json:"status"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Servers       int                    `json:"servers"`
	FirstError    string                 `json:"first_error,omitempty"`
	Tasks         []supervisor.TaskStats `json:"tasks,omitempty"`
	Publishers    []publisher.Stats      `json:"publishers,omitempty"`
}

type statsView struct {
	WindowDays int                       `json:"window_days"`
	Servers    []int                     `json:"servers,omitempty"`
	Players    []publisher.PlayerMinutes `json:"players"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	out := healthView{
		Status:        "ok",
		UptimeSeconds: int64(s.deps.Now().Sub(s.deps.Started) / time.Second),
	}
	if s.deps.Servers != nil {
		out.Servers = len(s.deps.Servers.IDs())
	}
	if s.deps.Tasks != nil {
		snap := s.deps.Tasks()
		out.Tasks = snap.Tasks
		if snap.FirstError != "" {
			out.Status = "degraded"
			out.FirstError = snap.FirstError
		}
	}
	if s.deps.Publishers != nil {
		out.Publishers = s.deps.Publishers()
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) listServers(w http.ResponseWriter, _ *http.Request) {
	out := []serverView{}
	if s.deps.Servers != nil {
		for _, id := range s.deps.Servers.IDs() {
			if st, ok := s.deps.Servers.Status(id); ok {
				out = append(out, newServerView(st))
			}
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getServer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid server id")
		return
	}
	if s.deps.Servers == nil {
		s.writeError(w, http.StatusNotFound, "unknown server")
		return
	}
	st, ok := s.deps.Servers.Status(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown server")
		return
	}
	s.writeJSON(w, http.StatusOK, newServerView(st))
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		s.writeError(w, http.StatusServiceUnavailable, "stats disabled")
		return
	}
	ids, err := parseIDs(r.URL.Query().Get("servers"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.deps.Stats.Advance()
	s.writeJSON(w, http.StatusOK, statsView{
		WindowDays: s.deps.Stats.Window(),
		Servers:    ids,
		Players:    publisher.Ranking(s.deps.Stats.Totals(ids)),
	})
}

// parseIDs reads a comma separated id list. Empty input yields nil.
func parseIDs(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid server id %q", strings.TrimSpace(p))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("http response write failed", logx.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

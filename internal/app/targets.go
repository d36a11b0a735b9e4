package app

import (
	"fs22bot/internal/config"
	"fs22bot/internal/fs22"
	"fs22bot/internal/publisher"
	"fs22bot/internal/transport"
)

func endpoint(sc config.ServerConfig) fs22.ServerConfig {
	return fs22.ServerConfig{ID: sc.ID, Host: sc.Host, Port: sc.Port, APICode: sc.APICode}
}

func label(sc config.ServerConfig) publisher.ServerLabel {
	return publisher.ServerLabel{Title: sc.Title, Icon: sc.Icon}
}

func chat(chatID int64, threadID int) transport.ChatTarget {
	return transport.ChatTarget{ChatID: chatID, ThreadID: threadID}
}

// serverTargets is the set of channel targets derived from one server entry.
// Absent sections leave the matching pointer nil.
type serverTargets struct {
	presence     *publisher.PresenceTarget
	availability *publisher.AvailabilityTarget
	panel        *publisher.PanelTarget
	summary      *publisher.SummaryTarget
}

func targetsFor(sc config.ServerConfig) serverTargets {
	var t serverTargets
	if p := sc.Presence; p != nil {
		t.presence = &publisher.PresenceTarget{Chat: chat(p.ChatID, p.ThreadID), Label: label(sc)}
	}
	if a := sc.Availability; a != nil {
		t.availability = &publisher.AvailabilityTarget{Chat: chat(a.ChatID, a.ThreadID), Label: label(sc)}
	}
	if p := sc.Panel; p != nil {
		t.panel = &publisher.PanelTarget{
			Message: transport.MessageRef{ChatID: p.ChatID, ThreadID: p.ThreadID, MessageID: p.MessageID},
			Label:   label(sc),
			Server:  endpoint(sc),
		}
	}
	if s := sc.Summary; s != nil {
		t.summary = &publisher.SummaryTarget{Chat: chat(s.ChatID, s.ThreadID), ShortName: s.ShortName}
	}
	return t
}

type targetSink[C any] interface {
	AddTarget(id int, cfg C)
	RemoveTarget(id int)
}

// syncTarget moves one channel from prev to next. Unchanged targets are left
// alone so their pending entries survive.
func syncTarget[C comparable](p targetSink[C], id int, prev, next *C) bool {
	switch {
	case next == nil && prev == nil:
		return false
	case next == nil:
		p.RemoveTarget(id)
	case prev != nil && *prev == *next:
		return false
	default:
		p.AddTarget(id, *next)
	}
	return true
}

// applyTargets reconciles every channel of server id. prev is nil for a new
// server. It reports how many channels changed.
func applyTargets(ch *publisher.Channels, id int, prev *config.ServerConfig, next config.ServerConfig) int {
	var old serverTargets
	if prev != nil {
		old = targetsFor(*prev)
	}
	cur := targetsFor(next)

	n := 0
	for _, changed := range []bool{
		syncTarget[publisher.PresenceTarget](ch.Presence, id, old.presence, cur.presence),
		syncTarget[publisher.AvailabilityTarget](ch.Availability, id, old.availability, cur.availability),
		syncTarget[publisher.PanelTarget](ch.Panel, id, old.panel, cur.panel),
		syncTarget[publisher.SummaryTarget](ch.Summary, id, old.summary, cur.summary),
	} {
		if changed {
			n++
		}
	}
	return n
}

func reportTarget(r config.StatsReportConfig) publisher.ReportTarget {
	return publisher.ReportTarget{
		Message: transport.MessageRef{ChatID: r.ChatID, ThreadID: r.ThreadID, MessageID: r.MessageID},
		Servers: r.Servers,
	}
}

// applyReports replaces the reporter targets with the configured list.
// Targets are keyed by their 1-based position in the list.
func applyReports(r *publisher.Reporter, reports []config.StatsReportConfig) {
	keep := make(map[int]bool, len(reports))
	for i, rc := range reports {
		id := i + 1
		keep[id] = true
		r.AddTarget(id, reportTarget(rc))
	}
	for _, id := range r.TargetIDs() {
		if !keep[id] {
			r.RemoveTarget(id)
		}
	}
}

package tracker

import (
	"sort"

	"fs22bot/internal/fs22"
)

// Diff returns the events describing the move from prev to next, in emission order:
// departures, status change, arrivals and admin promotions, count change, Updated.
func Diff(serverID int, prev, next fs22.Snapshot) []Event {
	var out []Event

	for _, name := range sortedPlayers(prev) {
		if _, ok := next.Players[name]; !ok {
			out = append(out, Event{Kind: KindPlayerOffline, ServerID: serverID, Player: name})
		}
	}

	if prev.Status != next.Status {
		out = append(out, Event{Kind: KindServerStatusChanged, ServerID: serverID, Snapshot: next})
	}

	for _, name := range sortedPlayers(next) {
		before, existed := prev.Players[name]
		if !existed {
			out = append(out, Event{Kind: KindPlayerOnline, ServerID: serverID, Player: name})
		}
		if next.Players[name].IsAdmin && (!existed || !before.IsAdmin) {
			out = append(out, Event{Kind: KindPlayerAdminPromoted, ServerID: serverID, Player: name})
		}
	}

	if prev.PlayerCount() != next.PlayerCount() {
		out = append(out, Event{Kind: KindPlayerCountChanged, ServerID: serverID, Count: next.PlayerCount()})
	}

	return append(out, Event{Kind: KindUpdated, ServerID: serverID, Snapshot: next})
}

func sortedPlayers(s fs22.Snapshot) []string {
	names := make([]string, 0, len(s.Players))
	for n := range s.Players {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Package tracker polls FS22 servers, diffs consecutive snapshots and emits
// typed events through a per-server dispatch table.
package tracker

import "fs22bot/internal/fs22"

type Kind int

const (
	KindInitial Kind = iota
	KindUpdated
	KindPlayerOnline
	KindPlayerOffline
	KindPlayerAdminPromoted
	KindPlayerCountChanged
	KindServerStatusChanged
)

var kindNames = [...]string{
	KindInitial:             "initial",
	KindUpdated:             "updated",
	KindPlayerOnline:        "player_online",
	KindPlayerOffline:       "player_offline",
	KindPlayerAdminPromoted: "player_admin_promoted",
	KindPlayerCountChanged:  "player_count_changed",
	KindServerStatusChanged: "server_status_changed",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is one observed transition. Which payload field is meaningful depends on Kind:
//
//	Initial, Updated, ServerStatusChanged  Snapshot
//	PlayerOnline, PlayerOffline, PlayerAdminPromoted  Player
//	PlayerCountChanged  Count
type Event struct {
	Kind     Kind
	ServerID int
	Snapshot fs22.Snapshot
	Player   string
	Count    int
}

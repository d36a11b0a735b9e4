package stats

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"fs22bot/internal/fs22"
)

const DefaultSessionCacheSize = 4096

type sessionKey struct {
	serverID int
	player   string
}

// PlayTimeRecorder remembers the session length each player last reported and
// credits it to the aggregator when the player leaves.
type PlayTimeRecorder struct {
	agg      *Aggregator
	sessions *lru.Cache[sessionKey, int]
}

func NewPlayTimeRecorder(agg *Aggregator, size int) (*PlayTimeRecorder, error) {
	if size <= 0 {
		size = DefaultSessionCacheSize
	}
	c, err := lru.New[sessionKey, int](size)
	if err != nil {
		return nil, err
	}
	return &PlayTimeRecorder{agg: agg, sessions: c}, nil
}

// ObserveSnapshot records the session minutes of every player in snap.
func (r *PlayTimeRecorder) ObserveSnapshot(serverID int, snap fs22.Snapshot) {
	for name, p := range snap.Players {
		r.sessions.Add(sessionKey{serverID, name}, p.OnlineMinutes)
	}
}

// PlayerLeft credits the last known session of player, if any.
func (r *PlayTimeRecorder) PlayerLeft(serverID int, player string) {
	k := sessionKey{serverID, player}
	minutes, ok := r.sessions.Get(k)
	if !ok {
		return
	}
	r.sessions.Remove(k)
	if minutes > 0 {
		r.agg.AddOnlineTime(serverID, player, minutes)
	}
}

// Forget drops the sessions of a removed server without crediting them.
func (r *PlayTimeRecorder) Forget(serverID int) {
	for _, k := range r.sessions.Keys() {
		if k.serverID == serverID {
			r.sessions.Remove(k)
		}
	}
}

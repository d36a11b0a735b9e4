package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fs22bot/internal/fs22"
	"fs22bot/internal/transport"
	logx "fs22bot/pkg/logx"
	"fs22bot/pkg/tgui"
)

const DefaultSummaryCooldown = 360 * time.Second

// SummaryState is what a summary title shows.
type SummaryState struct {
	OnlineCount int
	MaxPlayers  int
	State       fs22.OnlineState
}

type summaryUpdateKind int

const (
	summaryFull summaryUpdateKind = iota
	summaryCount
	summaryBootstrap
)

// SummaryUpdate is a pending summary change. Build one with SummaryFromSnapshot,
// SummaryCount or SummaryBootstrap.
type SummaryUpdate struct {
	State SummaryState
	kind  summaryUpdateKind
}

func SummaryFromSnapshot(s fs22.Snapshot) SummaryUpdate {
	return SummaryUpdate{State: SummaryState{OnlineCount: s.PlayerCount(), MaxPlayers: s.MaxPlayers, State: s.Status}}
}

// SummaryCount changes only the player count, on top of whatever is pending or
// applied. With neither it is dropped: the Updated bootstrap that follows in
// the same poll carries the full state.
func SummaryCount(n int) SummaryUpdate {
	return SummaryUpdate{State: SummaryState{OnlineCount: n}, kind: summaryCount}
}

// SummaryBootstrap is taken only when the target has neither applied nor pending state.
func SummaryBootstrap(s fs22.Snapshot) SummaryUpdate {
	u := SummaryFromSnapshot(s)
	u.kind = summaryBootstrap
	return u
}

type SummaryTarget struct {
	Chat      transport.ChatTarget
	ShortName string
}

type applied struct {
	state SummaryState
	at    time.Time
}

// summaryStrategy owns the applied state per target and the cooldown gate.
type summaryStrategy struct {
	sink     transport.Adapter
	cooldown time.Duration

	mu      sync.Mutex
	current map[int]applied
}

func (s *summaryStrategy) currentState(id int) (SummaryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.current[id]
	return c.state, ok
}

func (s *summaryStrategy) Merge(id int, pending []SummaryUpdate, ev SummaryUpdate) []SummaryUpdate {
	switch ev.kind {
	case summaryCount:
		var base SummaryState
		if len(pending) > 0 {
			base = pending[len(pending)-1].State
		} else if cur, ok := s.currentState(id); ok {
			base = cur
		} else {
			return pending
		}
		base.OnlineCount = ev.State.OnlineCount
		// Stays a count so a deferred item put back later can be the base.
		return []SummaryUpdate{{State: base, kind: summaryCount}}
	case summaryBootstrap:
		if len(pending) > 0 {
			return pending
		}
		if _, ok := s.currentState(id); ok {
			return pending
		}
		return []SummaryUpdate{{State: ev.State}}
	default:
		return Replace(pending, ev)
	}
}

func (s *summaryStrategy) Admit(id int, u SummaryUpdate, now time.Time) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.current[id]
	switch {
	case !ok:
		return Apply
	case cur.state == u.State:
		return Discard
	case now.Sub(cur.at) < s.cooldown:
		return Defer
	default:
		return Apply
	}
}

func (s *summaryStrategy) Applied(id int, u SummaryUpdate, now time.Time) {
	s.mu.Lock()
	s.current[id] = applied{state: u.State, at: now}
	s.mu.Unlock()
}

func (s *summaryStrategy) Forget(id int) {
	s.mu.Lock()
	delete(s.current, id)
	s.mu.Unlock()
}

func (s *summaryStrategy) Render(cfg SummaryTarget, u SummaryUpdate) string {
	sign := "🔴"
	if u.State.State == fs22.Online {
		sign = "🟢"
	}
	return tgui.Title(fmt.Sprintf("%s %s: %d/%d", sign, cfg.ShortName, u.State.OnlineCount, u.State.MaxPlayers))
}

func (s *summaryStrategy) Deliver(ctx context.Context, cfg SummaryTarget, text string) error {
	return s.sink.SetTitle(ctx, cfg.Chat, text)
}

// Summary renames a chat to show a server's state at a glance, at most once per cooldown.
type Summary = Publisher[SummaryTarget, SummaryUpdate]

func NewSummary(sink transport.Adapter, cooldown time.Duration, opts Options, log logx.Logger) *Summary {
	if cooldown <= 0 {
		cooldown = DefaultSummaryCooldown
	}
	s := &summaryStrategy{sink: sink, cooldown: cooldown, current: make(map[int]applied)}
	return New[SummaryTarget, SummaryUpdate]("summary", s, opts, log)
}

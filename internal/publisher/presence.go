package publisher

import (
	"context"
	"fmt"

	"fs22bot/internal/transport"
	logx "fs22bot/pkg/logx"
	"fs22bot/pkg/tgui"
)

type PresenceKind int

const (
	PresenceOnline PresenceKind = iota
	PresenceOffline
	PresenceAdmin
)

type PresenceEntry struct {
	Kind   PresenceKind
	Player string
}

// ServerLabel is how a server is named in chat messages.
type ServerLabel struct {
	Title string
	Icon  string
}

func (l ServerLabel) html() tgui.H {
	return tgui.Join(" ", tgui.Esc(l.Icon), tgui.B(l.Title))
}

type PresenceTarget struct {
	Chat  transport.ChatTarget
	Label ServerLabel
}

type presenceStrategy struct {
	sink transport.Adapter
}

func (presenceStrategy) Merge(_ int, pending []PresenceEntry, ev PresenceEntry) []PresenceEntry {
	return Append(pending, ev)
}

func (presenceStrategy) Render(cfg PresenceTarget, e PresenceEntry) string {
	var indicator, status string
	switch e.Kind {
	case PresenceOnline:
		indicator, status = "👤", "now online"
	case PresenceOffline:
		indicator, status = "👋", "no longer online"
	case PresenceAdmin:
		indicator, status = "🎩", "now an admin"
	}
	return fmt.Sprintf("%s %s is %s on %s", indicator, tgui.B(e.Player), status, cfg.Label.html())
}

func (s presenceStrategy) Deliver(ctx context.Context, cfg PresenceTarget, text string) error {
	_, err := s.sink.SendText(ctx, cfg.Chat, text, &transport.SendOptions{ParseMode: tgui.ParseModeHTML, DisablePreview: true})
	return err
}

// Presence announces players joining, leaving and becoming admin, one message per event.
type Presence = Publisher[PresenceTarget, PresenceEntry]

func NewPresence(sink transport.Adapter, opts Options, log logx.Logger) *Presence {
	return New[PresenceTarget, PresenceEntry]("presence", presenceStrategy{sink: sink}, opts, log)
}

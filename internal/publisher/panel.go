package publisher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"fs22bot/internal/fs22"
	"fs22bot/internal/transport"
	logx "fs22bot/pkg/logx"
	"fs22bot/pkg/tgui"
)

type PanelTarget struct {
	Message transport.MessageRef
	Label   ServerLabel
	Server  fs22.ServerConfig
}

type panelStrategy struct {
	sink transport.Adapter
	now  func() time.Time
}

func (panelStrategy) Merge(_ int, pending []fs22.Snapshot, ev fs22.Snapshot) []fs22.Snapshot {
	return Replace(pending, ev)
}

func (s panelStrategy) Render(cfg PanelTarget, snap fs22.Snapshot) string {
	name := snap.ServerName
	if snap.Status != fs22.Online || name == "" {
		name = cfg.Label.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", tgui.Join(" ", tgui.Esc(cfg.Label.Icon), tgui.B(name)))
	fmt.Fprintf(&b, "<b>Map:</b> %s\n", tgui.Esc(snap.MapName))
	fmt.Fprintf(&b, "<b>Status:</b> %s\n", snap.Status)
	fmt.Fprintf(&b, "<b>Server Time:</b> %s\n", snap.ClockHHMM())
	fmt.Fprintf(&b, "<b>Mods Link:</b> %s\n", tgui.Esc(cfg.Server.ModsURL()))
	fmt.Fprintf(&b, "<b>Players Online:</b> %d/%d\n", snap.PlayerCount(), snap.MaxPlayers)
	b.WriteString("<b>Players:</b>")

	if snap.PlayerCount() == 0 {
		b.WriteString(" (none)")
	} else {
		names := make([]string, 0, len(snap.Players))
		for n := range snap.Players {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(&b, "\n - %s (%d min)", tgui.Esc(n), snap.Players[n].OnlineMinutes)
		}
	}
	fmt.Fprintf(&b, "\n\n%s", tgui.I("Last update: "+s.now().Format("2006-01-02 15:04:05")))
	return b.String()
}

func (s panelStrategy) Deliver(ctx context.Context, cfg PanelTarget, text string) error {
	return s.sink.EditText(ctx, cfg.Message, text, &transport.SendOptions{ParseMode: tgui.ParseModeHTML, DisablePreview: true})
}

// Panel keeps one pinned status message per server up to date.
type Panel = Publisher[PanelTarget, fs22.Snapshot]

func NewPanel(sink transport.Adapter, opts Options, log logx.Logger) *Panel {
	opts = opts.withDefaults()
	return New[PanelTarget, fs22.Snapshot]("panel", panelStrategy{sink: sink, now: opts.Clock}, opts, log)
}

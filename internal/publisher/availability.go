package publisher

import (
	"context"

	"fs22bot/internal/fs22"
	"fs22bot/internal/transport"
	logx "fs22bot/pkg/logx"
	"fs22bot/pkg/tgui"
)

type AvailabilityTarget struct {
	Chat  transport.ChatTarget
	Label ServerLabel
}

type availabilityStrategy struct {
	sink transport.Adapter
}

// Merge keeps the latest online/offline state. Unknown is never announced.
func (availabilityStrategy) Merge(_ int, pending []fs22.OnlineState, ev fs22.OnlineState) []fs22.OnlineState {
	if ev == fs22.Unknown {
		return pending
	}
	return Replace(pending, ev)
}

func (availabilityStrategy) Render(cfg AvailabilityTarget, st fs22.OnlineState) string {
	if st == fs22.Online {
		return "🟢 " + cfg.Label.html().String() + " is now online"
	}
	return "🔴 " + cfg.Label.html().String() + " is now offline"
}

func (s availabilityStrategy) Deliver(ctx context.Context, cfg AvailabilityTarget, text string) error {
	_, err := s.sink.SendText(ctx, cfg.Chat, text, &transport.SendOptions{ParseMode: tgui.ParseModeHTML, DisablePreview: true})
	return err
}

// Availability announces a server going online or offline.
type Availability = Publisher[AvailabilityTarget, fs22.OnlineState]

func NewAvailability(sink transport.Adapter, opts Options, log logx.Logger) *Availability {
	return New[AvailabilityTarget, fs22.OnlineState]("availability", availabilityStrategy{sink: sink}, opts, log)
}

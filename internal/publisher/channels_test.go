package publisher

import (
	"context"
	"reflect"
	"testing"

	"fs22bot/internal/fs22"
	"fs22bot/internal/tracker"
	"fs22bot/internal/transport"
	logx "fs22bot/pkg/logx"
)

func TestChannelsBindRoutesEvents(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	sink := &fakeSink{}
	opts := testOptions(clock)
	ch := &Channels{
		Presence:     NewPresence(sink, opts, logx.Nop()),
		Availability: NewAvailability(sink, opts, logx.Nop()),
		Panel:        NewPanel(sink, opts, logx.Nop()),
		Summary:      NewSummary(sink, 0, opts, logx.Nop()),
	}
	chat := transport.ChatTarget{ChatID: 1}
	ch.Presence.AddTarget(7, PresenceTarget{Chat: chat})
	ch.Availability.AddTarget(7, AvailabilityTarget{Chat: chat})
	ch.Panel.AddTarget(7, PanelTarget{Message: transport.MessageRef{ChatID: 1, MessageID: 3}})
	ch.Summary.AddTarget(7, SummaryTarget{Chat: chat, ShortName: "S"})

	d := tracker.NewDispatcher(logx.Nop())
	ch.Bind(7, d)

	prev := fs22.Snapshot{Status: fs22.Offline, Players: map[string]fs22.PlayerStatus{}}
	next := fs22.Snapshot{Status: fs22.Online, MaxPlayers: 4, Players: map[string]fs22.PlayerStatus{"Ann": {IsAdmin: true}}}
	d.Emit(tracker.Event{Kind: tracker.KindInitial, ServerID: 7, Snapshot: prev})
	for _, ev := range tracker.Diff(7, prev, next) {
		d.Emit(ev)
	}

	pending := map[string]int{}
	for _, st := range ch.Stats() {
		pending[st.Name] = st.Pending
	}
	want := map[string]int{"presence": 2, "availability": 1, "panel": 1, "summary": 1}
	if !reflect.DeepEqual(pending, want) {
		t.Fatalf("pending=%v want %v", pending, want)
	}

	ch.Summary.Flush(context.Background())
	if got := sink.texts(); len(got) != 1 || got[0] != "🟢 S: 1/4" {
		t.Fatalf("summary=%q", got)
	}

	ch.Purge(7)
	for _, st := range ch.Stats() {
		if st.Targets != 0 || st.Pending != 0 {
			t.Fatalf("%s not purged: %+v", st.Name, st)
		}
	}
}

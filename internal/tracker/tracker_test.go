package tracker

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"fs22bot/internal/fs22"
	logx "fs22bot/pkg/logx"
)

func snap(status fs22.OnlineState, players map[string]fs22.PlayerStatus) fs22.Snapshot {
	if players == nil {
		players = map[string]fs22.PlayerStatus{}
	}
	return fs22.Snapshot{Status: status, MaxPlayers: 16, Players: players}
}

func kinds(evs []Event) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind.String()
		if ev.Player != "" {
			out[i] += ":" + ev.Player
		}
	}
	return out
}

func TestDiff(t *testing.T) {
	t.Parallel()

	alice := fs22.PlayerStatus{OnlineMinutes: 5}
	aliceAdmin := fs22.PlayerStatus{OnlineMinutes: 5, IsAdmin: true}
	bob := fs22.PlayerStatus{OnlineMinutes: 1}

	tests := []struct {
		name string
		prev fs22.Snapshot
		next fs22.Snapshot
		want []string
	}{
		{
			name: "nothing changed",
			prev: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": alice}),
			next: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": alice}),
			want: []string{"updated"},
		},
		{
			name: "player joins",
			prev: snap(fs22.Online, nil),
			next: snap(fs22.Online, map[string]fs22.PlayerStatus{"Bob": bob}),
			want: []string{"player_online:Bob", "player_count_changed", "updated"},
		},
		{
			name: "admin joins",
			prev: snap(fs22.Online, nil),
			next: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": aliceAdmin}),
			want: []string{"player_online:Alice", "player_admin_promoted:Alice", "player_count_changed", "updated"},
		},
		{
			name: "promoted in place",
			prev: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": alice}),
			next: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": aliceAdmin}),
			want: []string{"player_admin_promoted:Alice", "updated"},
		},
		{
			name: "already admin",
			prev: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": aliceAdmin}),
			next: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": aliceAdmin}),
			want: []string{"updated"},
		},
		{
			name: "swap keeps count",
			prev: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": alice}),
			next: snap(fs22.Online, map[string]fs22.PlayerStatus{"Bob": bob}),
			want: []string{"player_offline:Alice", "player_online:Bob", "updated"},
		},
		{
			name: "server goes away",
			prev: snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": alice, "Bob": bob}),
			next: fs22.UnknownSnapshot(),
			want: []string{"player_offline:Alice", "player_offline:Bob", "server_status_changed", "player_count_changed", "updated"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(Diff(7, tt.prev, tt.next))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Diff=%v\nwant %v", got, tt.want)
			}
		})
	}
}

func TestDiffCarriesPayload(t *testing.T) {
	t.Parallel()

	next := snap(fs22.Offline, nil)
	evs := Diff(3, snap(fs22.Online, map[string]fs22.PlayerStatus{"A": {}}), next)
	for _, ev := range evs {
		if ev.ServerID != 3 {
			t.Fatalf("server id=%d", ev.ServerID)
		}
		switch ev.Kind {
		case KindPlayerCountChanged:
			if ev.Count != 0 {
				t.Fatalf("count=%d", ev.Count)
			}
		case KindServerStatusChanged, KindUpdated:
			if ev.Snapshot.Status != fs22.Offline {
				t.Fatalf("%v carries %v", ev.Kind, ev.Snapshot.Status)
			}
		}
	}
}

type scriptedProvider struct {
	mu    sync.Mutex
	snaps []fs22.Snapshot
	calls int
}

func (p *scriptedProvider) Poll(context.Context, fs22.ServerConfig) fs22.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := min(p.calls, len(p.snaps)-1)
	p.calls++
	return p.snaps[i]
}

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type recorder struct {
	mu  sync.Mutex
	evs []Event
}

func (r *recorder) subscribeAll(d *Dispatcher) {
	for k := KindInitial; k <= KindServerStatusChanged; k++ {
		d.Subscribe(k, r.add)
	}
}

func (r *recorder) add(ev Event) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
}

func (r *recorder) take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.evs
	r.evs = nil
	return out
}

func TestTrackerFirstPollEmitsOnlyInitial(t *testing.T) {
	t.Parallel()

	online := snap(fs22.Online, map[string]fs22.PlayerStatus{"Alice": {OnlineMinutes: 3, IsAdmin: true}})
	p := &scriptedProvider{snaps: []fs22.Snapshot{online, online, fs22.UnknownSnapshot()}}
	d := NewDispatcher(logx.Nop())
	rec := &recorder{}
	rec.subscribeAll(d)
	tr := newTracker(fs22.ServerConfig{ID: 1}, p, d, 0, logx.Nop())

	tr.pollOnce(context.Background())
	if got := kinds(rec.take()); !reflect.DeepEqual(got, []string{"initial"}) {
		t.Fatalf("first poll=%v", got)
	}

	tr.pollOnce(context.Background())
	if got := kinds(rec.take()); !reflect.DeepEqual(got, []string{"updated"}) {
		t.Fatalf("second poll=%v", got)
	}

	tr.pollOnce(context.Background())
	want := []string{"player_offline:Alice", "server_status_changed", "player_count_changed", "updated"}
	if got := kinds(rec.take()); !reflect.DeepEqual(got, want) {
		t.Fatalf("failed poll=%v want %v", got, want)
	}
	last, _, ok := tr.Last()
	if !ok || last.Status != fs22.Unknown {
		t.Fatalf("last=%+v ok=%v", last, ok)
	}
}

func TestTrackerUnreachableAtStartStillInitial(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{snaps: []fs22.Snapshot{fs22.UnknownSnapshot(), snap(fs22.Online, nil)}}
	d := NewDispatcher(logx.Nop())
	rec := &recorder{}
	rec.subscribeAll(d)
	tr := newTracker(fs22.ServerConfig{ID: 1}, p, d, 0, logx.Nop())

	tr.pollOnce(context.Background())
	tr.pollOnce(context.Background())
	want := []string{"initial", "server_status_changed", "updated"}
	if got := kinds(rec.take()); !reflect.DeepEqual(got, want) {
		t.Fatalf("events=%v want %v", got, want)
	}
}

func TestTrackerSkipsEmitAfterCancel(t *testing.T) {
	t.Parallel()

	p := &scriptedProvider{snaps: []fs22.Snapshot{snap(fs22.Online, nil)}}
	d := NewDispatcher(logx.Nop())
	rec := &recorder{}
	rec.subscribeAll(d)
	tr := newTracker(fs22.ServerConfig{ID: 1}, p, d, 0, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr.pollOnce(ctx)
	if evs := rec.take(); len(evs) != 0 {
		t.Fatalf("events after cancel: %v", kinds(evs))
	}
}

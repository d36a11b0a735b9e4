package stats

import (
	"testing"

	"fs22bot/internal/fs22"
)

func TestPlayTimeRecorder(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	agg := newTestAggregator(3, clock)
	rec, err := NewPlayTimeRecorder(agg, 16)
	if err != nil {
		t.Fatal(err)
	}

	rec.ObserveSnapshot(1, fs22.Snapshot{Players: map[string]fs22.PlayerStatus{"Alice": {OnlineMinutes: 10}}})
	rec.ObserveSnapshot(1, fs22.Snapshot{Players: map[string]fs22.PlayerStatus{"Alice": {OnlineMinutes: 25}}})
	rec.ObserveSnapshot(2, fs22.Snapshot{Players: map[string]fs22.PlayerStatus{"Alice": {OnlineMinutes: 4}}})

	rec.PlayerLeft(1, "Alice")
	if got := agg.ServerStats(1)["Alice"]; got != 25 {
		t.Fatalf("server 1 Alice=%d want 25", got)
	}
	rec.PlayerLeft(1, "Alice")
	if got := agg.OnlineTime("Alice"); got != 25 {
		t.Fatalf("double credit: Alice=%d", got)
	}

	rec.Forget(2)
	rec.PlayerLeft(2, "Alice")
	if got := agg.ServerStats(2)["Alice"]; got != 0 {
		t.Fatalf("forgotten session credited: %d", got)
	}

	rec.PlayerLeft(3, "Nobody")
	if got := agg.OnlineTime("Nobody"); got != 0 {
		t.Fatalf("unknown player credited: %d", got)
	}
}

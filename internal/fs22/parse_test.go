package fs22

import (
	"errors"
	"strings"
	"testing"
)

const onlineFeed = `<?xml version="1.0" encoding="utf-8" standalone="no" ?>
<Server game="Farming Simulator 22" version="1.13.1.0" server="" name="Green Acres" mapName="Elmcreek" dayTime="49500000" mapOverviewFilename="" mapSize="2048">
	<Slots capacity="16" numUsed="2">
		<Player isUsed="true" isAdmin="false" uptime="42" x="1" y="2" z="3">Alice</Player>
		<Player isUsed="true" isAdmin="true" uptime="7">Bob</Player>
		<Player isUsed="false" />
		<Player isUsed="false" />
	</Slots>
</Server>`

func TestParseFeedOnline(t *testing.T) {
	t.Parallel()

	snap, err := ParseFeed(strings.NewReader(onlineFeed))
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if snap.Status != Online {
		t.Fatalf("status=%v", snap.Status)
	}
	if snap.ServerName != "Green Acres" || snap.MapName != "Elmcreek" || snap.Version != "1.13.1.0" {
		t.Fatalf("unexpected header fields: %+v", snap)
	}
	if snap.MaxPlayers != 16 {
		t.Fatalf("max players=%d", snap.MaxPlayers)
	}
	if got := snap.ClockHHMM(); got != "13:45" {
		t.Fatalf("clock=%q", got)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("players=%v", snap.Players)
	}
	if p := snap.Players["Alice"]; p.OnlineMinutes != 42 || p.IsAdmin {
		t.Fatalf("Alice=%+v", p)
	}
	if p := snap.Players["Bob"]; p.OnlineMinutes != 7 || !p.IsAdmin {
		t.Fatalf("Bob=%+v", p)
	}
}

func TestParseFeedGameDown(t *testing.T) {
	t.Parallel()

	snap, err := ParseFeed(strings.NewReader(`<Server />`))
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if snap.Status != Offline {
		t.Fatalf("status=%v, want offline", snap.Status)
	}
	if len(snap.Players) != 0 {
		t.Fatalf("players=%v", snap.Players)
	}
}

func TestParseFeedMalformed(t *testing.T) {
	t.Parallel()

	_, err := ParseFeed(strings.NewReader(`<html><body>nope`))
	if !errors.Is(err, ErrMalformedFeed) {
		t.Fatalf("err=%v, want ErrMalformedFeed", err)
	}
}

func TestClockHHMM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dayTime int64
		want    string
	}{
		{0, "00:00"},
		{59_999, "00:00"},
		{60_000, "00:01"},
		{3_600_000 * 23, "23:00"},
		{3_600_000 * 25, "01:00"},
	}
	for _, tt := range tests {
		if got := (Snapshot{DayTime: tt.dayTime}).ClockHHMM(); got != tt.want {
			t.Errorf("ClockHHMM(%d)=%q want %q", tt.dayTime, got, tt.want)
		}
	}
}

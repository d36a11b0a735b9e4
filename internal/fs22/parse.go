package fs22

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrMalformedFeed = errors.New("fs22: malformed status feed")

type xmlServer struct {
	XMLName xml.Name  `xml:"Server"`
	Name    *string   `xml:"name,attr"`
	MapName string    `xml:"mapName,attr"`
	DayTime string    `xml:"dayTime,attr"`
	Version string    `xml:"version,attr"`
	Slots   *xmlSlots `xml:"Slots"`
}

type xmlSlots struct {
	Capacity string      `xml:"capacity,attr"`
	Players  []xmlPlayer `xml:"Player"`
}

type xmlPlayer struct {
	IsUsed  string `xml:"isUsed,attr"`
	IsAdmin string `xml:"isAdmin,attr"`
	Uptime  string `xml:"uptime,attr"`
	Name    string `xml:",chardata"`
}

// ParseFeed decodes the dedicated-server-stats XML.
//
// A Server element without a name attribute means the host answered but the
// game itself is not running; that is reported as Offline, not as an error.
func ParseFeed(r io.Reader) (Snapshot, error) {
	var doc xmlServer
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedFeed, err)
	}

	snap := UnknownSnapshot()
	if doc.Name == nil {
		snap.Status = Offline
		return snap, nil
	}

	snap.Status = Online
	snap.ServerName = *doc.Name
	snap.MapName = doc.MapName
	snap.Version = doc.Version
	snap.DayTime, _ = strconv.ParseInt(strings.TrimSpace(doc.DayTime), 10, 64)
	if doc.Slots == nil {
		return snap, nil
	}
	snap.MaxPlayers, _ = strconv.Atoi(strings.TrimSpace(doc.Slots.Capacity))
	for _, p := range doc.Slots.Players {
		if p.IsUsed != "true" {
			continue
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		uptime, _ := strconv.Atoi(strings.TrimSpace(p.Uptime))
		snap.Players[name] = PlayerStatus{OnlineMinutes: uptime, IsAdmin: p.IsAdmin == "true"}
	}
	return snap, nil
}

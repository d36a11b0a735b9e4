package publisher

import (
	"context"
	"errors"

	"fs22bot/internal/runtime/supervisor"
	"fs22bot/internal/tracker"
)

// Channels groups the event-fed publishers. Server ids double as target ids.
type Channels struct {
	Presence     *Presence
	Availability *Availability
	Panel        *Panel
	Summary      *Summary
}

// Bind subscribes every channel to the dispatch table of one server.
func (c *Channels) Bind(serverID int, d *tracker.Dispatcher) {
	d.Subscribe(tracker.KindPlayerOnline, func(ev tracker.Event) {
		c.Presence.OnEvent(ev.ServerID, PresenceEntry{Kind: PresenceOnline, Player: ev.Player})
	})
	d.Subscribe(tracker.KindPlayerOffline, func(ev tracker.Event) {
		c.Presence.OnEvent(ev.ServerID, PresenceEntry{Kind: PresenceOffline, Player: ev.Player})
	})
	d.Subscribe(tracker.KindPlayerAdminPromoted, func(ev tracker.Event) {
		c.Presence.OnEvent(ev.ServerID, PresenceEntry{Kind: PresenceAdmin, Player: ev.Player})
	})

	d.Subscribe(tracker.KindServerStatusChanged, func(ev tracker.Event) {
		c.Availability.OnEvent(ev.ServerID, ev.Snapshot.Status)
	})

	panel := func(ev tracker.Event) { c.Panel.OnEvent(ev.ServerID, ev.Snapshot) }
	d.Subscribe(tracker.KindInitial, panel)
	d.Subscribe(tracker.KindUpdated, panel)

	d.Subscribe(tracker.KindInitial, func(ev tracker.Event) {
		c.Summary.OnEvent(ev.ServerID, SummaryFromSnapshot(ev.Snapshot))
	})
	d.Subscribe(tracker.KindServerStatusChanged, func(ev tracker.Event) {
		c.Summary.OnEvent(ev.ServerID, SummaryFromSnapshot(ev.Snapshot))
	})
	d.Subscribe(tracker.KindPlayerCountChanged, func(ev tracker.Event) {
		c.Summary.OnEvent(ev.ServerID, SummaryCount(ev.Count))
	})
	d.Subscribe(tracker.KindUpdated, func(ev tracker.Event) {
		c.Summary.OnEvent(ev.ServerID, SummaryBootstrap(ev.Snapshot))
	})
}

// Purge drops every target and pending entry kept for serverID.
func (c *Channels) Purge(serverID int) {
	c.Presence.RemoveTarget(serverID)
	c.Availability.RemoveTarget(serverID)
	c.Panel.RemoveTarget(serverID)
	c.Summary.RemoveTarget(serverID)
}

func (c *Channels) Start(sup *supervisor.Supervisor) {
	c.Presence.Start(sup)
	c.Availability.Start(sup)
	c.Panel.Start(sup)
	c.Summary.Start(sup)
}

// Stop signals every channel without waiting.
func (c *Channels) Stop() {
	c.Presence.Stop()
	c.Availability.Stop()
	c.Panel.Stop()
	c.Summary.Stop()
}

func (c *Channels) Wait(ctx context.Context) error {
	return errors.Join(
		c.Presence.Wait(ctx),
		c.Availability.Wait(ctx),
		c.Panel.Wait(ctx),
		c.Summary.Wait(ctx),
	)
}

func (c *Channels) Stats() []Stats {
	return []Stats{c.Presence.Stats(), c.Availability.Stats(), c.Panel.Stats(), c.Summary.Stats()}
}

// Package stats keeps per-player online time over a trailing window of days.
package stats

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultWindowDays = 14
	dateLayout        = "2006-01-02"
)

var ErrInvalidState = errors.New("stats: invalid state")

// bucket holds one day: server id -> player -> minutes.
type bucket map[int]map[string]int

func (b bucket) add(serverID int, player string, minutes int) {
	m := b[serverID]
	if m == nil {
		m = make(map[string]int)
		b[serverID] = m
	}
	m[player] += minutes
}

func (b bucket) clone() bucket {
	out := make(bucket, len(b))
	for id, players := range b {
		cp := make(map[string]int, len(players))
		for p, v := range players {
			cp[p] = v
		}
		out[id] = cp
	}
	return out
}

// Aggregator is a fixed-size ring of daily buckets; index 0 is today.
// It is safe for concurrent use.
type Aggregator struct {
	now func() time.Time
	loc *time.Location

	mu           sync.Mutex
	days         []bucket
	lastRollover time.Time // UTC midnight of the calendar date; zero when never rolled
}

type Option func(*Aggregator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

// WithLocation sets where calendar days begin. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func NewAggregator(window int, opts ...Option) *Aggregator {
	if window <= 0 {
		window = DefaultWindowDays
	}
	a := &Aggregator{now: time.Now, loc: time.Local, days: newDays(window)}
	for _, o := range opts {
		o(a)
	}
	return a
}

func newDays(n int) []bucket {
	days := make([]bucket, n)
	for i := range days {
		days[i] = bucket{}
	}
	return days
}

func (a *Aggregator) Window() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.days)
}

func (a *Aggregator) today() time.Time {
	y, m, d := a.now().In(a.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// rolloverLocked shifts buckets so that index 0 is today.
func (a *Aggregator) rolloverLocked() {
	today := a.today()
	if a.lastRollover.IsZero() {
		a.lastRollover = today
		return
	}
	elapsed := int(today.Sub(a.lastRollover).Hours() / 24)
	if elapsed <= 0 {
		return
	}
	n := len(a.days)
	shift := min(elapsed, n)
	for i := n - 1; i >= shift; i-- {
		a.days[i] = a.days[i-shift]
	}
	for i := 0; i < shift; i++ {
		a.days[i] = bucket{}
	}
	a.lastRollover = today
}

// AddOnlineTime credits minutes to today's bucket, rolling the window first
// when the calendar day has advanced.
func (a *Aggregator) AddOnlineTime(serverID int, player string, minutes int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rolloverLocked()
	a.days[0].add(serverID, player, minutes)
}

// Advance rolls the window to today without adding anything, so readers do
// not see days that have fallen out of the window.
func (a *Aggregator) Advance() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.lastRollover.IsZero() {
		a.rolloverLocked()
	}
}

// OnlineTime sums a player's minutes over every day and server.
func (a *Aggregator) OnlineTime(player string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, day := range a.days {
		for _, players := range day {
			total += players[player]
		}
	}
	return total
}

// ServerStats sums minutes per player for one server.
func (a *Aggregator) ServerStats(serverID int) map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int)
	for _, day := range a.days {
		for p, v := range day[serverID] {
			out[p] += v
		}
	}
	return out
}

// Totals sums minutes per player across the given servers; no ids means all servers.
func (a *Aggregator) Totals(serverIDs []int) map[string]int {
	var only map[int]bool
	if len(serverIDs) > 0 {
		only = make(map[int]bool, len(serverIDs))
		for _, id := range serverIDs {
			only[id] = true
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int)
	for _, day := range a.days {
		for id, players := range day {
			if only != nil && !only[id] {
				continue
			}
			for p, v := range players {
				out[p] += v
			}
		}
	}
	return out
}

// State is the persisted form of an Aggregator.
type State struct {
	Window       int        `json:"window"`
	LastRollover *string    `json:"last_rollover"`
	Days         []DayState `json:"days"`
}

type DayState struct {
	Servers map[int]map[string]int `json:"servers"`
}

func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := State{Window: len(a.days), Days: make([]DayState, len(a.days))}
	if !a.lastRollover.IsZero() {
		s := a.lastRollover.Format(dateLayout)
		st.LastRollover = &s
	}
	for i, day := range a.days {
		st.Days[i] = DayState{Servers: day.clone()}
	}
	return st
}

// Restore replaces the aggregator contents, window size included.
func (a *Aggregator) Restore(st State) error {
	if st.Window <= 0 || len(st.Days) > st.Window {
		return fmt.Errorf("%w: window=%d days=%d", ErrInvalidState, st.Window, len(st.Days))
	}
	var last time.Time
	if st.LastRollover != nil {
		t, err := time.Parse(dateLayout, *st.LastRollover)
		if err != nil {
			return fmt.Errorf("%w: last_rollover: %v", ErrInvalidState, err)
		}
		last = t
	}
	days := newDays(st.Window)
	for i, d := range st.Days {
		if d.Servers != nil {
			days[i] = bucket(d.Servers).clone()
		}
	}

	a.mu.Lock()
	a.days = days
	a.lastRollover = last
	a.mu.Unlock()
	return nil
}

// Resize changes the window. Shrinking drops the oldest days.
func (a *Aggregator) Resize(window int) {
	if window <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if window == len(a.days) {
		return
	}
	days := newDays(window)
	copy(days, a.days)
	a.days = days
}

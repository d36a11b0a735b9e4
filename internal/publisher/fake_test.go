package publisher

import (
	"context"
	"sync"
	"time"

	"fs22bot/internal/transport"
)

type call struct {
	op   string // send, edit, title
	chat int64
	msg  int
	text string
}

type fakeSink struct {
	mu     sync.Mutex
	calls  []call
	failOn func(text string) error
	hook   func()
}

func (f *fakeSink) record(c call) error {
	if f.hook != nil {
		f.hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.failOn != nil {
		return f.failOn(c.text)
	}
	return nil
}

func (f *fakeSink) SendText(_ context.Context, to transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	err := f.record(call{op: "send", chat: to.ChatID, text: text})
	return transport.MessageRef{ChatID: to.ChatID, MessageID: 1}, err
}

func (f *fakeSink) EditText(_ context.Context, ref transport.MessageRef, text string, _ *transport.SendOptions) error {
	return f.record(call{op: "edit", chat: ref.ChatID, msg: ref.MessageID, text: text})
}

func (f *fakeSink) SetTitle(_ context.Context, to transport.ChatTarget, title string) error {
	return f.record(call{op: "title", chat: to.ChatID, text: title})
}

func (f *fakeSink) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.text
	}
	return out
}

func (f *fakeSink) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testOptions(c *manualClock) Options {
	o := Options{Interval: time.Hour, Pace: time.Nanosecond}
	if c != nil {
		o.Clock = c.Now
	}
	return o
}

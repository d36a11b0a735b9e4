package tracker

import (
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	logx "fs22bot/pkg/logx"
)

type Handler func(Event)

// Token identifies one subscription.
type Token uuid.UUID

func (t Token) String() string { return uuid.UUID(t).String() }

type subscription struct {
	token   Token
	handler Handler
}

// Dispatcher fans events out to handlers subscribed per Kind. Handlers of one
// kind run in subscription order, synchronously on the emitting goroutine.
type Dispatcher struct {
	log logx.Logger

	mu   sync.RWMutex
	subs map[Kind][]subscription
}

func NewDispatcher(log logx.Logger) *Dispatcher {
	return &Dispatcher{log: log, subs: make(map[Kind][]subscription)}
}

func (d *Dispatcher) Subscribe(kind Kind, h Handler) Token {
	tok := Token(uuid.New())
	d.mu.Lock()
	d.subs[kind] = append(d.subs[kind], subscription{token: tok, handler: h})
	d.mu.Unlock()
	return tok
}

// Unsubscribe removes the subscription and reports whether it existed.
func (d *Dispatcher) Unsubscribe(tok Token) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for kind, list := range d.subs {
		for i, s := range list {
			if s.token != tok {
				continue
			}
			next := make([]subscription, 0, len(list)-1)
			next = append(next, list[:i]...)
			d.subs[kind] = append(next, list[i+1:]...)
			return true
		}
	}
	return false
}

// Emit delivers ev to every handler of ev.Kind. A panicking handler is logged
// and does not stop the others.
func (d *Dispatcher) Emit(ev Event) {
	d.mu.RLock()
	list := d.subs[ev.Kind]
	d.mu.RUnlock()

	for _, s := range list {
		d.call(s.handler, ev)
	}
}

func (d *Dispatcher) call(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event handler panicked",
				logx.String("kind", ev.Kind.String()),
				logx.Int("server", ev.ServerID),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
		}
	}()
	h(ev)
}

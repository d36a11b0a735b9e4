package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fs22bot/internal/fs22"
	"fs22bot/internal/runtime/supervisor"
	logx "fs22bot/pkg/logx"
)

func newTestRegistry(t *testing.T, opts RegistryOptions) *Registry {
	t.Helper()
	sup := supervisor.New(context.Background())
	t.Cleanup(sup.Cancel)
	if opts.Provider == nil {
		opts.Provider = fs22.ProviderFunc(func(context.Context, fs22.ServerConfig) fs22.Snapshot {
			return fs22.UnknownSnapshot()
		})
	}
	return NewRegistry(sup, opts, logx.Nop())
}

func TestRegistryAssignsIDs(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, RegistryOptions{PollInterval: time.Hour})

	id1, err := r.Add(fs22.ServerConfig{Host: "a"})
	if err != nil || id1 != 1 {
		t.Fatalf("Add=%d,%v", id1, err)
	}
	id5, err := r.Add(fs22.ServerConfig{ID: 5, Host: "b"})
	if err != nil || id5 != 5 {
		t.Fatalf("Add explicit=%d,%v", id5, err)
	}
	id6, _ := r.Add(fs22.ServerConfig{Host: "c"})
	if id6 != 6 {
		t.Fatalf("next id=%d want 6", id6)
	}
	if _, err := r.Add(fs22.ServerConfig{ID: 5}); !errors.Is(err, ErrDuplicateServer) {
		t.Fatalf("duplicate err=%v", err)
	}
	if got := r.IDs(); len(got) != 3 || got[0] != 1 || got[2] != 6 {
		t.Fatalf("IDs=%v", got)
	}
}

func TestRegistryBindAndRemove(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		initial = make(chan int, 1)
		purged  []int
	)
	r := newTestRegistry(t, RegistryOptions{
		PollInterval: 5 * time.Millisecond,
		Bind: func(id int, _ fs22.ServerConfig, d *Dispatcher) {
			d.Subscribe(KindInitial, func(ev Event) { initial <- ev.ServerID })
		},
		Purge: func(id int) {
			mu.Lock()
			purged = append(purged, id)
			mu.Unlock()
		},
	})

	id, err := r.Add(fs22.ServerConfig{Host: "a"})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-initial:
		if got != id {
			t.Fatalf("initial for %d, want %d", got, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no Initial event")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := r.Get(id); ok {
		t.Fatal("tracker still registered")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(purged) != 1 || purged[0] != id {
		t.Fatalf("purged=%v", purged)
	}
	if err := r.Remove(ctx, id); !errors.Is(err, ErrUnknownServer) {
		t.Fatalf("second Remove err=%v", err)
	}
}

func TestRegistryStopAll(t *testing.T) {
	t.Parallel()
	r := newTestRegistry(t, RegistryOptions{PollInterval: 5 * time.Millisecond})
	for i := 0; i < 3; i++ {
		if _, err := r.Add(fs22.ServerConfig{}); err != nil {
			t.Fatal(err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
}

func TestRegistryStatus(t *testing.T) {
	t.Parallel()

	polled := make(chan struct{}, 1)
	r := newTestRegistry(t, RegistryOptions{
		PollInterval: time.Hour,
		Provider: fs22.ProviderFunc(func(context.Context, fs22.ServerConfig) fs22.Snapshot {
			return fs22.Snapshot{Status: fs22.Online, ServerName: "Farm", MaxPlayers: 4, Players: map[string]fs22.PlayerStatus{"anna": {OnlineMinutes: 3}}}
		}),
		Bind: func(_ int, _ fs22.ServerConfig, d *Dispatcher) {
			d.Subscribe(KindInitial, func(Event) { polled <- struct{}{} })
		},
	})

	if _, ok := r.Status(1); ok {
		t.Fatal("status for unregistered server")
	}
	id, err := r.Add(fs22.ServerConfig{Host: "a", Port: 8080})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-polled:
	case <-time.After(2 * time.Second):
		t.Fatal("no poll")
	}

	st, ok := r.Status(id)
	if !ok || !st.Polled {
		t.Fatalf("status=%+v ok=%v", st, ok)
	}
	if st.Config.Port != 8080 || st.Snapshot.ServerName != "Farm" || st.Snapshot.PlayerCount() != 1 {
		t.Fatalf("status=%+v", st)
	}
	if st.UpdatedAt.IsZero() {
		t.Fatal("missing update time")
	}
}

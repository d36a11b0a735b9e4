package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"fs22bot/internal/stats"
	logx "fs22bot/pkg/logx"
)

func sampleState(t *testing.T) stats.State {
	t.Helper()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	agg := stats.NewAggregator(3, stats.WithClock(func() time.Time { return now }), stats.WithLocation(time.UTC))
	agg.AddOnlineTime(1, "Alice", 30)
	now = now.AddDate(0, 0, 1)
	agg.AddOnlineTime(1, "Alice", 5)
	agg.AddOnlineTime(2, "Bob", 12)
	return agg.State()
}

func TestStoresRoundTrip(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			cfg := Config{Driver: driver, Path: filepath.Join(t.TempDir(), "nested", "stats.db"), BusyTimeout: time.Second}

			st, err := Open(cfg, logx.Nop())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer st.Close()

			if _, ok, err := st.LoadStats(ctx); err != nil || ok {
				t.Fatalf("empty LoadStats ok=%v err=%v", ok, err)
			}

			want := sampleState(t)
			if err := st.SaveStats(ctx, want); err != nil {
				t.Fatalf("SaveStats: %v", err)
			}
			// A second save must replace, not merge.
			if err := st.SaveStats(ctx, want); err != nil {
				t.Fatalf("SaveStats again: %v", err)
			}

			got, ok, err := st.LoadStats(ctx)
			if err != nil || !ok {
				t.Fatalf("LoadStats ok=%v err=%v", ok, err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestOpenDisabledAndUnknown(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Driver: "none"}, logx.Nop())
	if st != nil || err != nil {
		t.Fatalf("disabled store=%v err=%v", st, err)
	}
	if _, err := Open(Config{Driver: "etcd", Path: "x"}, logx.Nop()); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err=%v", err)
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestFileStoreClosed(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "s.json")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	_ = st.Close()
	if err := st.SaveStats(context.Background(), stats.State{Window: 1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err=%v", err)
	}
}

package publisher

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"fs22bot/internal/transport"
	logx "fs22bot/pkg/logx"
)

type fakeStats struct {
	advanced int
	byServer map[int]map[string]int
}

func (f *fakeStats) Advance()    { f.advanced++ }
func (f *fakeStats) Window() int { return 14 }

func (f *fakeStats) Totals(ids []int) map[string]int {
	out := map[string]int{}
	for id, players := range f.byServer {
		if len(ids) > 0 && !containsInt(ids, id) {
			continue
		}
		for p, m := range players {
			out[p] += m
		}
	}
	return out
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func TestRanking(t *testing.T) {
	t.Parallel()

	got := Ranking(map[string]int{"b": 5, "a": 5, "c": 9, "d": 1})
	want := []PlayerMinutes{{"c", 9}, {"a", 5}, {"b", 5}, {"d", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Ranking=%v want %v", got, want)
	}
}

func TestReporterRefreshesEveryTick(t *testing.T) {
	t.Parallel()

	src := &fakeStats{byServer: map[int]map[string]int{
		1: {"Alice": 30, "Bob": 10},
		2: {"Bob": 50},
	}}
	sink := &fakeSink{}
	r := NewReporter(src, sink, testOptions(newManualClock()), logx.Nop())
	r.AddTarget(0, ReportTarget{Message: transport.MessageRef{ChatID: 1, MessageID: 2}, Servers: []int{1}})

	r.Flush(context.Background())
	r.Flush(context.Background())
	texts := sink.texts()
	if len(texts) != 2 {
		t.Fatalf("edits=%d want 2 (no suppression)", len(texts))
	}
	if src.advanced != 2 {
		t.Fatalf("advanced=%d", src.advanced)
	}
	text := texts[0]
	if !strings.Contains(text, "Online times within the last 14 days:") {
		t.Fatalf("missing header:\n%s", text)
	}
	ia, ib := strings.Index(text, "<b>Alice</b>: 30 minutes"), strings.Index(text, "<b>Bob</b>: 10 minutes")
	if ia < 0 || ib < 0 || ia > ib {
		t.Fatalf("bad ranking:\n%s", text)
	}
	if strings.Contains(text, "50") {
		t.Fatalf("server filter ignored:\n%s", text)
	}
}

func TestReporterNoTargetsNoWork(t *testing.T) {
	t.Parallel()

	src := &fakeStats{}
	r := NewReporter(src, &fakeSink{}, testOptions(nil), logx.Nop())
	r.Flush(context.Background())
	if src.advanced != 0 {
		t.Fatal("source touched without targets")
	}
	r.AddTarget(4, ReportTarget{})
	r.RemoveTarget(4)
	if _, ok := r.Target(4); ok {
		t.Fatal("target not removed")
	}
}

func TestReporterLogsAbortedPacing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := &fakeSink{}
	r := NewReporter(&fakeStats{}, sink, testOptions(newManualClock()), logx.NewWriter(&buf, "debug"))
	r.AddTarget(3, ReportTarget{Message: transport.MessageRef{ChatID: 1, MessageID: 2}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Flush(ctx)

	if got := sink.texts(); len(got) != 0 {
		t.Fatalf("edits after cancel: %q", got)
	}
	if st := r.Stats(); st.Failed != 1 {
		t.Fatalf("failed=%d want 1", st.Failed)
	}
	if out := buf.String(); !strings.Contains(out, "pacing aborted") || !strings.Contains(out, `"target":3`) {
		t.Fatalf("missing warn record:\n%s", out)
	}
}

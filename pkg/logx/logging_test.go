package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fs22bot/internal/transport"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestWriterLoggerFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "tracker"), Int("server", 1))
	log.Debug("poll", Bool("ok", true), Duration("took", 2*time.Second), Err(nil))
	log.Trace("hidden")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	m := lines[0]
	if m["message"] != "poll" || m["level"] != "debug" || m["comp"] != "tracker" {
		t.Fatalf("unexpected record: %v", m)
	}
	if m["server"] != float64(1) || m["ok"] != true {
		t.Fatalf("unexpected fields: %v", m)
	}
	if _, ok := m["error"]; ok {
		t.Fatal("Err(nil) should not add a field")
	}
	if c, _ := m["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller = %q", c)
	}
}

func TestWithDoesNotAlias(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := NewWriter(&buf, "info").With(String("a", "1"))
	x := base.With(String("b", "x"))
	y := base.With(String("b", "y"))
	x.Info("x")
	y.Info("y")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 || lines[0]["b"] != "x" || lines[1]["b"] != "y" {
		t.Fatalf("unexpected records: %v", lines)
	}
}

func TestZeroAndNopLoggers(t *testing.T) {
	t.Parallel()

	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero logger should report IsZero")
	}
	zero.Error("dropped", Err(errors.New("x")))
	Nop().With(String("k", "v")).Warn("dropped")
	if Nop().Enabled(LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{" DEBUG ", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatChatRecord(t *testing.T) {
	t.Parallel()

	rec := `{"level":"warn","time":"x","message":"delivery failed","target":3,"err":"boom"}`
	got := formatChatRecord([]byte(rec))
	want := "[WARN] delivery failed\n- err=boom\n- target=3"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	if got := formatChatRecord([]byte("not json")); got != "not json" {
		t.Fatalf("raw fallback = %q", got)
	}
	if got := truncate(strings.Repeat("a", 20), 12); got != "aaaaaaaaa..." {
		t.Fatalf("truncate = %q", got)
	}
}

type chanSender chan string

func (c chanSender) SendText(_ context.Context, _ transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	c <- text
	return transport.MessageRef{}, nil
}

func TestServiceChatSink(t *testing.T) {
	svc, log := New(Config{
		Level: "debug",
		Telegram: TelegramConfig{
			Enabled:    true,
			ChatID:     -100,
			MinLevel:   "warn",
			RatePerSec: 100,
		},
	})
	defer svc.Close()

	sent := make(chanSender, 4)
	svc.SetSender(sent)

	log.Info("quiet")
	log.Warn("loud", String("server", "farm"))

	select {
	case msg := <-sent:
		if !strings.HasPrefix(msg, "[WARN] loud") || !strings.Contains(msg, "- server=farm") {
			t.Fatalf("unexpected chat message %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("warn record was not forwarded")
	}
	select {
	case msg := <-sent:
		t.Fatalf("unexpected extra message %q", msg)
	case <-time.After(50 * time.Millisecond):
	}

	svc.Apply(Config{Level: "debug", Telegram: TelegramConfig{Enabled: true, ChatID: -100, MinLevel: "error", RatePerSec: 100}})
	log.Warn("now below threshold")
	select {
	case msg := <-sent:
		t.Fatalf("unexpected message after Apply %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

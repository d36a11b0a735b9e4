package adapter

import (
	"strings"
	"testing"
)

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		limit     int
		parseMode string
		wantN     int
	}{
		{name: "short", in: "hello", limit: 10, wantN: 1},
		{name: "exact", in: strings.Repeat("a", 10), limit: 10, wantN: 1},
		{name: "hard cut", in: strings.Repeat("a", 25), limit: 10, wantN: 3},
		{name: "newline cut", in: "aaaaaa\nbbbbbb\ncccccc", limit: 10, wantN: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitTelegramText(tt.in, tt.limit, tt.parseMode)
			if len(got) != tt.wantN {
				t.Fatalf("chunks=%d want %d: %q", len(got), tt.wantN, got)
			}
			for _, c := range got {
				if n := len([]rune(c)); n > tt.limit {
					t.Fatalf("chunk too long (%d): %q", n, c)
				}
			}
		})
	}
}

func TestSplitTelegramTextKeepsHTMLTags(t *testing.T) {
	t.Parallel()

	in := strings.Repeat("x", 8) + "<b>bold</b>"
	got := splitTelegramText(in, 10, "HTML")
	if got[0] != strings.Repeat("x", 8) {
		t.Fatalf("first chunk=%q, want tag moved to next chunk", got[0])
	}
	if !strings.HasPrefix(got[1], "<b>") {
		t.Fatalf("second chunk=%q", got[1])
	}
}

func TestIsNotModified(t *testing.T) {
	t.Parallel()

	if !isNotModified(errString("telegram: Bad Request: message is not modified (400)")) {
		t.Fatal("expected not-modified match")
	}
	if isNotModified(errString("telegram: Forbidden (403)")) {
		t.Fatal("unexpected match")
	}
}

type errString string

func (e errString) Error() string { return string(e) }

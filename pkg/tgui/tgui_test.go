package tgui

import "testing"

func TestEscAndFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  H
		want string
	}{
		{"esc", Esc(`<a & "b">`), "&lt;a &amp; &#34;b&#34;&gt;"},
		{"bold", B("Tom & Jerry"), "<b>Tom &amp; Jerry</b>"},
		{"italic", I("x<y"), "<i>x&lt;y</i>"},
		{"code", Code("1.0"), "<code>1.0</code>"},
		{"join skips blanks", Join(" ", B("a"), Raw(" "), B("b")), "<b>a</b> <b>b</b>"},
		{"join empty", Join(","), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.got.String() != tt.want {
				t.Fatalf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"🟢🟢🟢", 2, "🟢…"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("TruncRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

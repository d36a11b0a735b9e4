package tgui

import "unicode/utf8"

// TruncRunes returns s truncated to at most n runes, the last of which is
// an ellipsis "…" when truncated.
func TruncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut, count := 0, 0
	for i := range s {
		if count == n-1 {
			cut = i
			break
		}
		count++
	}
	return s[:cut] + "…"
}

// Title fits s into a chat title.
func Title(s string) string { return TruncRunes(s, MaxTitleRunes) }

package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitTextShortUnchanged(t *testing.T) {
	t.Parallel()
	got := splitText("hello", 10, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitTextRespectsLimit(t *testing.T) {
	t.Parallel()
	s := strings.Repeat("дедлайн ", 100)
	got := splitText(s, 64, "")
	if len(got) < 2 {
		t.Fatalf("expected several chunks, got %d", len(got))
	}
	total := 0
	for _, c := range got {
		if n := utf8.RuneCountInString(c); n > 64 {
			t.Fatalf("chunk too long: %d", n)
		}
		total += utf8.RuneCountInString(c)
	}
	if total != utf8.RuneCountInString(s) {
		t.Fatalf("runes lost: %d vs %d", total, utf8.RuneCountInString(s))
	}
}

func TestSplitTextPrefersNewline(t *testing.T) {
	t.Parallel()
	s := strings.Repeat("a", 30) + "\n" + strings.Repeat("b", 30)
	got := splitText(s, 40, "")
	if len(got) != 2 || got[0] != strings.Repeat("a", 30) || got[1] != strings.Repeat("b", 30) {
		t.Fatalf("got %q", got)
	}
}

func TestSplitTextAvoidsHTMLTag(t *testing.T) {
	t.Parallel()
	s := strings.Repeat("x", 18) + "<b>bold</b>" + strings.Repeat("y", 20)
	got := splitText(s, 20, "HTML")
	if !strings.HasSuffix(got[0], "x") || !strings.HasPrefix(got[1], "<b>") {
		t.Fatalf("split inside tag: %q", got)
	}
}

package tgui

import "testing"

func TestHTMLHelpersEscape(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		got  H
		want string
	}{
		{"esc", Esc(`a<b>&"c"`), "a&lt;b&gt;&amp;&#34;c&#34;"},
		{"bold", B("x<y"), "<b>x&lt;y</b>"},
		{"italic", I("a&b"), "<i>a&amp;b</i>"},
		{"raw", Raw("<b>ok</b>"), "<b>ok</b>"},
		{"join skips blanks", JoinH(" ", Raw("🔔"), Raw(" "), B("Reminder")), "🔔 <b>Reminder</b>"},
		{"join empty", JoinH(", "), ""},
		{"lines keep blanks", Lines(Raw("a"), "", Raw("b")), "a\n\nb"},
	}
	for _, tt := range tests {
		if tt.got.String() != tt.want {
			t.Fatalf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
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
		{"hello", 3, "hel…"},
		{"привет", 2, "пр…"},
		{"abc", 0, ""},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := TruncRunes(tt.in, tt.n); got != tt.want {
			t.Fatalf("TruncRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

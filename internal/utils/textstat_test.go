package utils

import (
	"strings"
	"testing"
)

func TestChecksum(t *testing.T) {
	// Known sha256 of "hello"
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got := Checksum("hello"); got != want {
		t.Errorf("Checksum(\"hello\") = %q, want %q", got, want)
	}

	if Checksum("a") == Checksum("b") {
		t.Error("different content must produce different checksums")
	}
	if Checksum("same") != Checksum("same") {
		t.Error("checksum must be deterministic")
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "one word", text: "hello", want: 2},         // ceil(1.3)
		{name: "ten words", text: words(10), want: 13},     // exact
		{name: "hundred words", text: words(100), want: 130},
		{name: "whitespace only", text: "   \n\t ", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.want {
				t.Errorf("EstimateTokens = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEstimateTokensAdditive(t *testing.T) {
	// The estimate must be a pure function of word count so per-line word
	// counts can be summed during chunking.
	a, b := words(7), words(11)
	if EstimateTokens(a+" "+b) != EstimateTokens(words(18)) {
		t.Error("estimate should depend only on total word count")
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     int
	}{
		{name: "plain text", markdown: "one two three", want: 3},
		{name: "headings stripped", markdown: "# Title\n\nbody text", want: 3},
		{name: "bold and italic markers stripped", markdown: "**bold** and *italic*", want: 3},
		{name: "code block removed", markdown: "before\n```\ncode in block\n```\nafter", want: 2},
		{name: "list markers stripped", markdown: "- first\n- second", want: 2},
		{name: "empty", markdown: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.markdown); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.markdown, got, tt.want)
			}
		})
	}
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

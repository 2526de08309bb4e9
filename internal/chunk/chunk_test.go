package chunk

import (
	"strings"
	"testing"
)

func TestClampBudget(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "zero uses default", in: 0, want: DefaultTokens},
		{name: "negative uses default", in: -5, want: DefaultTokens},
		{name: "below minimum clamps up", in: 10, want: MinTokens},
		{name: "above maximum clamps down", in: 100000, want: MaxTokens},
		{name: "in range passes through", in: 512, want: 512},
		{name: "exact minimum", in: MinTokens, want: MinTokens},
		{name: "exact maximum", in: MaxTokens, want: MaxTokens},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampBudget(tt.in); got != tt.want {
				t.Errorf("ClampBudget(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitEmptyBody(t *testing.T) {
	chunks := Split("", 512)
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty body, got %d", len(chunks))
	}
}

func TestSplitConcatenationRoundTrip(t *testing.T) {
	bodies := map[string]string{
		"no trailing newline": "# Title\n\nSome text here.\nMore text.",
		"trailing newline":    "# Title\n\nSome text here.\n",
		"single line":         "just one line",
		"blank lines":         "a\n\n\nb\n",
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			chunks := Split(body, MinTokens)
			var b strings.Builder
			for _, c := range chunks {
				b.WriteString(c.Text)
			}
			if b.String() != body {
				t.Errorf("concatenated chunks do not reproduce body:\ngot  %q\nwant %q", b.String(), body)
			}
		})
	}
}

func TestSplitHeadingPath(t *testing.T) {
	body := strings.Join([]string{
		"intro before any heading",
		"# Alpha",
		wordLine(200),
		"## Beta",
		wordLine(200),
		"## Gamma",
		wordLine(200),
		"# Delta",
		wordLine(200),
	}, "\n")

	chunks := Split(body, MinTokens)
	if len(chunks) < 5 {
		t.Fatalf("expected at least 5 chunks, got %d", len(chunks))
	}

	// The first chunk predates any heading
	if len(chunks[0].HeadingPath) != 0 {
		t.Errorf("first chunk heading path = %v, want empty", chunks[0].HeadingPath)
	}

	wantPaths := map[string][]string{
		"Beta":  {"Alpha", "Beta"},
		"Gamma": {"Alpha", "Gamma"},
		"Delta": {"Delta"},
	}
	for leaf, want := range wantPaths {
		found := false
		for _, c := range chunks {
			if len(c.HeadingPath) > 0 && c.HeadingPath[len(c.HeadingPath)-1] == leaf {
				found = true
				if len(c.HeadingPath) != len(want) {
					t.Errorf("chunk under %q has path %v, want %v", leaf, c.HeadingPath, want)
					break
				}
				for i := range want {
					if c.HeadingPath[i] != want[i] {
						t.Errorf("chunk under %q has path %v, want %v", leaf, c.HeadingPath, want)
						break
					}
				}
				break
			}
		}
		if !found {
			t.Errorf("no chunk found under heading %q", leaf)
		}
	}
}

func TestSplitBudgetRespected(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, wordLine(20))
	}
	body := strings.Join(lines, "\n")

	chunks := Split(body, MinTokens)
	if len(chunks) < 2 {
		t.Fatalf("expected body to split into multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.TokenCount > MinTokens {
			t.Errorf("chunk %d exceeds budget: %d tokens (lines %d-%d)", c.Index, c.TokenCount, c.StartLine, c.EndLine)
		}
	}
}

func TestSplitOversizedLine(t *testing.T) {
	// A single line far over the budget becomes its own chunk rather than
	// being split mid-line.
	body := "short line\n" + wordLine(500) + "\nanother short line"

	chunks := Split(body, MinTokens)

	oversized := 0
	for _, c := range chunks {
		if c.TokenCount > MinTokens {
			oversized++
			if c.StartLine != c.EndLine {
				t.Errorf("oversized chunk spans lines %d-%d, want a single line", c.StartLine, c.EndLine)
			}
		}
	}
	if oversized != 1 {
		t.Errorf("expected exactly one oversized chunk, got %d", oversized)
	}

	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Text)
	}
	if b.String() != body {
		t.Error("concatenated chunks do not reproduce body")
	}
}

func TestSplitLineNumbersAndIndexes(t *testing.T) {
	body := "a\nb\nc\n"
	chunks := Split(body, MaxTokens)
	if len(chunks) != 1 {
		t.Fatalf("tiny body should be one chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Index != 0 || c.StartLine != 1 || c.EndLine != 3 {
		t.Errorf("got index=%d start=%d end=%d, want 0/1/3", c.Index, c.StartLine, c.EndLine)
	}

	// Consecutive chunks cover contiguous line ranges
	var lines []string
	for i := 0; i < 60; i++ {
		lines = append(lines, wordLine(20))
	}
	chunks = Split(strings.Join(lines, "\n"), MinTokens)
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Index != i {
			t.Errorf("chunk %d has index %d", i, chunks[i].Index)
		}
		if chunks[i].StartLine != chunks[i-1].EndLine+1 {
			t.Errorf("chunk %d starts at line %d, previous ended at %d", i, chunks[i].StartLine, chunks[i-1].EndLine)
		}
	}
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantLevel int
		wantText  string
		wantOK    bool
	}{
		{name: "h1", line: "# Title\n", wantLevel: 1, wantText: "Title", wantOK: true},
		{name: "h3", line: "### Deep Section", wantLevel: 3, wantText: "Deep Section", wantOK: true},
		{name: "h6", line: "###### Leaf", wantLevel: 6, wantText: "Leaf", wantOK: true},
		{name: "seven hashes is not a heading", line: "####### nope", wantOK: false},
		{name: "no space after hashes", line: "#hashtag", wantOK: false},
		{name: "indented heading", line: "  ## Indented", wantLevel: 2, wantText: "Indented", wantOK: true},
		{name: "plain text", line: "not a heading", wantOK: false},
		{name: "bare hashes", line: "##\n", wantLevel: 2, wantText: "", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, text, ok := parseHeading(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("parseHeading(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if level != tt.wantLevel || text != tt.wantText {
				t.Errorf("parseHeading(%q) = (%d, %q), want (%d, %q)", tt.line, level, text, tt.wantLevel, tt.wantText)
			}
		})
	}
}

// wordLine builds a line containing n words.
func wordLine(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "word"
	}
	return strings.Join(words, " ")
}

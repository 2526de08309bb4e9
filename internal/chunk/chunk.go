// Package chunk splits markdown document bodies into token-budgeted,
// heading-tagged segments for machine retrieval.
package chunk

import (
	"strings"

	"mdbrowse/internal/utils"
)

// Token budget clamp. Caller-supplied budgets outside this range are
// clamped, never rejected.
const (
	MinTokens     = 128
	MaxTokens     = 4096
	DefaultTokens = 1024
)

// Chunk is one contiguous slice of a document body. Chunks never overlap
// and concatenating their Text fields in order reproduces the body exactly.
type Chunk struct {
	Index       int      `json:"index"`
	HeadingPath []string `json:"heading_path"`
	StartLine   int      `json:"start_line"` // 1-based, inclusive
	EndLine     int      `json:"end_line"`   // 1-based, inclusive
	Text        string   `json:"text"`
	TokenCount  int      `json:"token_count"`
}

// ClampBudget normalizes a caller-supplied token budget.
func ClampBudget(maxTokens int) int {
	if maxTokens <= 0 {
		return DefaultTokens
	}
	if maxTokens < MinTokens {
		return MinTokens
	}
	if maxTokens > MaxTokens {
		return MaxTokens
	}
	return maxTokens
}

// Split scans the body line by line, maintaining an ATX heading-path stack,
// and closes the current chunk whenever adding the next line would push its
// token estimate over the budget. A single line that alone exceeds the
// budget becomes its own oversized chunk; lines are never split.
func Split(body string, maxTokens int) []Chunk {
	if body == "" {
		return []Chunk{}
	}
	maxTokens = ClampBudget(maxTokens)

	// SplitAfter keeps each line's terminator so chunk texts concatenate
	// back to the exact original body.
	lines := strings.SplitAfter(body, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var (
		chunks      []Chunk
		headingPath []string

		current   strings.Builder
		pathSnap  []string
		startLine int
		words     int
	)

	flush := func(endLine int) {
		if current.Len() == 0 {
			return
		}
		text := current.String()
		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			HeadingPath: pathSnap,
			StartLine:   startLine,
			EndLine:     endLine,
			Text:        text,
			TokenCount:  utils.EstimateTokens(text),
		})
		current.Reset()
		words = 0
	}

	for i, line := range lines {
		lineNo := i + 1

		if level, text, ok := parseHeading(line); ok {
			if level-1 < len(headingPath) {
				headingPath = headingPath[:level-1]
			}
			headingPath = append(headingPath, text)
		}

		lineWords := len(strings.Fields(line))
		if current.Len() > 0 && estimateFromWords(words+lineWords) > maxTokens {
			flush(lineNo - 1)
		}

		if current.Len() == 0 {
			startLine = lineNo
			pathSnap = append([]string(nil), headingPath...)
		}
		current.WriteString(line)
		words += lineWords
	}

	// The final partial chunk is always emitted
	flush(len(lines))

	return chunks
}

// parseHeading recognizes ATX-style headings: 1-6 '#' characters followed
// by whitespace (or nothing), after optional leading spaces.
func parseHeading(line string) (level int, text string, ok bool) {
	trimmed := strings.TrimLeft(line, " \t")
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0, "", false
	}
	rest := trimmed[n:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\n' && rest[0] != '\r' {
		return 0, "", false
	}
	return n, strings.TrimSpace(rest), true
}

// estimateFromWords matches utils.EstimateTokens for an additive word count.
func estimateFromWords(words int) int {
	return (words*13 + 9) / 10
}

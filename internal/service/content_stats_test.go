package service

import (
	"testing"

	"mdbrowse/internal/utils"
)

func TestAnalyzeContent(t *testing.T) {
	content := "# Title\n\nSome **bold** prose with `code`.\n"

	stats := AnalyzeContent(content)
	if stats.Checksum != utils.Checksum(content) {
		t.Errorf("checksum = %q, want %q", stats.Checksum, utils.Checksum(content))
	}
	if stats.TokenCount != utils.EstimateTokens(content) {
		t.Errorf("token count = %d, want %d", stats.TokenCount, utils.EstimateTokens(content))
	}
	if stats.WordCount != utils.CountWords(content) {
		t.Errorf("word count = %d, want %d", stats.WordCount, utils.CountWords(content))
	}
	// Token estimation sees raw text, word counting strips markdown
	// syntax first, so the two disagree on marked-up content.
	if stats.WordCount >= stats.TokenCount {
		t.Errorf("word count %d should be below the token estimate %d", stats.WordCount, stats.TokenCount)
	}
}

func TestAnalyzeContentEmpty(t *testing.T) {
	stats := AnalyzeContent("")
	if stats.TokenCount != 0 || stats.WordCount != 0 {
		t.Errorf("empty content: tokens = %d, words = %d, want 0/0", stats.TokenCount, stats.WordCount)
	}
	if stats.Checksum == "" {
		t.Error("empty content still has a checksum")
	}
}

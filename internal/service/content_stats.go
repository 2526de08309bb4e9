package service

import "mdbrowse/internal/utils"

// ContentStats are the derived metrics stored alongside a content
// snapshot. The checksum doubles as the document's ETag.
type ContentStats struct {
	Checksum   string
	TokenCount int
	WordCount  int
}

// AnalyzeContent computes checksum and size metrics for one snapshot of
// markdown content.
func AnalyzeContent(content string) ContentStats {
	return ContentStats{
		Checksum:   utils.Checksum(content),
		TokenCount: utils.EstimateTokens(content),
		WordCount:  utils.CountWords(content),
	}
}

// Package render converts stored markdown to HTML for read paths that
// request it. Sanitization of the produced HTML is the presentation
// layer's concern, not this core's.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts markdown to HTML.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a markdown renderer with GitHub-flavored extensions enabled.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// HTML renders markdown content to HTML.
func (r *Renderer) HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

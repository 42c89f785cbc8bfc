// Package markdown renders assistant messages for the terminal.
package markdown

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// noMarginStyle removes glamour's document margins so rendered text lines
// up with the rest of the chat pane.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer wraps a glamour renderer configured for one style and width.
type Renderer struct {
	renderer *glamour.TermRenderer
	style    string
	width    int
}

// New creates a renderer. style is "dark", "light" or "auto".
func New(style string, width int) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch style {
	case "", "auto":
		opts = append(opts, glamour.WithAutoStyle())
	case "dark", "light":
		opts = append(opts, glamour.WithStandardStyle(style))
	default:
		return nil, fmt.Errorf("unknown markdown style %q", style)
	}
	opts = append(opts, glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)))

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Renderer{renderer: r, style: style, width: width}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int {
	return r.width
}

// Style returns the configured style name.
func (r *Renderer) Style() string {
	return r.style
}

// Render transforms markdown to styled terminal output. On failure the
// source text is returned unchanged.
func (r *Renderer) Render(markdown string) string {
	out, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

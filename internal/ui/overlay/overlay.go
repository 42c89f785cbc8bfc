// Package overlay draws a foreground box over an already rendered screen
// without clearing it.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position specifies where to place the overlay content.
type Position int

const (
	// Center places the overlay in the middle of the screen.
	Center Position = iota
	// Bottom places the overlay at the bottom center.
	Bottom
	// TopRight places the overlay in the top right corner.
	TopRight
)

// Config controls overlay rendering behavior.
type Config struct {
	Width    int // screen width
	Height   int // screen height
	Position Position
	PadX     int // distance from the right edge (TopRight)
	PadY     int // distance from the top or bottom edge
}

// Place renders fg on top of bg. Both may contain ANSI styling.
func Place(cfg Config, fg, bg string) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")
	for len(bgLines) < cfg.Height {
		bgLines = append(bgLines, strings.Repeat(" ", cfg.Width))
	}

	x, y := origin(cfg, lipgloss.Width(fg), len(fgLines))

	for i, line := range fgLines {
		row := y + i
		if row >= len(bgLines) {
			break
		}
		bgLine := bgLines[row]

		left := ansi.Truncate(bgLine, x, "")
		if w := ansi.StringWidth(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		var right string
		if end := x + ansi.StringWidth(line); end < ansi.StringWidth(bgLine) {
			right = ansi.TruncateLeft(bgLine, end, "")
		}
		bgLines[row] = left + line + right
	}
	return strings.Join(bgLines, "\n")
}

func origin(cfg Config, w, h int) (x, y int) {
	switch cfg.Position {
	case Bottom:
		x, y = (cfg.Width-w)/2, cfg.Height-h-cfg.PadY
	case TopRight:
		x, y = cfg.Width-w-cfg.PadX, cfg.PadY
	default:
		x, y = (cfg.Width-w)/2, (cfg.Height-h)/2
	}
	return max(x, 0), max(y, 0)
}

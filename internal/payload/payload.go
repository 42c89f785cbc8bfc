// Package payload defines the typed values carried by the widget channels.
//
// Payload is a closed set: only Editor, Shell and Chart implement it, so a
// type switch over a Payload in this module names every case.
package payload

// Target names the widget a directive is routed to.
type Target string

const (
	TargetEditor        Target = "editor"
	TargetShell         Target = "shell"
	TargetVisualization Target = "visualization"
)

// String returns the string representation of the target.
func (t Target) String() string {
	return string(t)
}

// Payload is the sealed union of widget payloads.
type Payload interface {
	Target() Target
	sealed()
}

// Editor replaces the code editor's content.
type Editor struct {
	Content string `json:"content"`
	// Language is a best-effort hint; empty means keep the current language.
	Language string `json:"language,omitempty"`
}

// Shell is a command line for the shell widget.
type Shell struct {
	Command string `json:"command"`
}

// Chart is a single-series dataset for the chart widget.
type Chart struct {
	Labels []string  `json:"labels"`
	Series []float64 `json:"series"`
	Label  string    `json:"label,omitempty"`
}

func (Editor) Target() Target { return TargetEditor }
func (Shell) Target() Target  { return TargetShell }
func (Chart) Target() Target  { return TargetVisualization }

func (Editor) sealed() {}
func (Shell) sealed()  {}
func (Chart) sealed()  {}

// Len returns the number of data points.
func (c Chart) Len() int {
	return len(c.Series)
}

// Max returns the largest value in the series, or 0 for an empty series.
func (c Chart) Max() float64 {
	var top float64
	for i, v := range c.Series {
		if i == 0 || v > top {
			top = v
		}
	}
	return top
}

// Package export writes the active chat session to disk as a transcript.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/devdeck/internal/message"
	"github.com/zjrosen/devdeck/internal/workbench"
)

// Transcript is the exported form of one session.
type Transcript struct {
	Session    workbench.SessionSummary `json:"session" yaml:"session"`
	Messages   []message.Message        `json:"messages" yaml:"messages"`
	ExportedAt time.Time                `json:"exported_at" yaml:"exported_at"`
}

// FromSnapshot builds a transcript of the snapshot's active session.
func FromSnapshot(snap workbench.Snapshot, now time.Time) Transcript {
	active, _ := snap.Active()
	return Transcript{
		Session:    active,
		Messages:   snap.Messages,
		ExportedAt: now,
	}
}

// Exporter writes a transcript in one format.
type Exporter interface {
	Export(t Transcript, w io.Writer) error
	Extension() string
}

// Formats lists the supported format names.
var Formats = []string{"json", "jsonl", "yaml", "md"}

// NewExporter returns the exporter for format.
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// ForPath picks an exporter from the file extension of path.
func ForPath(path string) (Exporter, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("cannot infer transcript format from %q", path)
	}
	return NewExporter(ext)
}

// WriteFile exports t to path using the format implied by its extension.
func WriteFile(path string, t Transcript) (err error) {
	exp, err := ForPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating transcript directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating transcript: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing transcript: %w", cerr)
		}
	}()
	if err := exp.Export(t, f); err != nil {
		return fmt.Errorf("writing %s transcript: %w", exp.Extension(), err)
	}
	return nil
}

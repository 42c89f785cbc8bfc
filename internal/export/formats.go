package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// JSONExporter writes the whole transcript as indented JSON.
type JSONExporter struct{}

// Export implements Exporter.
func (e *JSONExporter) Export(t Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// Extension implements Exporter.
func (e *JSONExporter) Extension() string { return "json" }

// JSONLExporter writes one message per line.
type JSONLExporter struct{}

// Export implements Exporter.
func (e *JSONLExporter) Export(t Transcript, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, msg := range t.Messages {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("encoding message %s: %w", msg.ID, err)
		}
	}
	return nil
}

// Extension implements Exporter.
func (e *JSONLExporter) Extension() string { return "jsonl" }

// YAMLExporter writes the transcript as YAML.
type YAMLExporter struct{}

// Export implements Exporter.
func (e *YAMLExporter) Export(t Transcript, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return err
	}
	return enc.Close()
}

// Extension implements Exporter.
func (e *YAMLExporter) Extension() string { return "yaml" }

// MarkdownExporter writes a readable transcript.
type MarkdownExporter struct{}

// Export implements Exporter.
func (e *MarkdownExporter) Export(t Transcript, w io.Writer) error {
	s := t.Session
	title := s.Title
	if title == "" {
		title = s.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	if s.DataSource != nil {
		_, _ = fmt.Fprintf(w, "**Data source:** %s  \n", s.DataSource.Name)
	}
	if len(s.Widgets) > 0 {
		_, _ = fmt.Fprintf(w, "**Widgets:** %s  \n", strings.Join(s.Widgets, ", "))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(t.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range t.Messages {
		_, _ = fmt.Fprintf(w, "**%s** (%s)\n\n%s\n\n",
			msg.Sender, msg.Timestamp.Format(time.RFC3339), escapeMarkdown(msg.Content))
		if i < len(t.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

// Extension implements Exporter.
func (e *MarkdownExporter) Extension() string { return "md" }

// escapeMarkdown escapes emphasis markers outside fenced code blocks.
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCode := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCode = !inCode
			continue
		}
		if inCode {
			continue
		}
		line = strings.ReplaceAll(line, "**", `\*\*`)
		lines[i] = strings.ReplaceAll(line, "__", `\_\_`)
	}
	return strings.Join(lines, "\n")
}

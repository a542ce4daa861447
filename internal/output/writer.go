// Package output serializes scraped catalog documents for the one-shot
// scrape command.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/slotferry/slotferry/internal/catalog"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Document is the batch-scrape payload: a timestamped snapshot of the
// aggregated catalog.
type Document struct {
	Timestamp  string         `json:"timestamp" yaml:"timestamp"`
	Source     string         `json:"source" yaml:"source"`
	TotalGames int            `json:"totalGames" yaml:"totalGames"`
	Games      []catalog.Game `json:"games" yaml:"games"`
}

// NewDocument stamps a game list into a Document.
func NewDocument(source string, games []catalog.Game) Document {
	return Document{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Source:     source,
		TotalGames: len(games),
		Games:      games,
	}
}

// Writer serializes a Document to its destination.
type Writer interface {
	// Write outputs the document.
	Write(doc Document) error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
}

// WithPretty enables pretty-printing for formats that support it.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

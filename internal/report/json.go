package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitesnap/internal/database"
	"github.com/nao1215/sitesnap/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// version is embedded in every document when non-empty.
	version string

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the sitesnap version in the output documents.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport is the document written for one run.
type JSONReport struct {
	// Version is the sitesnap version that produced the run.
	Version string `json:"version,omitempty"`

	// Summary is the final result line.
	Summary string `json:"summary"`

	// Report is the full run.
	Report *model.RunReport `json:"report"`
}

// JSONHistory is the document written for a run history.
type JSONHistory struct {
	Version string                 `json:"version,omitempty"`
	Seed    string                 `json:"seed"`
	Runs    []database.RunMetadata `json:"runs"`
}

// Write outputs the run wrapped in a JSONReport.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(&JSONReport{
		Version: w.version,
		Summary: report.Summary(),
		Report:  report,
	})
}

// WriteHistory outputs the runs wrapped in a JSONHistory.
func (w *JSONWriter) WriteHistory(seed string, runs []database.RunMetadata) (int, error) {
	if runs == nil {
		runs = []database.RunMetadata{}
	}
	return w.writeJSON(&JSONHistory{
		Version: w.version,
		Seed:    seed,
		Runs:    runs,
	})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

package report

import (
	"io"
	"regexp"
	"strings"

	"github.com/nao1215/sitesnap/internal/database"
	"github.com/nao1215/sitesnap/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Writer defines the interface for report output.
// Implementations write run results in various formats.
type Writer interface {
	// Write outputs a finished run to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)

	// WriteHistory outputs the stored runs of one seed, newest first.
	WriteHistory(seed string, runs []database.RunMetadata) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the history to all configured Writers.
func (m *MultiWriter) WriteHistory(seed string, runs []database.RunMetadata) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(seed, runs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

var wordBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// statusHeading turns a status label into a heading, "FetchFailed" becomes
// "Fetch Failed".
func statusHeading(s model.Status) string {
	words := wordBoundary.ReplaceAllString(s.String(), "$1 $2")
	return cases.Title(language.English).String(strings.ToLower(words))
}

// timeLayout is used for every timestamp in text and Markdown output.
const timeLayout = "2006-01-02 15:04:05 MST"

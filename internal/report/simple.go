package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitesnap/internal/database"
	"github.com/nao1215/sitesnap/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// Every visited URL gets one status line, followed by a summary block
// and the final "Changes detected" / "No changes detected" line.
type SimpleWriter struct {
	baseWriter

	// onlyChanges hides Unchanged pages from the page list.
	onlyChanges bool

	// verbose adds hashes and fetch details to each page line.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithOnlyChanges hides Unchanged pages from the page list.
// Counts in the summary still include them.
func WithOnlyChanges(only bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.onlyChanges = only
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the page lines and the summary of a run.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	for _, p := range report.Pages {
		if w.onlyChanges && p.Status == model.StatusUnchanged {
			continue
		}
		w.formatPage(&sb, p)
	}
	w.formatSummary(&sb, report)

	return io.WriteString(w.output, sb.String())
}

// WritePage outputs the status line of a single page. It is meant to be
// called from a crawl observer so lines appear while the run progresses.
func (w *SimpleWriter) WritePage(p model.PageResult) (int, error) {
	if w.onlyChanges && p.Status == model.StatusUnchanged {
		return 0, nil
	}
	var sb strings.Builder
	w.formatPage(&sb, p)
	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs only the summary block of a run.
func (w *SimpleWriter) WriteSummary(report *model.RunReport) (int, error) {
	var sb strings.Builder
	w.formatSummary(&sb, report)
	return io.WriteString(w.output, sb.String())
}

// WriteHistory outputs one line per stored run.
func (w *SimpleWriter) WriteHistory(seed string, runs []database.RunMetadata) (int, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("History of %s\n", seed))
	if len(runs) == 0 {
		sb.WriteString("  No runs recorded\n")
		return io.WriteString(w.output, sb.String())
	}

	sb.WriteString(fmt.Sprintf("  %-6s %-23s %6s %6s %9s %6s %11s  %s\n",
		"ID", "STARTED", "PAGES", "NEW", "CHANGED", "SAME", "FETCHFAILED", "RESULT"))
	for _, run := range runs {
		result := "no changes"
		if run.Changed {
			result = "changes"
		}
		sb.WriteString(fmt.Sprintf("  %-6d %-23s %6d %6d %9d %6d %11d  %s\n",
			run.ID,
			run.StartedAt.Local().Format(timeLayout),
			run.Pages,
			run.Counts[model.StatusNew.String()],
			run.Counts[model.StatusChanged.String()],
			run.Counts[model.StatusUnchanged.String()],
			run.Counts[model.StatusFetchFailed.String()],
			result,
		))
	}

	return io.WriteString(w.output, sb.String())
}

// formatPage writes "<Status> <URL>" with optional detail.
func (w *SimpleWriter) formatPage(sb *strings.Builder, p model.PageResult) {
	sb.WriteString(fmt.Sprintf("%-11s %s\n", p.Status, p.URL))

	if p.Status == model.StatusFetchFailed && p.Error != "" {
		sb.WriteString(fmt.Sprintf("            error: %s\n", p.Error))
	}
	if !w.verbose {
		return
	}
	if p.Hash != "" {
		sb.WriteString(fmt.Sprintf("            hash: %s\n", p.Hash))
	}
	if p.PreviousHash != "" && p.PreviousHash != p.Hash {
		sb.WriteString(fmt.Sprintf("            previous: %s\n", p.PreviousHash))
	}
	if p.StatusCode != 0 {
		sb.WriteString(fmt.Sprintf("            http: %d, %d links, %s\n", p.StatusCode, p.Links, p.Duration.Round(time.Millisecond)))
	}
}

// formatSummary writes the counts and the final result line.
func (w *SimpleWriter) formatSummary(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Seed:     %s\n", report.Seed))
	sb.WriteString(fmt.Sprintf("Pages:    %d", len(report.Pages)))
	if d := report.Duration(); d > 0 {
		sb.WriteString(fmt.Sprintf(" in %s", d.Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	for _, s := range model.Statuses {
		sb.WriteString(fmt.Sprintf("  %-13s %d\n", statusHeading(s)+":", report.Count(s)))
	}

	switch {
	case report.Interrupted:
		sb.WriteString("Status:   INTERRUPTED (partial results)\n")
	case report.Error != "":
		sb.WriteString(fmt.Sprintf("Status:   ABORTED - %s\n", report.Error))
	case report.Truncated:
		sb.WriteString("Status:   PAGE LIMIT REACHED (partial results)\n")
	}
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString(report.Summary())
	sb.WriteString("\n")
}

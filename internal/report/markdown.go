package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitesnap/internal/database"
	"github.com/nao1215/sitesnap/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, suitable for
// pasting into issues or committing next to a monitored site.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteHistory outputs a table of stored runs.
func (w *MarkdownWriter) WriteHistory(seed string, runs []database.RunMetadata) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("sitesnap History")
	md.PlainText("")
	md.PlainText("Seed: `" + seed + "`")
	md.PlainText("")

	if len(runs) == 0 {
		md.Note("No runs recorded for this seed.")
		md.PlainText("")
		w.writeFooter(md)
		return len(md.String()), md.Build()
	}

	header := []string{"ID", "Started"}
	for _, s := range model.Statuses {
		header = append(header, statusHeading(s))
	}
	header = append(header, "Result")

	rows := make([][]string, len(runs))
	for i, run := range runs {
		row := []string{strconv.FormatInt(run.ID, 10), run.StartedAt.Local().Format(timeLayout)}
		for _, s := range model.Statuses {
			row = append(row, strconv.Itoa(run.Counts[s.String()]))
		}
		if run.Changed {
			row = append(row, "🔔 Changes")
		} else {
			row = append(row, "✅ No changes")
		}
		rows[i] = row
	}

	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("sitesnap Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed", "`" + report.Seed + "`"},
		{"Started", report.StartedAt.Local().Format(timeLayout)},
		{"Pages Visited", strconv.Itoa(len(report.Pages))},
		{"Status", w.getStatusText(report)},
	}
	if report.ID != 0 {
		rows = append(rows, []string{"Run ID", strconv.FormatInt(report.ID, 10)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RunReport) string {
	switch {
	case report.Interrupted:
		return "⚠️ Interrupted (partial results)"
	case report.Error != "":
		return "❌ Aborted - " + report.Error
	case report.Truncated:
		return "⚠️ Page limit reached (partial results)"
	default:
		return "✅ Complete"
	}
}

// writeSummary writes the status counts, a pie chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(model.Statuses)+1)
	for _, s := range model.Statuses {
		rows = append(rows, []string{statusHeading(s), strconv.Itoa(report.Count(s))})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(len(report.Pages)) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Pages) > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of the status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Status Distribution"),
		piechart.WithShowData(true),
	)

	for _, s := range model.Statuses {
		if n := report.Count(s); n > 0 {
			chart.LabelAndIntValue(statusHeading(s), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes the final result as a GitHub alert.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	switch {
	case report.Interrupted:
		md.Cautionf("The run was interrupted after %d page(s); results are partial.", len(report.Pages))
	case report.Error != "":
		md.Cautionf("The run was aborted: %s", report.Error)
	case report.Changed:
		md.Warningf(
			"%s: %d new and %d changed page(s).",
			report.Summary(), report.Count(model.StatusNew), report.Count(model.StatusChanged),
		)
	case report.Count(model.StatusFetchFailed) > 0:
		md.Importantf(
			"%s, but %d page(s) could not be fetched.",
			report.Summary(), report.Count(model.StatusFetchFailed),
		)
	default:
		md.Tip(report.Summary() + ".")
	}
	md.PlainText("")
}

// writePages writes one table per status, changes first.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages visited.")
		md.PlainText("")
		return
	}

	for _, s := range []model.Status{model.StatusChanged, model.StatusNew, model.StatusFetchFailed, model.StatusUnchanged} {
		pages := report.PagesWithStatus(s)
		if len(pages) == 0 {
			continue
		}

		md.PlainText("### " + statusHeading(s))
		md.PlainText("")
		if s == model.StatusFetchFailed {
			w.writeFailuresTable(md, pages)
			continue
		}
		w.writePagesTable(md, pages)
	}
}

// writePagesTable writes URL, title and hash of fetched pages.
func (w *MarkdownWriter) writePagesTable(md *markdown.Markdown, pages []model.PageResult) {
	rows := make([][]string, len(pages))
	for i, p := range pages {
		title := p.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{
			"`" + p.URL + "`",
			truncateString(title, 40),
			"`" + shortHash(p.Hash) + "`",
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "Hash"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailuresTable writes failed pages with their error in a details block.
func (w *MarkdownWriter) writeFailuresTable(md *markdown.Markdown, pages []model.PageResult) {
	rows := make([][]string, len(pages))
	for i, p := range pages {
		code := "-"
		if p.StatusCode != 0 {
			code = strconv.Itoa(p.StatusCode)
		}
		rows[i] = []string{"`" + p.URL + "`", code, truncateString(p.Error, 60)}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "HTTP", "Error"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, p := range pages {
		if len(p.Error) > 60 {
			md.Details(p.URL, p.Error)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [sitesnap](https://github.com/nao1215/sitesnap)*")
}

// shortHash returns the first 12 hex digits of a fingerprint.
func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

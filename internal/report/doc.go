// Package report renders crawl runs and run history.
//
// This package contains writers for different output formats:
//   - SimpleWriter: status lines and a summary for terminal display
//   - JSONWriter: structured JSON output for tool integration
//   - MarkdownWriter: tables, a mermaid pie chart and GitHub alerts
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report

package model

import "time"

// RunReport is the result of one traversal from a seed to frontier exhaustion.
type RunReport struct {
	// ID is the database identifier, zero unless the run was saved.
	ID int64 `json:"id,omitempty"`

	// Seed is the normalized seed URL.
	Seed string `json:"seed"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Pages holds one result per visited URL, in visit order.
	Pages []PageResult `json:"pages"`

	// Counts holds the number of pages per status label.
	Counts map[string]int `json:"counts"`

	// Changed is true when at least one page was New or Changed.
	Changed bool `json:"changed"`

	// Truncated is true when the page limit stopped the run before the
	// frontier was empty.
	Truncated bool `json:"truncated,omitempty"`

	// Interrupted is true when the run was cancelled before completion.
	Interrupted bool `json:"interrupted,omitempty"`

	// Error holds the error that aborted the run, if any.
	Error string `json:"error,omitempty"`
}

// NewRunReport creates an empty report for a seed.
func NewRunReport(seed string) *RunReport {
	return &RunReport{
		Seed:      seed,
		StartedAt: time.Now(),
		Counts:    make(map[string]int, len(Statuses)),
	}
}

// Add appends a page result and updates the summary fields.
func (r *RunReport) Add(p PageResult) {
	r.Pages = append(r.Pages, p)
	if r.Counts == nil {
		r.Counts = make(map[string]int, len(Statuses))
	}
	r.Counts[p.Status.String()]++
	if p.Status.IsChange() {
		r.Changed = true
	}
}

// Count returns the number of pages with the given status.
func (r *RunReport) Count(s Status) int {
	return r.Counts[s.String()]
}

// Finish stamps the end time.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns the elapsed time of the run.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// PagesWithStatus returns the pages that ended with the given status.
func (r *RunReport) PagesWithStatus(s Status) []PageResult {
	var out []PageResult
	for _, p := range r.Pages {
		if p.Status == s {
			out = append(out, p)
		}
	}
	return out
}

// Summary is the final console line of a run.
func (r *RunReport) Summary() string {
	if r.Changed {
		return "Changes detected"
	}
	return "No changes detected"
}

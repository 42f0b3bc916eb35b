package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nao1215/sitesnap/internal/model"
)

// Crawler runs one change-detection crawl. *crawler.Spider implements it.
type Crawler interface {
	Run(ctx context.Context, seed string) (*model.RunReport, error)
}

// CrawlStep crawls the job's seed and stores the resulting report.
type CrawlStep struct {
	crawler Crawler
}

// NewCrawlStep creates a step that runs c.
func NewCrawlStep(c Crawler) *CrawlStep {
	return &CrawlStep{crawler: c}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs the crawl. Even on error job.Report is set, so callers can show
// what was visited before the run stopped.
func (s *CrawlStep) Do(ctx context.Context, job *Job) error {
	report, err := s.crawler.Run(ctx, job.Seed)
	if report == nil {
		report = model.NewRunReport(job.Seed)
		if err != nil {
			report.Error = err.Error()
		}
		report.Finish()
	}
	job.Report = report
	return err
}

// RunSaver persists finished runs. *database.SnapshotDB implements it.
type RunSaver interface {
	SaveRun(ctx context.Context, report *model.RunReport) error
}

// SaveRunStep records the job's report in the run history.
type SaveRunStep struct {
	saver  RunSaver
	logger *slog.Logger
}

// SaveRunStepOption configures a SaveRunStep.
type SaveRunStepOption func(*SaveRunStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveRunStepOption {
	return func(s *SaveRunStep) {
		s.logger = logger
	}
}

// NewSaveRunStep creates a step that saves runs through saver.
func NewSaveRunStep(saver RunSaver, opts ...SaveRunStepOption) *SaveRunStep {
	s := &SaveRunStep{
		saver:  saver,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *SaveRunStep) Name() string {
	return "save_run"
}

// Do saves job.Report. A job without a report is a programming error.
func (s *SaveRunStep) Do(ctx context.Context, job *Job) error {
	if job.Report == nil {
		return fmt.Errorf("no report to save for %s", job.Seed)
	}
	if err := s.saver.SaveRun(ctx, job.Report); err != nil {
		return fmt.Errorf("failed to save run of %s: %w", job.Report.Seed, err)
	}
	s.logger.Debug("run saved", "seed", job.Report.Seed, "run_id", job.Report.ID)
	return nil
}

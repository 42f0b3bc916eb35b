package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitesnap/internal/model"
)

// Job carries one seed through the pipeline. Report is nil until the crawl
// step has run.
type Job struct {
	// Seed is the URL given by the user, not yet normalized.
	Seed string

	// Report is the run produced for Seed.
	Report *model.RunReport
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each one receiving the job as left by
// the previous steps.
type Step interface {
	// Do executes the pipeline step.
	// Returning an error stops the pipeline; per-page problems are part of
	// the report and are not errors.
	Do(ctx context.Context, job *Job) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It maintains a list of steps and executes them in order.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline running steps in order.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: steps,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// Execute runs all pipeline steps in sequence and stops at the first error.
// Cancellation is checked before each step; a cancelled job's report, if
// any, is marked interrupted.
func (p *Pipeline) Execute(ctx context.Context, job *Job) error {
	p.logger.Debug("pipeline started", "seed", job.Seed, "steps", p.StepNames())

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"seed", job.Seed,
				"reason", err,
			)
			if job.Report != nil && !job.Report.Interrupted {
				job.Report.Interrupted = true
				job.Report.Error = err.Error()
			}
			return err
		}

		start := time.Now()
		p.logger.Debug("executing step",
			"step", step.Name(),
			"seed", job.Seed,
			"position", fmt.Sprintf("%d/%d", i+1, p.StepCount()),
		)

		if err := step.Do(ctx, job); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", job.Seed,
				"error", err,
			)
			return err
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"seed", job.Seed,
			"elapsed", time.Since(start),
		)
	}

	return nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/sitesnap/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of seeds crawled at once when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// BatchProcessor crawls several seeds concurrently. Each seed gets its own
// pipeline, so its own Spider and Frontier; they may share a fingerprint
// store.
type BatchProcessor struct {
	// pipelineFactory creates the pipeline for one seed, which lets every
	// seed carry its own site configuration.
	pipelineFactory func(seed string) *Pipeline

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent runs.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(seed string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every seed and returns the reports in seed order.
//
// A failing run (store error, invalid seed, cancellation) cancels the runs
// still in progress and its error is returned. Reports of runs that did
// start are returned in any case; entries for runs that never started are
// nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.RunReport, error) {
	var mu sync.Mutex
	results := make([]*model.RunReport, len(seeds))

	err := bp.ProcessBatchWithCallback(ctx, seeds, func(report *model.RunReport, index int) {
		mu.Lock()
		results[index] = report
		mu.Unlock()
	})

	return results, err
}

// ProcessBatchWithCallback crawls every seed and calls callback for each
// finished run with the index of its seed. The callback is called from the
// goroutine that ran the pipeline, so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(report *model.RunReport, index int),
) error {
	bp.logger.Info("starting batch",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("crawling seed", "seed", seed, "index", i+1, "total", len(seeds))

			job := &Job{Seed: seed}
			err := bp.pipelineFactory(seed).Execute(ctx, job)
			if job.Report != nil {
				callback(job.Report, i)
			}
			if err != nil {
				bp.logger.Warn("run failed", "seed", seed, "error", err)
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)
	return err
}

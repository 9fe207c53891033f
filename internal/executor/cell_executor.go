package executor

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal"
	"defecteval/internal/errors"
	ievaluation "defecteval/internal/evaluation"
	"defecteval/internal/metrics"
	"defecteval/ports"

	"golang.org/x/sync/errgroup"
)

// CellJob is one prepared matrix cell. Training is already projected and
// balanced; Err carries a preparation failure that the cell inherits.
type CellJob struct {
	Cell     evaluation.Cell
	Training *dataset.Dataset
	Testing  *dataset.Dataset
	Err      error
}

// CellOutcome is the result of one job. Exactly one of Metrics and Err is meaningful.
type CellOutcome struct {
	Cell     evaluation.Cell
	Metrics  evaluation.ConfusionMetrics
	Err      error
	Duration time.Duration
}

// CellExecutorConfig configures the worker pool
type CellExecutorConfig struct {
	Workers    int
	FitTimeout time.Duration // 0 means no deadline
}

// CellExecutor fits and evaluates cells on a bounded worker pool
type CellExecutor struct {
	factory   ports.ClassifierFactory
	evaluator *ievaluation.Evaluator
	seeds     ports.RNGPort
	config    CellExecutorConfig
	metrics   *metrics.RunMetrics
	logger    *internal.Logger
}

// NewCellExecutor creates an executor
func NewCellExecutor(factory ports.ClassifierFactory, evaluator *ievaluation.Evaluator, seeds ports.RNGPort, config CellExecutorConfig, runMetrics *metrics.RunMetrics, logger *internal.Logger) *CellExecutor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &CellExecutor{
		factory:   factory,
		evaluator: evaluator,
		seeds:     seeds,
		config:    config,
		metrics:   runMetrics,
		logger:    logger,
	}
}

// Execute runs every job and returns outcomes in job order, independent of
// completion order. Cell failures are reported in the outcomes; the returned
// error is only set when ctx ends.
func (ce *CellExecutor) Execute(ctx context.Context, jobs []CellJob) ([]CellOutcome, error) {
	outcomes := make([]CellOutcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ce.config.Workers)
	for i := range jobs {
		i := i
		g.Go(func() error {
			outcomes[i] = ce.run(gctx, jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (ce *CellExecutor) run(ctx context.Context, job CellJob) CellOutcome {
	start := time.Now()
	out := CellOutcome{Cell: job.Cell}

	if job.Err != nil {
		out.Err = job.Err
	} else if err := ctx.Err(); err != nil {
		out.Err = err
	} else {
		out.Metrics, out.Err = ce.fitAndEvaluate(ctx, job)
	}

	out.Duration = time.Since(start)
	ce.metrics.ObserveCell(job.Cell, out.Duration, out.Err)
	if out.Err != nil {
		out.Metrics = evaluation.ConfusionMetrics{}
		ce.logger.Warn("cell failed (%s): %v", job.Cell, out.Err)
	} else {
		ce.logger.Trace("cell done (%s) in %v", job.Cell, out.Duration)
	}
	return out
}

func (ce *CellExecutor) fitAndEvaluate(ctx context.Context, job CellJob) (evaluation.ConfusionMetrics, error) {
	model, err := ce.factory.New(job.Cell.Classifier, ce.seeds.ClassifierSeed(job.Cell))
	if err != nil {
		return evaluation.ConfusionMetrics{}, err
	}

	// the deadline covers Predict too; lazy learners do their work there
	cellCtx := ctx
	if ce.config.FitTimeout > 0 {
		var cancel context.CancelFunc
		cellCtx, cancel = context.WithTimeout(ctx, ce.config.FitTimeout)
		defer cancel()
	}

	if err := model.Fit(cellCtx, job.Training); err != nil {
		if ce.timedOut(ctx, err) {
			return evaluation.ConfusionMetrics{}, errors.ModelFitError(
				fmt.Sprintf("%s: fit exceeded %v on %d instances", job.Cell.Classifier, ce.config.FitTimeout, job.Training.Len()), err)
		}
		return evaluation.ConfusionMetrics{}, errors.WithCode(errors.CodeModelFit, err)
	}

	scores, err := ce.evaluator.Evaluate(cellCtx, model, job.Testing)
	if err != nil && ce.timedOut(ctx, err) {
		return evaluation.ConfusionMetrics{}, errors.ModelFitError(
			fmt.Sprintf("%s: prediction exceeded %v on %d instances", job.Cell.Classifier, ce.config.FitTimeout, job.Testing.Len()), err)
	}
	return scores, err
}

// timedOut reports whether err comes from the cell deadline rather than the run
func (ce *CellExecutor) timedOut(parent context.Context, err error) bool {
	return ce.config.FitTimeout > 0 && parent.Err() == nil && stderrors.Is(err, context.DeadlineExceeded)
}

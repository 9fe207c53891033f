package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"defecteval/adapters/learn"
	"defecteval/domain/core"
	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/domain/run"
	"defecteval/internal"
	"defecteval/internal/analysis"
	"defecteval/internal/balancing"
	"defecteval/internal/errors"
	ievaluation "defecteval/internal/evaluation"
	"defecteval/internal/executor"
	"defecteval/internal/metrics"
	"defecteval/internal/selection"
	"defecteval/ports"
)

// CodeVersion is folded into every run fingerprint
const CodeVersion = "1.0.0"

// WalkForwardConfig holds the run-independent settings of the service
type WalkForwardConfig struct {
	Seed       int64
	Workers    int
	FitTimeout time.Duration
}

// RunRequest describes one walk-forward evaluation
type RunRequest struct {
	Project    string
	Releases   int // highest release to test on
	Load       ports.LoadRequest
	Matrix     evaluation.Matrix
	ConfigHash core.ConfigHash
}

// CellFailure is a matrix cell that produced no record
type CellFailure struct {
	Cell evaluation.Cell
	Code string
	Err  error
}

// RunResult is the outcome of a completed run
type RunResult struct {
	RunID           core.RunID
	Records         []evaluation.Record
	Failures        []CellFailure
	SkippedReleases []int
	Fingerprint     run.RunFingerprint
	Manifest        *run.RunManifest
	Duration        time.Duration
}

// WalkForwardService trains on releases before r and tests on release r for
// every release and matrix cell, in order
type WalkForwardService struct {
	source      ports.DatasetSource
	factory     ports.ClassifierFactory
	partitioner *analysis.ReleasePartitioner
	selector    *selection.FeatureSelector
	balancer    *balancing.Balancer
	evaluator   *ievaluation.Evaluator
	config      WalkForwardConfig
	metrics     *metrics.RunMetrics
	logger      *internal.Logger
}

// NewWalkForwardService creates a service from its collaborators
func NewWalkForwardService(
	source ports.DatasetSource,
	factory ports.ClassifierFactory,
	selector *selection.FeatureSelector,
	balancer *balancing.Balancer,
	config WalkForwardConfig,
	runMetrics *metrics.RunMetrics,
	logger *internal.Logger,
) *WalkForwardService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &WalkForwardService{
		source:      source,
		factory:     factory,
		partitioner: analysis.NewReleasePartitioner(),
		selector:    selector,
		balancer:    balancer,
		evaluator:   ievaluation.NewEvaluator(),
		config:      config,
		metrics:     runMetrics,
		logger:      logger,
	}
}

// NewStandardWalkForwardService wires the built-in learners: CFS best-first
// selection, the three resamplers and the classifier factory
func NewStandardWalkForwardService(source ports.DatasetSource, config WalkForwardConfig, runMetrics *metrics.RunMetrics, logger *internal.Logger) *WalkForwardService {
	selector := selection.NewFeatureSelector(learn.NewCFSEvaluator(), logger)
	balancer := balancing.NewBalancer(
		learn.NewResampler(),
		learn.NewSpreadSubsampler(1),
		learn.NewSMOTE(learn.DefaultSMOTENeighbours, learn.DefaultSMOTEPercentage),
		logger,
	)
	return NewWalkForwardService(source, learn.NewFactory(), selector, balancer, config, runMetrics, logger)
}

// Run evaluates releases 2..req.Releases. Cell failures and releases without
// data are reported in the result; IO, parse and configuration errors abort.
func (s *WalkForwardService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()
	if req.Releases < 1 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("releases must be at least 1, got %d", req.Releases))
	}
	if req.Matrix.CellsPerRelease() == 0 {
		return nil, errors.ConfigInvalid("empty evaluation matrix")
	}

	all, err := s.source.Load(ctx, req.Load)
	if err != nil {
		return nil, err
	}
	datasetHash, err := HashDataset(all)
	if err != nil {
		return nil, errors.Wrap(err, "hash dataset")
	}

	result := &RunResult{
		RunID:           core.NewRunID(),
		SkippedReleases: []int{},
		Fingerprint:     run.NewRunFingerprint(req.ConfigHash, datasetHash, s.config.Seed, CodeVersion),
	}
	s.logger.Info("run %s: %s, releases 2..%d, %d cells per release, fingerprint %s",
		result.RunID, req.Project, req.Releases, req.Matrix.CellsPerRelease(), result.Fingerprint.Fingerprint.Short())

	seeds := executor.NewSeedStreams(s.config.Seed)
	cells := executor.NewCellExecutor(s.factory, s.evaluator, seeds,
		executor.CellExecutorConfig{Workers: s.config.Workers, FitTimeout: s.config.FitTimeout},
		s.metrics, s.logger)

	var totals analysis.RunningTotals
	for r := 2; r <= req.Releases; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		split, err := s.partitioner.Partition(all, r)
		if err != nil {
			if errors.HasCode(err, errors.CodeDataError) {
				s.logger.Warn("release %d skipped: %v", r, err)
				result.SkippedReleases = append(result.SkippedReleases, r)
				s.metrics.ReleaseSkipped()
				continue
			}
			return nil, err
		}
		if err := totals.Advance(split.PartitionStats); err != nil {
			return nil, errors.Wrap(err, "advance running totals")
		}
		book := totals.Bookkeeping(split.PartitionStats)
		s.logger.Info("release %d: training %d (%.1f%% defective), testing %d (%.1f%% defective), oversample target %.1f%%",
			r, book.TrainingSize, 100*book.TrainDefectRate, book.TestingSize, 100*book.TestDefectRate, book.TargetPercent)

		jobs, err := s.prepare(ctx, req.Matrix, split, book, seeds)
		if err != nil {
			return nil, err
		}
		outcomes, err := cells.Execute(ctx, jobs)
		if err != nil {
			return nil, err
		}

		for _, o := range outcomes {
			if o.Err != nil {
				if errors.IsFatal(o.Err) {
					return nil, o.Err
				}
				result.Failures = append(result.Failures, CellFailure{Cell: o.Cell, Code: errors.GetCode(o.Err), Err: o.Err})
				continue
			}
			result.Records = append(result.Records, evaluation.NewRecord(req.Project, o.Cell, book, o.Metrics))
		}
	}

	result.Duration = time.Since(start)
	result.Manifest = s.manifest(req, all, result)
	if err := result.Manifest.Validate(); err != nil {
		return nil, errors.Wrap(err, "run manifest")
	}
	s.metrics.RunFinished(result.Duration)

	s.logger.Info("run %s finished in %v: %d records, %d failed cells, %d skipped releases",
		result.RunID, result.Duration.Round(time.Millisecond), len(result.Records), len(result.Failures), len(result.SkippedReleases))
	return result, nil
}

// prepare builds the jobs of one release in matrix order. Each projection
// and each balanced training set is computed once and shared by its cells.
func (s *WalkForwardService) prepare(
	ctx context.Context,
	matrix evaluation.Matrix,
	split *analysis.ReleaseSplit,
	book evaluation.ReleaseBookkeeping,
	seeds ports.RNGPort,
) ([]executor.CellJob, error) {
	type projected struct {
		training, testing *dataset.Dataset
		err               error
	}
	type balanced struct {
		training *dataset.Dataset
		err      error
	}
	type balanceKey struct {
		selection evaluation.FeatureSelectionPolicy
		balancing evaluation.BalancingPolicy
	}

	projections := make(map[evaluation.FeatureSelectionPolicy]projected)
	trainingSets := make(map[balanceKey]balanced)

	cells := matrix.Cells(split.Release)
	jobs := make([]executor.CellJob, len(cells))
	for i, cell := range cells {
		p, ok := projections[cell.Selection]
		if !ok {
			p.training, p.testing, p.err = s.selector.ApplyPair(ctx, cell.Selection, split.Training, split.Testing)
			if p.err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				p.err = errors.Wrapf(p.err, "feature selection %q", cell.Selection)
			}
			projections[cell.Selection] = p
		}

		key := balanceKey{cell.Selection, cell.Balancing}
		b, ok := trainingSets[key]
		if !ok {
			if p.err != nil {
				b.err = p.err
			} else {
				target := balancing.Target{
					Percent: book.TargetPercent,
					Seed:    seeds.BalancingSeed(split.Release, cell.Selection, cell.Balancing),
				}
				b.training, b.err = s.balancer.Apply(ctx, cell.Balancing, p.training, target)
				if b.err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return nil, ctxErr
					}
					b.err = errors.Wrapf(b.err, "balancing %q", cell.Balancing)
				} else {
					s.metrics.ObserveTrainingSize(cell.Balancing, b.training.Len())
				}
			}
			trainingSets[key] = b
		}

		jobs[i] = executor.CellJob{Cell: cell, Training: b.training, Testing: p.testing, Err: b.err}
	}
	return jobs, nil
}

func (s *WalkForwardService) manifest(req RunRequest, all *dataset.Dataset, result *RunResult) *run.RunManifest {
	m := run.NewRunManifest(result.RunID, req.Project, req.Releases, result.Fingerprint)
	m.RecordCount = len(result.Records)
	if req.Releases > 1 {
		m.ExpectedRecords = req.Matrix.ExpectedRecords(req.Releases - 1)
	}
	m.FailedCells = len(result.Failures)
	m.SkippedReleases = append(m.SkippedReleases, result.SkippedReleases...)
	m.OutputHash = OutputHash(result.Records)
	m.RuntimeMs = result.Duration.Milliseconds()
	return m
}

// OutputHash hashes the rendered report rows, header included
func OutputHash(records []evaluation.Record) core.OutputHash {
	rows := make([]string, 0, len(records)+1)
	rows = append(rows, strings.Join(evaluation.RecordHeader, ";"))
	for _, r := range records {
		rows = append(rows, strings.Join(r.Fields(), ";"))
	}
	return core.ComputeOutputHash(rows)
}

// HashDataset hashes the parsed instances, so the same data read from a
// delimited file or a workbook yields the same hash
func HashDataset(ds *dataset.Dataset) (core.DatasetHash, error) {
	var b strings.Builder
	b.WriteString(strings.Join(ds.Schema.FeatureNames(), ","))
	b.WriteByte('\n')
	for _, in := range ds.Instances {
		b.WriteString(strconv.Itoa(in.Release))
		for _, v := range in.Features {
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteByte(',')
		b.WriteString(in.Label.String())
		b.WriteByte('\n')
	}
	return core.ComputeDatasetHash(strings.NewReader(b.String()))
}

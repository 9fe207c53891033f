package app

import (
	"context"
	"strings"
	"testing"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal"
	"defecteval/internal/errors"
	"defecteval/internal/metrics"
	"defecteval/internal/testkit"
	"defecteval/ports"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Load(ctx context.Context, req ports.LoadRequest) (*dataset.Dataset, error) {
	args := m.Called(ctx, req)
	ds, _ := args.Get(0).(*dataset.Dataset)
	return ds, args.Error(1)
}

func sourceFor(config testkit.ReleaseGeneratorConfig) *mockSource {
	src := &mockSource{}
	src.On("Load", mock.Anything, mock.Anything).Return(testkit.NewReleaseDataGenerator(config).Generate(), nil)
	return src
}

func newService(src ports.DatasetSource, workers int) *WalkForwardService {
	return NewStandardWalkForwardService(src, WalkForwardConfig{Seed: 1, Workers: workers}, nil, internal.NewNopLogger())
}

func request(releases int) RunRequest {
	return RunRequest{
		Project:    "bookkeeper",
		Releases:   releases,
		Load:       ports.LoadRequest{Name: "bookkeeper", Path: "bookkeeper.csv"},
		Matrix:     evaluation.FullMatrix(),
		ConfigHash: "config",
	}
}

func TestRun_ThreeReleaseScenario(t *testing.T) {
	src := sourceFor(testkit.ScenarioConfig())
	result, err := newService(src, 1).Run(context.Background(), request(3))
	require.NoError(t, err)
	src.AssertExpectations(t)

	require.Empty(t, result.Failures)
	require.Len(t, result.Records, 48)
	assert.Empty(t, result.SkippedReleases)

	for i, r := range result.Records {
		assert.Equal(t, "bookkeeper", r.Dataset)
		if i < 24 {
			assert.Equal(t, 1, r.TrainingRelease)
			assert.InDelta(t, 0.5, r.TrainingFraction, 1e-12)
			assert.InDelta(t, 0.2, r.TrainDefectRate, 1e-12)
			assert.InDelta(t, 0.3, r.TestDefectRate, 1e-12)
			continue
		}
		assert.Equal(t, 2, r.TrainingRelease)
		assert.InDelta(t, 20.0/30.0, r.TrainingFraction, 1e-12)
		assert.InDelta(t, 5.0/20.0, r.TrainDefectRate, 1e-12)
		assert.InDelta(t, 1.0/10.0, r.TestDefectRate, 1e-12)
		assert.Equal(t, 10, r.Metrics.Total())
	}

	assert.True(t, result.Manifest.Complete())
	assert.Equal(t, 48, result.Manifest.ExpectedRecords)
	assert.False(t, result.Manifest.OutputHash.String() == "")
}

func TestRun_RecordOrderFollowsMatrix(t *testing.T) {
	result, err := newService(sourceFor(testkit.DefaultReleaseConfig()), 1).Run(context.Background(), request(3))
	require.NoError(t, err)
	require.Len(t, result.Records, 48)

	for i, r := range result.Records {
		cell := evaluation.FullMatrix().Cells(2 + i/24)[i%24]
		assert.Equal(t, cell.Selection, r.FeatureSelection, "record %d", i)
		assert.Equal(t, cell.Balancing, r.Balancing, "record %d", i)
		assert.Equal(t, cell.Classifier, r.Classifier, "record %d", i)
		assert.Equal(t, cell.Release-1, r.TrainingRelease)
	}
}

func TestRun_RepeatableAndWorkerIndependent(t *testing.T) {
	cfg := testkit.DefaultReleaseConfig()

	first, err := newService(sourceFor(cfg), 1).Run(context.Background(), request(5))
	require.NoError(t, err)
	second, err := newService(sourceFor(cfg), 1).Run(context.Background(), request(5))
	require.NoError(t, err)
	parallel, err := newService(sourceFor(cfg), 8).Run(context.Background(), request(5))
	require.NoError(t, err)

	assert.Equal(t, first.Manifest.OutputHash, second.Manifest.OutputHash)
	assert.Equal(t, first.Manifest.OutputHash, parallel.Manifest.OutputHash)
	assert.Equal(t, first.Fingerprint.Fingerprint, parallel.Fingerprint.Fingerprint)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_ZeroDefectTrainingFailsEveryCell(t *testing.T) {
	cfg := testkit.ScenarioConfig()
	cfg.Releases = []testkit.ReleaseSpec{{Size: 10, Defective: 0}, {Size: 10, Defective: 3}}

	result, err := newService(sourceFor(cfg), 2).Run(context.Background(), request(2))
	require.NoError(t, err)

	assert.Empty(t, result.Records)
	require.Len(t, result.Failures, 24)
	for _, f := range result.Failures {
		assert.Equal(t, errors.CodeModelFit, f.Code, f.Cell.String())
	}
	assert.Equal(t, 24, result.Manifest.FailedCells)
	assert.False(t, result.Manifest.Complete())
}

func TestRun_MissingReleasesAreSkipped(t *testing.T) {
	runMetrics := metrics.NewRunMetrics("bookkeeper")
	svc := NewStandardWalkForwardService(sourceFor(testkit.ScenarioConfig()), WalkForwardConfig{Seed: 1, Workers: 1}, runMetrics, nil)

	result, err := svc.Run(context.Background(), request(5))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, result.SkippedReleases)
	assert.Len(t, result.Records, 48)
	assert.Equal(t, 96, result.Manifest.ExpectedRecords)
	assert.Equal(t, []int{4, 5}, result.Manifest.SkippedReleases)

	expected := `
# HELP defecteval_releases_skipped_total Releases skipped because of a data error.
# TYPE defecteval_releases_skipped_total counter
defecteval_releases_skipped_total{project="bookkeeper"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(runMetrics.Registry(), strings.NewReader(expected), "defecteval_releases_skipped_total"))
}

func TestRun_MatrixSubset(t *testing.T) {
	req := request(3)
	req.Matrix = evaluation.NewMatrix(nil,
		[]evaluation.BalancingPolicy{evaluation.BalancingSMOTE},
		[]evaluation.ClassifierKind{evaluation.ClassifierNaiveBayes})

	result, err := newService(sourceFor(testkit.ScenarioConfig()), 1).Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Records, 4)
	assert.Equal(t, evaluation.SelectionNone, result.Records[0].FeatureSelection)
	assert.Equal(t, evaluation.SelectionBestFirst, result.Records[1].FeatureSelection)
	assert.Equal(t, 2, result.Records[2].TrainingRelease)
	assert.Equal(t, 4, result.Manifest.ExpectedRecords)
}

func TestRun_SingleReleaseProducesNothing(t *testing.T) {
	result, err := newService(sourceFor(testkit.ScenarioConfig()), 1).Run(context.Background(), request(1))
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.Manifest.ExpectedRecords)
}

func TestRun_FatalErrors(t *testing.T) {
	_, err := newService(sourceFor(testkit.ScenarioConfig()), 1).Run(context.Background(), request(0))
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	src := &mockSource{}
	src.On("Load", mock.Anything, mock.Anything).Return(nil, errors.IOFailure("bookkeeper.csv", nil))
	_, err = newService(src, 1).Run(context.Background(), request(3))
	assert.Equal(t, errors.CodeIOFailure, errors.GetCode(err))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(sourceFor(testkit.ScenarioConfig()), 2).Run(ctx, request(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashDataset_IndependentOfSourceName(t *testing.T) {
	a := testkit.NewReleaseDataGenerator(testkit.ScenarioConfig()).Generate()
	b := testkit.NewReleaseDataGenerator(testkit.ScenarioConfig()).Generate()
	b.Name = "renamed"

	ha, err := HashDataset(a)
	require.NoError(t, err)
	hb, err := HashDataset(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	other := testkit.DefaultReleaseConfig()
	hc, err := HashDataset(testkit.NewReleaseDataGenerator(other).Generate())
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

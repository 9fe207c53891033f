package analysis

import (
	"fmt"

	"defecteval/domain/core"
	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal/errors"
)

// ReleasePartitioner implements the walk-forward split: everything before a
// release trains, the release itself tests
type ReleasePartitioner struct{}

// ReleaseSplit represents the outcome of partitioning for one release
type ReleaseSplit struct {
	Release        int
	Training       *dataset.Dataset
	Testing        *dataset.Dataset
	PartitionStats PartitionStatistics
}

// PartitionStatistics provides metadata about the partitioning
type PartitionStatistics struct {
	Release           int     `json:"release"`
	TrainingSize      int     `json:"training_size"`
	TestingSize       int     `json:"testing_size"`
	TrainingDefective int     `json:"training_defective"`
	TestingDefective  int     `json:"testing_defective"`
	TrainingFraction  float64 `json:"training_fraction"`
	TrainDefectRate   float64 `json:"train_defect_rate"`
	TestDefectRate    float64 `json:"test_defect_rate"`
}

// NewReleasePartitioner creates a release partitioner
func NewReleasePartitioner() *ReleasePartitioner {
	return &ReleasePartitioner{}
}

// Partition splits all instances at release r. Both slices keep the loaded
// schema and the original row order. A release without testing instances
// is a data error; so is one without training instances.
func (rp *ReleasePartitioner) Partition(all *dataset.Dataset, release int) (*ReleaseSplit, error) {
	if release < 2 {
		return nil, errors.DataError(fmt.Sprintf("release %d has no earlier releases to train on", release), core.ErrInsufficientData)
	}

	training := all.Filter(func(in dataset.Instance) bool { return in.Release < release })
	testing := all.Filter(func(in dataset.Instance) bool { return in.Release == release })

	if testing.Len() == 0 {
		return nil, errors.DataError(fmt.Sprintf("release %d", release), core.NewEmptyReleaseError(release))
	}
	if training.Len() == 0 {
		return nil, errors.DataError(fmt.Sprintf("release %d: no training instances", release), core.ErrInsufficientData)
	}

	split := &ReleaseSplit{
		Release:        release,
		Training:       training,
		Testing:        testing,
		PartitionStats: computeStatistics(release, training, testing),
	}
	if err := rp.ValidateSplit(split); err != nil {
		return nil, errors.InternalError(err.Error())
	}
	return split, nil
}

func computeStatistics(release int, training, testing *dataset.Dataset) PartitionStatistics {
	return PartitionStatistics{
		Release:           release,
		TrainingSize:      training.Len(),
		TestingSize:       testing.Len(),
		TrainingDefective: training.DefectCount(),
		TestingDefective:  testing.DefectCount(),
		TrainingFraction:  float64(training.Len()) / float64(training.Len()+testing.Len()),
		TrainDefectRate:   training.DefectRate(),
		TestDefectRate:    testing.DefectRate(),
	}
}

// ValidateSplit checks that no training instance comes from the tested
// release or later and that testing holds exactly the tested release
func (rp *ReleasePartitioner) ValidateSplit(split *ReleaseSplit) error {
	for _, in := range split.Training.Instances {
		if in.Release >= split.Release {
			return core.NewLeakageError("training", in.Release, split.Release)
		}
	}
	for _, in := range split.Testing.Instances {
		if in.Release != split.Release {
			return core.NewLeakageError("testing", in.Release, split.Release)
		}
	}
	if !split.Training.Schema.Equal(split.Testing.Schema) {
		return core.NewSchemaMismatchError(split.Training.Schema.FeatureNames(), split.Testing.Schema.FeatureNames())
	}
	return nil
}

// RunningTotals accumulates instance and defect counts release by release.
// Only the orchestrator advances it.
type RunningTotals struct {
	PriorTotal     int
	PriorDefective int

	CurrentRelease   int
	CurrentTotal     int
	CurrentDefective int
}

// Advance moves the totals to a new tested release. The previously current
// release becomes part of the prior counts.
func (rt *RunningTotals) Advance(stats PartitionStatistics) error {
	if stats.Release <= rt.CurrentRelease {
		return fmt.Errorf("running totals cannot move from release %d back to %d", rt.CurrentRelease, stats.Release)
	}
	rt.PriorTotal = stats.TrainingSize
	rt.PriorDefective = stats.TrainingDefective
	rt.CurrentRelease = stats.Release
	rt.CurrentTotal = stats.TestingSize
	rt.CurrentDefective = stats.TestingDefective
	return nil
}

// CombinedDefectRate is the defect share of the prior and current releases together
func (rt *RunningTotals) CombinedDefectRate() float64 {
	total := rt.PriorTotal + rt.CurrentTotal
	if total == 0 {
		return 0
	}
	return float64(rt.PriorDefective+rt.CurrentDefective) / float64(total)
}

// OversampleTargetPercent is the minority percentage handed to the oversampler
func (rt *RunningTotals) OversampleTargetPercent() float64 {
	return 2 * rt.CombinedDefectRate() * 100
}

// Bookkeeping returns the per-release ratios shared by every record of the release
func (rt *RunningTotals) Bookkeeping(stats PartitionStatistics) evaluation.ReleaseBookkeeping {
	return evaluation.ReleaseBookkeeping{
		Release:          stats.Release,
		TrainingRelease:  stats.Release - 1,
		TrainingSize:     stats.TrainingSize,
		TestingSize:      stats.TestingSize,
		TrainingFraction: stats.TrainingFraction,
		TrainDefectRate:  stats.TrainDefectRate,
		TestDefectRate:   stats.TestDefectRate,
		TargetPercent:    rt.OversampleTargetPercent(),
	}
}

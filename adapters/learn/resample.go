package learn

import (
	"context"
	"math"
	"math/rand"

	"defecteval/domain/dataset"
)

// maxMinorityShare caps oversampling at a balanced class distribution
const maxMinorityShare = 0.5

// Resampler oversamples the minority class with replacement until it makes up
// a target percentage of the training set. Instances are only ever added.
type Resampler struct{}

// NewResampler creates an oversampler
func NewResampler() *Resampler {
	return &Resampler{}
}

// ResampleTo appends minority duplicates until the minority share reaches
// min(percent/100, 0.5). The input is returned as a copy when the minority
// class is empty or already at the target.
func (r *Resampler) ResampleTo(ctx context.Context, training *dataset.Dataset, percent float64, rng *rand.Rand) (*dataset.Dataset, error) {
	minority := training.MinorityLabel()
	pool := indicesOf(training, minority)
	nMin := len(pool)
	nMaj := training.Len() - nMin

	target := math.Min(percent/100, maxMinorityShare)
	if nMin == 0 || target <= 0 || math.IsNaN(target) {
		return training.WithInstances(copyInstances(training.Instances, 0)), nil
	}

	// smallest m with m/(m+nMaj) >= target
	want := int(math.Ceil(target*float64(nMaj)/(1-target) - 1e-9))
	extra := want - nMin
	if extra <= 0 {
		return training.WithInstances(copyInstances(training.Instances, 0)), nil
	}

	out := copyInstances(training.Instances, extra)
	for i := 0; i < extra; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out = append(out, training.Instances[pool[rng.Intn(nMin)]])
	}
	return training.WithInstances(out), nil
}

package learn

import (
	"context"
	"math"
	"math/rand"

	"defecteval/domain/dataset"
)

// SpreadSubsampler randomly drops majority instances until the majority class
// is at most MaxSpread times the minority class. Kept instances stay in their
// original order.
type SpreadSubsampler struct {
	MaxSpread float64
}

// NewSpreadSubsampler creates an undersampler; maxSpread < 1 means 1
func NewSpreadSubsampler(maxSpread float64) *SpreadSubsampler {
	if maxSpread < 1 {
		maxSpread = 1
	}
	return &SpreadSubsampler{MaxSpread: maxSpread}
}

// Resample returns the subsampled training set. A training set missing a
// class is returned as a copy.
func (s *SpreadSubsampler) Resample(ctx context.Context, training *dataset.Dataset, rng *rand.Rand) (*dataset.Dataset, error) {
	minority := training.MinorityLabel()
	majority := indicesOf(training, minority.Other())
	nMin := training.Len() - len(majority)

	keep := int(math.Floor(s.MaxSpread * float64(nMin)))
	if nMin == 0 || len(majority) <= keep {
		return training.WithInstances(copyInstances(training.Instances, 0)), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dropped := make(map[int]bool, len(majority)-keep)
	for _, p := range rng.Perm(len(majority))[keep:] {
		dropped[majority[p]] = true
	}

	out := make([]dataset.Instance, 0, nMin+keep)
	for i, in := range training.Instances {
		if !dropped[i] {
			out = append(out, in)
		}
	}
	return training.WithInstances(out), nil
}

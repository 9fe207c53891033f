package ports

import (
	"context"
	"math/rand"

	"defecteval/domain/dataset"
)

// Resampler changes the class distribution of a training set. Implementations
// build a new dataset and never modify the input.
type Resampler interface {
	Resample(ctx context.Context, training *dataset.Dataset, rng *rand.Rand) (*dataset.Dataset, error)
}

// TargetedResampler resamples towards a minority percentage
type TargetedResampler interface {
	ResampleTo(ctx context.Context, training *dataset.Dataset, percent float64, rng *rand.Rand) (*dataset.Dataset, error)
}

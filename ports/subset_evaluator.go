package ports

import (
	"context"

	"defecteval/domain/dataset"
)

// SubsetEvaluator scores feature subsets of one training set
type SubsetEvaluator interface {
	// Prepare binds the evaluator to a training set and returns a scorer for
	// subsets of its feature indices. Higher merit is better.
	Prepare(ctx context.Context, training *dataset.Dataset) (SubsetScorer, error)
}

// SubsetScorer computes the merit of a subset of feature indices
type SubsetScorer interface {
	Merit(subset []int) float64
}

package ports

import (
	"defecteval/domain/evaluation"
)

// RNGPort derives the seeds of every random decision in a run. Seeds depend
// only on the base seed and the cell identity, never on scheduling order.
type RNGPort interface {
	// BalancingSeed seeds the resampling of one (release, selection, balancing) preparation
	BalancingSeed(release int, selection evaluation.FeatureSelectionPolicy, balancing evaluation.BalancingPolicy) int64

	// ClassifierSeed seeds the classifier of one cell
	ClassifierSeed(cell evaluation.Cell) int64
}

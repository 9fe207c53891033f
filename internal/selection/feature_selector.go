package selection

import (
	"context"
	"fmt"

	"defecteval/domain/core"
	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal"
	"defecteval/internal/errors"
	"defecteval/ports"
)

// Projection is a feature subset derived from one training set, as indices
// into the source schema in ascending order
type Projection struct {
	Indices []int
	Schema  dataset.Schema
	Merit   float64
}

// FeatureSelector derives a reduced schema from training data only and
// applies it verbatim to both slices of a split
type FeatureSelector struct {
	evaluator ports.SubsetEvaluator
	logger    *internal.Logger
}

// NewFeatureSelector creates a selector backed by a subset evaluator
func NewFeatureSelector(evaluator ports.SubsetEvaluator, logger *internal.Logger) *FeatureSelector {
	return &FeatureSelector{evaluator: evaluator, logger: logger}
}

// DeriveSchema runs a backward greedy stepwise search. Starting from every
// feature, each step scores the removal of each remaining feature and takes
// the best one if its merit is at least the current merit. The search stops
// when no removal qualifies or a single feature is left.
func (fs *FeatureSelector) DeriveSchema(ctx context.Context, training *dataset.Dataset) (*Projection, error) {
	scorer, err := fs.evaluator.Prepare(ctx, training)
	if err != nil {
		return nil, errors.Wrap(err, "feature selection")
	}

	current := make([]int, training.Schema.Width())
	for i := range current {
		current[i] = i
	}
	merit := scorer.Merit(current)

	for len(current) > 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bestMerit, bestDrop := merit, -1
		for drop := range current {
			m := scorer.Merit(without(current, drop))
			// ties go to the earliest feature, keeping the search deterministic
			if m >= bestMerit && (bestDrop < 0 || m > bestMerit) {
				bestMerit, bestDrop = m, drop
			}
		}
		if bestDrop < 0 {
			break
		}
		fs.logger.Trace("feature selection drops %s (merit %.4f -> %.4f)",
			training.Schema.Features[current[bestDrop]].Name, merit, bestMerit)
		current = without(current, bestDrop)
		merit = bestMerit
	}

	schema, err := training.Schema.Project(current)
	if err != nil {
		return nil, errors.InternalError(err.Error())
	}
	return &Projection{Indices: current, Schema: schema, Merit: merit}, nil
}

// Apply projects a dataset onto the projection. Row order and labels are kept.
func (fs *FeatureSelector) Apply(ds *dataset.Dataset, p *Projection) (*dataset.Dataset, error) {
	for _, idx := range p.Indices {
		if idx >= ds.Schema.Width() {
			return nil, errors.DataError(
				fmt.Sprintf("projection index %d exceeds %d features", idx, ds.Schema.Width()),
				core.ErrSchemaMismatch)
		}
	}

	out := make([]dataset.Instance, ds.Len())
	for i, in := range ds.Instances {
		features := make([]float64, len(p.Indices))
		for j, idx := range p.Indices {
			features[j] = in.Features[idx]
		}
		out[i] = dataset.Instance{Release: in.Release, Features: features, Label: in.Label}
	}
	return dataset.New(ds.Name, p.Schema, out), nil
}

// ApplyPair selects features for one split. SelectionNone returns both
// slices unchanged; SelectionBestFirst derives the projection from training
// and applies the identical projection to testing.
func (fs *FeatureSelector) ApplyPair(ctx context.Context, policy evaluation.FeatureSelectionPolicy, training, testing *dataset.Dataset) (*dataset.Dataset, *dataset.Dataset, error) {
	switch policy {
	case evaluation.SelectionNone:
		return training, testing, nil
	case evaluation.SelectionBestFirst:
	default:
		return nil, nil, errors.InternalError(fmt.Sprintf("unknown feature selection policy %d", int(policy)))
	}

	projection, err := fs.DeriveSchema(ctx, training)
	if err != nil {
		return nil, nil, err
	}
	trainOut, err := fs.Apply(training, projection)
	if err != nil {
		return nil, nil, err
	}
	testOut, err := fs.Apply(testing, projection)
	if err != nil {
		return nil, nil, err
	}
	if !trainOut.Schema.Equal(testOut.Schema) {
		return nil, nil, errors.InternalError(
			core.NewSchemaMismatchError(trainOut.Schema.FeatureNames(), testOut.Schema.FeatureNames()).Error())
	}

	fs.logger.Debug("feature selection kept %d of %d features: %v",
		len(projection.Indices), training.Schema.Width(), projection.Schema.FeatureNames())
	return trainOut, testOut, nil
}

func without(s []int, pos int) []int {
	out := make([]int, 0, len(s)-1)
	out = append(out, s[:pos]...)
	return append(out, s[pos+1:]...)
}

package learn

import (
	"context"
	"math"

	"defecteval/domain/dataset"
	"defecteval/internal/errors"
	"defecteval/ports"

	"gonum.org/v1/gonum/stat"
)

// CFSEvaluator scores feature subsets by correlation-based merit:
//
//	merit = k * mean|r_cf| / sqrt(k + k(k-1) * mean|r_ff|)
//
// where r_cf is the feature/class correlation and r_ff the pairwise feature
// correlation. The class is coded 0 (clean) / 1 (defective). Correlations of
// constant columns are undefined and count as 0.
type CFSEvaluator struct{}

// NewCFSEvaluator creates a subset evaluator
func NewCFSEvaluator() *CFSEvaluator {
	return &CFSEvaluator{}
}

// Prepare computes every correlation of the training set once
func (e *CFSEvaluator) Prepare(ctx context.Context, training *dataset.Dataset) (ports.SubsetScorer, error) {
	if training == nil || training.Len() < 2 {
		return nil, errors.DataError("cfs: at least two training instances are required", nil)
	}

	width := training.Schema.Width()
	columns := make([][]float64, width)
	for j := range columns {
		columns[j] = training.Column(j)
	}
	class := training.ClassVector()

	s := &cfsScorer{
		classCorr:   make([]float64, width),
		featureCorr: make([][]float64, width),
	}
	for j := 0; j < width; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.classCorr[j] = absCorrelation(columns[j], class)
		s.featureCorr[j] = make([]float64, width)
		s.featureCorr[j][j] = 1
		for i := 0; i < j; i++ {
			r := absCorrelation(columns[i], columns[j])
			s.featureCorr[i][j] = r
			s.featureCorr[j][i] = r
		}
	}
	return s, nil
}

type cfsScorer struct {
	classCorr   []float64
	featureCorr [][]float64
}

// Merit returns the merit of the subset; the empty subset scores 0
func (s *cfsScorer) Merit(subset []int) float64 {
	k := len(subset)
	if k == 0 {
		return 0
	}

	var rcf float64
	for _, f := range subset {
		rcf += s.classCorr[f]
	}
	rcf /= float64(k)

	var rff float64
	if k > 1 {
		pairs := 0
		for a := 0; a < k; a++ {
			for b := a + 1; b < k; b++ {
				rff += s.featureCorr[subset[a]][subset[b]]
				pairs++
			}
		}
		rff /= float64(pairs)
	}

	kf := float64(k)
	denom := math.Sqrt(kf + kf*(kf-1)*rff)
	if denom == 0 {
		return 0
	}
	return kf * rcf / denom
}

func absCorrelation(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Abs(r)
}

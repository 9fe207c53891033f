package learn

import (
	"context"
	"math"
	"sort"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal/errors"
	"defecteval/ports"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// defaultPrecision is used for columns with fewer than two distinct values
const defaultPrecision = 0.01

// NaiveBayes is a Gaussian naive Bayes classifier. Each feature is modelled
// per class as a normal distribution whose standard deviation is floored at
// one sixth of the column's value precision, so constant columns stay usable.
type NaiveBayes struct {
	width     int
	logPriors [2]float64
	dists     [2][]distuv.Normal
	fitted    bool
}

// NewNaiveBayes creates an unfitted classifier
func NewNaiveBayes() *NaiveBayes {
	return &NaiveBayes{}
}

// Kind returns the classifier kind
func (nb *NaiveBayes) Kind() evaluation.ClassifierKind {
	return evaluation.ClassifierNaiveBayes
}

// Fit estimates class priors and per-class feature distributions
func (nb *NaiveBayes) Fit(ctx context.Context, training *dataset.Dataset) error {
	if err := checkTrainable("naive bayes", training); err != nil {
		return err
	}

	width := training.Schema.Width()
	n := float64(training.Len())
	var dists [2][]distuv.Normal
	var logPriors [2]float64

	for _, label := range []dataset.Label{dataset.LabelClean, dataset.LabelDefective} {
		count := float64(training.ClassCount(label))
		// Laplace-smoothed prior
		logPriors[label] = math.Log((count + 1) / (n + 2))
		dists[label] = make([]distuv.Normal, width)
	}

	for j := 0; j < width; j++ {
		if err := ctx.Err(); err != nil {
			return errors.ModelFitError("naive bayes: fit cancelled", err)
		}
		column := training.Column(j)
		floor := precisionOf(column) / 6

		byClass := [2]stats.Float64Data{}
		for i, in := range training.Instances {
			byClass[in.Label] = append(byClass[in.Label], column[i])
		}
		for _, label := range []dataset.Label{dataset.LabelClean, dataset.LabelDefective} {
			mean, err := stats.Mean(byClass[label])
			if err != nil {
				return errors.ModelFitError("naive bayes: mean estimation failed", err)
			}
			sd, err := stats.StandardDeviationPopulation(byClass[label])
			if err != nil {
				return errors.ModelFitError("naive bayes: deviation estimation failed", err)
			}
			dists[label][j] = distuv.Normal{Mu: mean, Sigma: math.Max(sd, floor)}
		}
	}

	nb.width = width
	nb.logPriors = logPriors
	nb.dists = dists
	nb.fitted = true
	return nil
}

// Predict returns the posterior defect probability of every instance
func (nb *NaiveBayes) Predict(ctx context.Context, testing *dataset.Dataset) ([]ports.Prediction, error) {
	if err := checkPredictable("naive bayes", nb.fitted, nb.width, testing); err != nil {
		return nil, err
	}

	predictions := make([]ports.Prediction, testing.Len())
	for i, in := range testing.Instances {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var logPost [2]float64
		for label := range logPost {
			lp := nb.logPriors[label]
			for j, x := range in.Features {
				lp += nb.dists[label][j].LogProb(x)
			}
			logPost[label] = lp
		}
		p := posterior(logPost[dataset.LabelDefective], logPost[dataset.LabelClean])
		predictions[i] = ports.Prediction{Label: labelFor(p), DefectProbability: p}
	}
	return predictions, nil
}

// posterior normalises two log scores into the probability of the first
func posterior(logA, logB float64) float64 {
	switch {
	case math.IsInf(logA, -1) && math.IsInf(logB, -1):
		return 0.5
	case logA >= logB:
		return 1 / (1 + math.Exp(logB-logA))
	default:
		e := math.Exp(logA - logB)
		return e / (1 + e)
	}
}

// labelFor turns a defect probability into a label; ties go to clean
func labelFor(p float64) dataset.Label {
	if p > 0.5 {
		return dataset.LabelDefective
	}
	return dataset.LabelClean
}

// precisionOf returns the mean gap between adjacent distinct values
func precisionOf(column []float64) float64 {
	sorted := append([]float64(nil), column...)
	sort.Float64s(sorted)

	distinct := 0
	var total float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			total += sorted[i] - sorted[i-1]
			distinct++
		}
	}
	if distinct == 0 {
		return defaultPrecision
	}
	return total / float64(distinct)
}

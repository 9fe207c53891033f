package evaluation

import (
	"context"
	"fmt"
	"math"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal/errors"
	"defecteval/ports"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Evaluator scores a fitted classifier on a testing slice with the
// defective label as the positive class
type Evaluator struct{}

// NewEvaluator creates an evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate predicts every testing instance and derives the metrics. Either
// the complete metrics or an error is returned.
func (e *Evaluator) Evaluate(ctx context.Context, model ports.Classifier, testing *dataset.Dataset) (evaluation.ConfusionMetrics, error) {
	predictions, err := model.Predict(ctx, testing)
	if err != nil {
		return evaluation.ConfusionMetrics{}, errors.Wrapf(err, "%s: predict", model.Kind())
	}
	if len(predictions) != testing.Len() {
		return evaluation.ConfusionMetrics{}, errors.InternalError(
			fmt.Sprintf("%s returned %d predictions for %d instances", model.Kind(), len(predictions), testing.Len()))
	}
	return Score(testing, predictions), nil
}

// Score tabulates the confusion matrix and the derived scores
func Score(testing *dataset.Dataset, predictions []ports.Prediction) evaluation.ConfusionMetrics {
	var m evaluation.ConfusionMetrics
	for i, in := range testing.Instances {
		predicted := predictions[i].Label == dataset.LabelDefective
		switch {
		case in.IsDefective() && predicted:
			m.TruePositive++
		case in.IsDefective():
			m.FalseNegative++
		case predicted:
			m.FalsePositive++
		default:
			m.TrueNegative++
		}
	}

	m.Precision = ratio(m.TruePositive, m.TruePositive+m.FalsePositive)
	m.Recall = ratio(m.TruePositive, m.TruePositive+m.FalseNegative)
	m.Kappa = kappa(m)
	m.ROCArea = rocArea(testing, predictions)
	return m
}

// ratio is 0 on a zero denominator
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// kappa is Cohen's kappa; perfect chance agreement counts as full agreement
func kappa(m evaluation.ConfusionMetrics) float64 {
	n := float64(m.Total())
	if n == 0 {
		return 0
	}
	po := float64(m.TruePositive+m.TrueNegative) / n
	actualPos := float64(m.TruePositive + m.FalseNegative)
	actualNeg := float64(m.TrueNegative + m.FalsePositive)
	predPos := float64(m.TruePositive + m.FalsePositive)
	predNeg := float64(m.TrueNegative + m.FalseNegative)
	pe := (actualPos*predPos + actualNeg*predNeg) / (n * n)
	if pe == 1 {
		return 1
	}
	return (po - pe) / (1 - pe)
}

// rocArea integrates the ROC curve of the defect probabilities. It is NaN
// when the testing slice holds a single class.
func rocArea(testing *dataset.Dataset, predictions []ports.Prediction) float64 {
	defects := testing.DefectCount()
	if defects == 0 || defects == testing.Len() {
		return math.NaN()
	}

	scores := make([]float64, len(predictions))
	classes := make([]bool, len(predictions))
	for i, p := range predictions {
		scores[i] = p.DefectProbability
		classes[i] = testing.Instances[i].IsDefective()
	}
	stat.SortWeightedLabeled(scores, classes, nil)

	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

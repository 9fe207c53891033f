package evaluation

import (
	"context"
	"math"
	"testing"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
	"defecteval/internal/errors"
	"defecteval/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Kind() evaluation.ClassifierKind {
	return evaluation.ClassifierNaiveBayes
}

func (m *mockClassifier) Fit(ctx context.Context, training *dataset.Dataset) error {
	return m.Called(ctx, training).Error(0)
}

func (m *mockClassifier) Predict(ctx context.Context, testing *dataset.Dataset) ([]ports.Prediction, error) {
	args := m.Called(ctx, testing)
	preds, _ := args.Get(0).([]ports.Prediction)
	return preds, args.Error(1)
}

func labelled(labels ...dataset.Label) *dataset.Dataset {
	schema, _ := dataset.NewSchema([]string{"x numeric", "Buggy {Yes,No}"})
	instances := make([]dataset.Instance, len(labels))
	for i, l := range labels {
		instances[i] = dataset.Instance{Release: 2, Features: []float64{float64(i)}, Label: l}
	}
	return dataset.New("eval", schema, instances)
}

func pred(l dataset.Label, p float64) ports.Prediction {
	return ports.Prediction{Label: l, DefectProbability: p}
}

const (
	D = dataset.LabelDefective
	C = dataset.LabelClean
)

func TestScore_ConfusionAndScores(t *testing.T) {
	testSet := labelled(D, D, D, C, C, C, C, C)
	preds := []ports.Prediction{
		pred(D, 0.9), pred(D, 0.8), pred(C, 0.3),
		pred(D, 0.6), pred(C, 0.2), pred(C, 0.1), pred(C, 0.1), pred(C, 0.05),
	}

	m := Score(testSet, preds)
	assert.Equal(t, 2, m.TruePositive)
	assert.Equal(t, 1, m.FalseNegative)
	assert.Equal(t, 1, m.FalsePositive)
	assert.Equal(t, 4, m.TrueNegative)
	assert.InDelta(t, 2.0/3.0, m.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, m.Recall, 1e-12)

	// po = 6/8, pe = (3*3 + 5*5)/64
	po, pe := 6.0/8.0, 34.0/64.0
	assert.InDelta(t, (po-pe)/(1-pe), m.Kappa, 1e-12)

	// 14 of 15 positive/negative pairs are ranked correctly
	assert.InDelta(t, 14.0/15.0, m.ROCArea, 1e-12)
}

func TestScore_ZeroDenominators(t *testing.T) {
	testSet := labelled(D, C, C)
	preds := []ports.Prediction{pred(C, 0.4), pred(C, 0.1), pred(C, 0.2)}

	m := Score(testSet, preds)
	assert.Equal(t, 0.0, m.Precision)
	assert.Equal(t, 0.0, m.Recall)
	assert.Equal(t, 1.0, m.ROCArea)
	assert.Equal(t, 0.0, m.Kappa)
}

func TestScore_ROCWithTiedProbabilities(t *testing.T) {
	testSet := labelled(C, D, C, D, D)
	preds := []ports.Prediction{pred(C, 0), pred(D, 1), pred(D, 1), pred(C, 0), pred(D, 1)}

	m := Score(testSet, preds)
	// 2 of 6 pairs ranked correctly, 3 tied
	assert.InDelta(t, (2+0.5*3)/6.0, m.ROCArea, 1e-12)
	assert.Equal(t, 2, m.TruePositive)
	assert.Equal(t, 1, m.FalsePositive)
}

func TestScore_SingleClassTesting(t *testing.T) {
	testSet := labelled(C, C, C)
	preds := []ports.Prediction{pred(C, 0.1), pred(C, 0.2), pred(C, 0.3)}

	m := Score(testSet, preds)
	assert.True(t, math.IsNaN(m.ROCArea))
	assert.Equal(t, 1.0, m.Kappa, "perfect chance agreement")
	assert.Equal(t, 3, m.TrueNegative)
}

func TestEvaluate_PropagatesPredictErrors(t *testing.T) {
	testSet := labelled(D, C)
	model := &mockClassifier{}
	model.On("Predict", mock.Anything, testSet).Return(nil, errors.ModelFitError("not fitted", nil))

	m, err := NewEvaluator().Evaluate(context.Background(), model, testSet)
	require.Error(t, err)
	assert.Equal(t, evaluation.ConfusionMetrics{}, m)
	assert.Equal(t, errors.CodeModelFit, errors.GetCode(err))
}

func TestEvaluate_PredictionCountMismatch(t *testing.T) {
	testSet := labelled(D, C)
	model := &mockClassifier{}
	model.On("Predict", mock.Anything, testSet).Return([]ports.Prediction{pred(D, 1)}, nil)

	_, err := NewEvaluator().Evaluate(context.Background(), model, testSet)
	assert.Error(t, err)
}

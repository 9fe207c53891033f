package ports

import (
	"context"

	"defecteval/domain/dataset"
	"defecteval/domain/evaluation"
)

// Classifier is a binary learner. Fit must be called before Predict, and
// Predict expects the same feature schema the model was fitted on.
type Classifier interface {
	Kind() evaluation.ClassifierKind
	Fit(ctx context.Context, training *dataset.Dataset) error
	Predict(ctx context.Context, testing *dataset.Dataset) ([]Prediction, error)
}

// Prediction is the model output for one instance
type Prediction struct {
	Label             dataset.Label
	DefectProbability float64
}

// ClassifierFactory builds an unfitted classifier for one cell
type ClassifierFactory interface {
	New(kind evaluation.ClassifierKind, seed int64) (Classifier, error)
}

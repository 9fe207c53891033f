package learn

import (
	"fmt"

	"defecteval/domain/evaluation"
	"defecteval/internal/errors"
	"defecteval/ports"
)

// Factory builds fresh classifiers for matrix cells
type Factory struct {
	Trees      int
	Neighbours int
}

// NewFactory creates a factory with the default hyperparameters:
// 100 trees for the forest and one neighbour for KNN
func NewFactory() *Factory {
	return &Factory{Trees: DefaultTrees, Neighbours: 1}
}

// New returns an unfitted classifier of the given kind
func (f *Factory) New(kind evaluation.ClassifierKind, seed int64) (ports.Classifier, error) {
	switch kind {
	case evaluation.ClassifierRandomForest:
		return NewRandomForest(f.Trees, seed), nil
	case evaluation.ClassifierNaiveBayes:
		return NewNaiveBayes(), nil
	case evaluation.ClassifierKNN:
		return NewKNN(f.Neighbours), nil
	default:
		return nil, errors.InternalError(fmt.Sprintf("unknown classifier kind %d", int(kind)))
	}
}

var (
	_ ports.ClassifierFactory = (*Factory)(nil)
	_ ports.Classifier        = (*RandomForest)(nil)
	_ ports.Classifier        = (*NaiveBayes)(nil)
	_ ports.Classifier        = (*KNN)(nil)
	_ ports.SubsetEvaluator   = (*CFSEvaluator)(nil)
	_ ports.TargetedResampler = (*Resampler)(nil)
	_ ports.Resampler         = (*SpreadSubsampler)(nil)
	_ ports.Resampler         = (*SMOTE)(nil)
)

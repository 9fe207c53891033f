package evaluation

import (
	"fmt"
	"strings"
)

// FeatureSelectionPolicy selects how the training schema is reduced
type FeatureSelectionPolicy int

const (
	SelectionNone FeatureSelectionPolicy = iota
	SelectionBestFirst
)

// BalancingPolicy selects how the training class distribution is changed
type BalancingPolicy int

const (
	BalancingNone BalancingPolicy = iota
	BalancingOversample
	BalancingUndersample
	BalancingSMOTE
)

// ClassifierKind selects the learning algorithm
type ClassifierKind int

const (
	ClassifierRandomForest ClassifierKind = iota
	ClassifierNaiveBayes
	ClassifierKNN
)

// AllFeatureSelectionPolicies returns every selection policy in enumeration order
func AllFeatureSelectionPolicies() []FeatureSelectionPolicy {
	return []FeatureSelectionPolicy{SelectionNone, SelectionBestFirst}
}

// AllBalancingPolicies returns every balancing policy in enumeration order
func AllBalancingPolicies() []BalancingPolicy {
	return []BalancingPolicy{BalancingNone, BalancingOversample, BalancingUndersample, BalancingSMOTE}
}

// AllClassifierKinds returns every classifier in enumeration order
func AllClassifierKinds() []ClassifierKind {
	return []ClassifierKind{ClassifierRandomForest, ClassifierNaiveBayes, ClassifierKNN}
}

var (
	selectionIDs     = []string{"none", "best_first"}
	selectionLabels  = []string{"No selection", "Best first"}
	balancingIDs     = []string{"none", "oversample", "undersample", "smote"}
	balancingLabels  = []string{"No sampling", "Oversampling", "Undersampling", "SMOTE"}
	classifierIDs    = []string{"random_forest", "naive_bayes", "knn"}
	classifierLabels = []string{"RandomForest", "NaiveBayes", "IBk"}
)

// ID returns the configuration identifier
func (p FeatureSelectionPolicy) ID() string { return lookup(selectionIDs, int(p)) }

// String returns the report label
func (p FeatureSelectionPolicy) String() string { return lookup(selectionLabels, int(p)) }

// ID returns the configuration identifier
func (p BalancingPolicy) ID() string { return lookup(balancingIDs, int(p)) }

// String returns the report label
func (p BalancingPolicy) String() string { return lookup(balancingLabels, int(p)) }

// ID returns the configuration identifier
func (k ClassifierKind) ID() string { return lookup(classifierIDs, int(k)) }

// String returns the report label
func (k ClassifierKind) String() string { return lookup(classifierLabels, int(k)) }

// ParseFeatureSelectionPolicy accepts an identifier or a report label
func ParseFeatureSelectionPolicy(s string) (FeatureSelectionPolicy, error) {
	i, err := parse("feature selection policy", s, selectionIDs, selectionLabels)
	return FeatureSelectionPolicy(i), err
}

// ParseBalancingPolicy accepts an identifier or a report label
func ParseBalancingPolicy(s string) (BalancingPolicy, error) {
	i, err := parse("balancing policy", s, balancingIDs, balancingLabels)
	return BalancingPolicy(i), err
}

// ParseClassifierKind accepts an identifier or a report label
func ParseClassifierKind(s string) (ClassifierKind, error) {
	i, err := parse("classifier", s, classifierIDs, classifierLabels)
	return ClassifierKind(i), err
}

func lookup(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return names[i]
}

func parse(what, s string, ids, labels []string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i := range ids {
		if key == ids[i] || key == strings.ToLower(labels[i]) {
			return i, nil
		}
	}
	// accept dashes in identifiers
	key = strings.ReplaceAll(key, "-", "_")
	for i := range ids {
		if key == ids[i] {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (valid: %s)", what, s, strings.Join(ids, ", "))
}

// ConfusionMetrics holds the 2x2 confusion matrix and derived scores of one
// evaluation, with the defective label as the positive class
type ConfusionMetrics struct {
	TruePositive  int     `json:"tp" db:"tp"`
	FalsePositive int     `json:"fp" db:"fp"`
	TrueNegative  int     `json:"tn" db:"tn"`
	FalseNegative int     `json:"fn" db:"fn"`
	Precision     float64 `json:"precision" db:"precision"`
	Recall        float64 `json:"recall" db:"recall"`
	ROCArea       float64 `json:"roc_area" db:"roc_area"`
	Kappa         float64 `json:"kappa" db:"kappa"`
}

// Total returns the number of evaluated instances
func (m ConfusionMetrics) Total() int {
	return m.TruePositive + m.FalsePositive + m.TrueNegative + m.FalseNegative
}

// Record is one completed matrix cell
type Record struct {
	Dataset          string                 `json:"dataset"`
	TrainingRelease  int                    `json:"training_release"`
	TrainingFraction float64                `json:"training_fraction"`
	TrainDefectRate  float64                `json:"train_defect_rate"`
	TestDefectRate   float64                `json:"test_defect_rate"`
	Classifier       ClassifierKind         `json:"classifier"`
	Balancing        BalancingPolicy        `json:"balancing"`
	FeatureSelection FeatureSelectionPolicy `json:"feature_selection"`
	Metrics          ConfusionMetrics       `json:"metrics"`
}

// ReleaseBookkeeping holds the per-release ratios shared by every record of that release
type ReleaseBookkeeping struct {
	Release          int     `json:"release"`
	TrainingRelease  int     `json:"training_release"`
	TrainingSize     int     `json:"training_size"`
	TestingSize      int     `json:"testing_size"`
	TrainingFraction float64 `json:"training_fraction"`
	TrainDefectRate  float64 `json:"train_defect_rate"`
	TestDefectRate   float64 `json:"test_defect_rate"`
	TargetPercent    float64 `json:"target_percent"`
}

// NewRecord assembles a record once the metrics of a cell are known
func NewRecord(datasetName string, cell Cell, book ReleaseBookkeeping, metrics ConfusionMetrics) Record {
	return Record{
		Dataset:          datasetName,
		TrainingRelease:  book.TrainingRelease,
		TrainingFraction: book.TrainingFraction,
		TrainDefectRate:  book.TrainDefectRate,
		TestDefectRate:   book.TestDefectRate,
		Classifier:       cell.Classifier,
		Balancing:        cell.Balancing,
		FeatureSelection: cell.Selection,
		Metrics:          metrics,
	}
}

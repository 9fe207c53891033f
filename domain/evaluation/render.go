package evaluation

import (
	"fmt"
	"strconv"
)

// RecordHeader lists the report columns in output order
var RecordHeader = []string{
	"Dataset", "Training release", "%Training", "%Defective in training", "%Defective in testing",
	"Classifier", "Balancing", "Feature selection",
	"TP", "FP", "TN", "FN", "Precision", "Recall", "ROC Area", "Kappa",
}

// Fields renders a record as report cells, aligned with RecordHeader.
// Floats use the shortest representation that round-trips.
func (r Record) Fields() []string {
	m := r.Metrics
	return []string{
		r.Dataset,
		strconv.Itoa(r.TrainingRelease),
		formatFloat(r.TrainingFraction),
		formatFloat(r.TrainDefectRate),
		formatFloat(r.TestDefectRate),
		r.Classifier.String(),
		r.Balancing.String(),
		r.FeatureSelection.String(),
		strconv.Itoa(m.TruePositive),
		strconv.Itoa(m.FalsePositive),
		strconv.Itoa(m.TrueNegative),
		strconv.Itoa(m.FalseNegative),
		formatFloat(m.Precision),
		formatFloat(m.Recall),
		formatFloat(m.ROCArea),
		formatFloat(m.Kappa),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseRecord reads a record back from its report cells. Policy and
// classifier cells accept report labels or identifiers.
func ParseRecord(fields []string) (Record, error) {
	if len(fields) != len(RecordHeader) {
		return Record{}, fmt.Errorf("expected %d fields, found %d", len(RecordHeader), len(fields))
	}

	var (
		r    Record
		errs []error
	)
	atoi := func(i int) int {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", RecordHeader[i], err))
		}
		return v
	}
	atof := func(i int) float64 {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", RecordHeader[i], err))
		}
		return v
	}

	r.Dataset = fields[0]
	r.TrainingRelease = atoi(1)
	r.TrainingFraction = atof(2)
	r.TrainDefectRate = atof(3)
	r.TestDefectRate = atof(4)
	r.Metrics = ConfusionMetrics{
		TruePositive:  atoi(8),
		FalsePositive: atoi(9),
		TrueNegative:  atoi(10),
		FalseNegative: atoi(11),
		Precision:     atof(12),
		Recall:        atof(13),
		ROCArea:       atof(14),
		Kappa:         atof(15),
	}
	if len(errs) > 0 {
		return Record{}, errs[0]
	}

	var err error
	if r.Classifier, err = ParseClassifierKind(fields[5]); err != nil {
		return Record{}, err
	}
	if r.Balancing, err = ParseBalancingPolicy(fields[6]); err != nil {
		return Record{}, err
	}
	if r.FeatureSelection, err = ParseFeatureSelectionPolicy(fields[7]); err != nil {
		return Record{}, err
	}
	return r, nil
}

package learn

import (
	"fmt"

	"defecteval/domain/core"
	"defecteval/domain/dataset"
	"defecteval/internal/errors"
)

// checkTrainable rejects training sets no classifier can learn from
func checkTrainable(name string, training *dataset.Dataset) error {
	if training == nil || training.Len() == 0 {
		return errors.ModelFitError(fmt.Sprintf("%s: empty training set", name), core.ErrInsufficientData)
	}
	defects := training.DefectCount()
	if defects == 0 || defects == training.Len() {
		return errors.ModelFitError(
			fmt.Sprintf("%s: training set holds only %s instances", name, training.Instances[0].Label),
			core.ErrSingleClass)
	}
	if err := training.Validate(); err != nil {
		return errors.ModelFitError(name+": malformed training set", err)
	}
	return nil
}

// checkPredictable guards Predict calls
func checkPredictable(name string, fitted bool, width int, testing *dataset.Dataset) error {
	if !fitted {
		return errors.ModelFitError(name+": predict called before fit", core.ErrNotFitted)
	}
	if testing == nil {
		return errors.ModelFitError(name+": nil testing set", core.ErrInsufficientData)
	}
	if testing.Schema.Width() != width {
		return errors.ModelFitError(
			fmt.Sprintf("%s: model fitted on %d features, testing set has %d", name, width, testing.Schema.Width()),
			core.ErrSchemaMismatch)
	}
	return testing.Validate()
}

// indicesOf returns the positions of instances carrying label l
func indicesOf(ds *dataset.Dataset, l dataset.Label) []int {
	var idx []int
	for i, in := range ds.Instances {
		if in.Label == l {
			idx = append(idx, i)
		}
	}
	return idx
}

// copyInstances returns a new slice header over the same immutable instances
func copyInstances(instances []dataset.Instance, extra int) []dataset.Instance {
	out := make([]dataset.Instance, len(instances), len(instances)+extra)
	copy(out, instances)
	return out
}

package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Split and schema errors
	ErrLeakage         = errors.New("data leakage detected")
	ErrSchemaMismatch  = errors.New("schema mismatch between training and testing")
	ErrEmptyRelease    = errors.New("no instances for release")
	ErrReleaseOrdering = errors.New("release ordinals not contiguous and ascending")

	// Model errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrSingleClass      = fmt.Errorf("%w: training data holds a single class", ErrInsufficientData)
	ErrNotFitted        = errors.New("model has not been fitted")
)

// NewLeakageError reports an instance that crossed the walk-forward boundary
func NewLeakageError(slice string, release, boundary int) error {
	return fmt.Errorf("%w: %s instance from release %d at boundary %d", ErrLeakage, slice, release, boundary)
}

// NewSchemaMismatchError reports differing attribute lists
func NewSchemaMismatchError(training, testing []string) error {
	return fmt.Errorf("%w: training %v, testing %v", ErrSchemaMismatch, training, testing)
}

// NewEmptyReleaseError reports a release with nothing to test on
func NewEmptyReleaseError(release int) error {
	return fmt.Errorf("%w %d", ErrEmptyRelease, release)
}

// NewReleaseOrderingError reports the row where the ordering broke
func NewReleaseOrderingError(row, previous, current int) error {
	return fmt.Errorf("%w: row %d goes from release %d to %d", ErrReleaseOrdering, row, previous, current)
}

// NewValidationError reports an invalid field value
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// IsSplitError reports whether err breaks the walk-forward split contract
func IsSplitError(err error) bool {
	return errors.Is(err, ErrLeakage) ||
		errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrReleaseOrdering)
}

// IsDataShortage reports whether err comes from missing or degenerate data
func IsDataShortage(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrEmptyRelease)
}

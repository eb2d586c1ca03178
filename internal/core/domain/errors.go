package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is a non-fatal warning: the scan succeeded but produced no
// samples for the selected sequence, so nothing was exported.
var ErrEmptyResult = errors.New("no samples matched or validated")

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// PreconditionError reports a scan invoked in an unusable state, such as
// without an opened raster or with a non-invertible transform.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Reason)
}

// InvalidInputError reports a caller-supplied value outside its valid range.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsPrecondition reports whether err wraps a *PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsInvalidInput reports whether err wraps an *InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

package deps

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when a distribution could not be imported
// even after an install attempt. Match with errors.Is.
var ErrUnavailable = errors.New("deps: dependency unavailable")

// UnavailableError carries the distribution name and underlying cause
// of a failed resolution.
type UnavailableError struct {
	Dist string
	Err  error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("deps: %s unavailable: %v", e.Dist, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

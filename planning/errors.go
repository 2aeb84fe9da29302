package planning

import (
	"errors"
	"fmt"
)

// Every failed run wraps exactly one of these. Callers should test with errors.Is.
var (
	// ErrInvalidInput is returned for a malformed board (dimension, noise, gamma) or options.
	ErrInvalidInput error = errors.New("invalid input")
	// ErrSingularSystem is returned by exact policy evaluation when the linear system has no unique solution.
	ErrSingularSystem error = errors.New("singular linear system")
	// ErrDidNotConverge is returned when an iteration cap is exceeded.
	ErrDidNotConverge error = errors.New("did not converge")
)

func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

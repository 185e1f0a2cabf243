package core

import (
	"errors"
	"fmt"
)

// Error classes returned by the kernel. Call sites wrap them with context, so
// callers should match with errors.Is.
var (
	// ErrConfiguration reports invalid construction parameters.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrOutOfBounds reports direct addressing outside a bounded grid.
	ErrOutOfBounds = errors.New("cell out of bounds")
	// ErrCapacity reports a placement or move into a full cell. Recoverable.
	ErrCapacity = errors.New("cell at capacity")
	// ErrNoCapacity reports that no cell has free capacity. Recoverable.
	ErrNoCapacity = errors.New("grid has no free capacity")
	// ErrInvalidState reports stepping a terminated simulation or reusing a
	// removed agent handle. Fatal to the run.
	ErrInvalidState = errors.New("invalid state")
	// ErrConsistency reports that the direct and aggregate neighborhood
	// strategies disagree. Fatal to the run.
	ErrConsistency = errors.New("neighborhood strategies disagree")
)

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Recoverable reports whether err is a capacity rejection that a behavior hook
// may handle locally without aborting the step.
func Recoverable(err error) bool {
	return errors.Is(err, ErrCapacity) || errors.Is(err, ErrNoCapacity)
}

// Fatal reports whether err must abort the simulation run.
func Fatal(err error) bool {
	return err != nil && !Recoverable(err)
}

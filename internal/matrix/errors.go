package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrConstruction is returned when a backing sequence does not hold exactly
	// the number of elements the format requires.
	ErrConstruction = errors.New("matrix: element count does not match format")

	// ErrOutOfRange is returned by lookups with an index outside [0, n).
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrUnsupportedFormat is returned for format names with no implementation.
	ErrUnsupportedFormat = errors.New("matrix: unsupported format")

	// ErrInvalidDimension is returned for non-positive dimensions and for
	// dimensions above MaxDimension.
	ErrInvalidDimension = errors.New("matrix: dimension out of range")
)

// CountError describes a backing sequence of the wrong length.
type CountError struct {
	Format    Format
	Dimension int
	Expected  int
	Actual    int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("matrix: %s of dimension %d needs %d elements, got %d",
		e.Format, e.Dimension, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrConstruction) hold.
func (e *CountError) Is(target error) bool {
	return target == ErrConstruction
}

package matrix

import (
	"fmt"
	"math"
)

// Format is an EDGE_WEIGHT_FORMAT storage layout.
type Format string

const (
	FullMatrix   Format = "FULL_MATRIX"
	UpperRow     Format = "UPPER_ROW"
	LowerRow     Format = "LOWER_ROW"
	UpperDiagRow Format = "UPPER_DIAG_ROW"
	LowerDiagRow Format = "LOWER_DIAG_ROW"
	UpperCol     Format = "UPPER_COL"
	LowerCol     Format = "LOWER_COL"
	UpperDiagCol Format = "UPPER_DIAG_COL"
	LowerDiagCol Format = "LOWER_DIAG_COL"

	// Function is a recognized spelling with no storage layout.
	Function Format = "FUNCTION"
)

// Formats lists the nine supported layouts.
var Formats = []Format{
	FullMatrix,
	UpperRow, LowerRow, UpperDiagRow, LowerDiagRow,
	UpperCol, LowerCol, UpperDiagCol, LowerDiagCol,
}

// ParseFormat maps a spelling to a supported Format.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Recognized reports whether s is any known EDGE_WEIGHT_FORMAT spelling,
// including those without an implementation.
func Recognized(s string) bool {
	if Format(s) == Function {
		return true
	}
	_, err := ParseFormat(s)
	return err == nil
}

// Triangular reports whether f stores only half of a symmetric matrix.
func (f Format) Triangular() bool {
	return f != FullMatrix
}

// HasDiagonal reports whether f stores the diagonal.
func (f Format) HasDiagonal() bool {
	switch f {
	case FullMatrix, UpperDiagRow, LowerDiagRow, UpperDiagCol, LowerDiagCol:
		return true
	}
	return false
}

// MaxDimension is the largest n whose element count fits in an int.
var MaxDimension = int(math.Sqrt(float64(math.MaxInt)))

// TriangularNumber returns n*(n+1)/2.
func TriangularNumber(n int) int {
	return n * (n + 1) / 2
}

// ElementCount returns the backing sequence length f needs for dimension n.
func ElementCount(f Format, n int) (int, error) {
	if n <= 0 || n > MaxDimension {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDimension, n)
	}
	if _, err := ParseFormat(string(f)); err != nil {
		return 0, err
	}
	switch {
	case f == FullMatrix:
		return n * n, nil
	case f.HasDiagonal():
		return TriangularNumber(n), nil
	default:
		return TriangularNumber(n - 1), nil
	}
}

// DimensionFor inverts ElementCount. It reports false when no dimension
// produces exactly count elements.
func DimensionFor(f Format, count int) (int, bool) {
	if count < 0 {
		return 0, false
	}
	// Counts grow monotonically with n, so a short linear scan from an
	// estimate is enough.
	n := 1
	for {
		c, err := ElementCount(f, n)
		if err != nil {
			return 0, false
		}
		if c == count {
			return n, true
		}
		if c > count {
			return 0, false
		}
		n = nextCandidate(f, n, count)
	}
}

func nextCandidate(f Format, n, count int) int {
	// Jump close to the root first, then walk.
	if n == 1 {
		guess := isqrt(count)
		if f.Triangular() {
			guess = isqrt(2 * count)
		}
		if guess > 2 {
			return guess - 1
		}
	}
	return n + 1
}

func isqrt(v int) int {
	if v <= 0 {
		return 0
	}
	x := v
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + v/x) / 2
	}
	return x
}

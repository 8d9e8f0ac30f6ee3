// Package matrix reconstructs random-access distance lookups from the flat
// weight sequences of explicit problem files.
//
// Each of the nine storage formats has its own Matrix implementation. The
// column-major formats wrap the opposite row-major implementation and swap
// the lookup indices, so the two families cannot drift apart. Lookups read
// the backing sequence directly; nothing is densified unless Densify is called.
package matrix

import "fmt"

// LazyThreshold is the element count above which callers should avoid Densify.
const LazyThreshold = 100_000

// Matrix is a read-only n×n distance lookup.
type Matrix interface {
	// Dimension is the logical size n.
	Dimension() int
	// Format is the storage layout of the backing sequence.
	Format() Format
	// Distance returns the weight at (i, j). Indices outside [0, n) yield ErrOutOfRange.
	Distance(i, j int) (int, error)
	// Weights returns a copy of the backing sequence.
	Weights() []int
}

// New builds the Matrix for format f over the backing sequence weights.
// The length of weights must equal ElementCount(f, n). New takes ownership of
// weights; callers must not modify the slice afterwards.
func New(f Format, n int, weights []int) (Matrix, error) {
	want, err := ElementCount(f, n)
	if err != nil {
		return nil, err
	}
	if len(weights) != want {
		return nil, &CountError{Format: f, Dimension: n, Expected: want, Actual: len(weights)}
	}

	b := backing{n: n, w: weights}
	switch f {
	case FullMatrix:
		return &full{b}, nil
	case UpperRow:
		return &upperRow{b}, nil
	case LowerRow:
		return &lowerRow{b}, nil
	case UpperDiagRow:
		return &upperDiagRow{b}, nil
	case LowerDiagRow:
		return &lowerDiagRow{b}, nil
	case UpperCol:
		return &columnMajor{format: f, rows: &lowerRow{b}}, nil
	case LowerCol:
		return &columnMajor{format: f, rows: &upperRow{b}}, nil
	case UpperDiagCol:
		return &columnMajor{format: f, rows: &lowerDiagRow{b}}, nil
	case LowerDiagCol:
		return &columnMajor{format: f, rows: &upperDiagRow{b}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Densify materializes m as an n×n slice of rows.
func Densify(m Matrix) ([][]int, error) {
	n := m.Dimension()
	out := make([][]int, n)
	for i := 0; i < n; i++ {
		out[i] = make([]int, n)
		for j := 0; j < n; j++ {
			d, err := m.Distance(i, j)
			if err != nil {
				return nil, err
			}
			out[i][j] = d
		}
	}
	return out, nil
}

// IsSymmetric reports whether m(i, j) == m(j, i) for every pair.
func IsSymmetric(m Matrix) bool {
	if m.Format().Triangular() {
		return true
	}
	n := m.Dimension()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, _ := m.Distance(i, j)
			b, _ := m.Distance(j, i)
			if a != b {
				return false
			}
		}
	}
	return true
}

type backing struct {
	n int
	w []int
}

func (b backing) Dimension() int { return b.n }

func (b backing) Weights() []int {
	out := make([]int, len(b.w))
	copy(out, b.w)
	return out
}

func (b backing) check(i, j int) error {
	if i < 0 || i >= b.n || j < 0 || j >= b.n {
		return fmt.Errorf("%w: (%d, %d) with dimension %d", ErrOutOfRange, i, j, b.n)
	}
	return nil
}

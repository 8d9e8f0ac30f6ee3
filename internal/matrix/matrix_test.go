package matrix

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storageOrder lists the (i, j) cells of format f in the order they appear
// in a backing sequence, enumerated independently of the lookup arithmetic.
func storageOrder(f Format, n int) [][2]int {
	var cells [][2]int
	add := func(i, j int) { cells = append(cells, [2]int{i, j}) }
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			switch f {
			case FullMatrix:
				add(a, b)
			case UpperRow:
				if b > a {
					add(a, b)
				}
			case LowerRow:
				if b < a {
					add(a, b)
				}
			case UpperDiagRow:
				if b >= a {
					add(a, b)
				}
			case LowerDiagRow:
				if b <= a {
					add(a, b)
				}
			// column-major: a is the column, b the row
			case UpperCol:
				if b < a {
					add(b, a)
				}
			case LowerCol:
				if b > a {
					add(b, a)
				}
			case UpperDiagCol:
				if b <= a {
					add(b, a)
				}
			case LowerDiagCol:
				if b >= a {
					add(b, a)
				}
			}
		}
	}
	return cells
}

func symmetricDense(n int) [][]int {
	d := make([][]int, n)
	for i := range d {
		d[i] = make([]int, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := (i+1)*31 + (j+1)*17
			d[i][j], d[j][i] = v, v
		}
	}
	return d
}

func encode(f Format, dense [][]int) []int {
	cells := storageOrder(f, len(dense))
	out := make([]int, len(cells))
	for k, c := range cells {
		out[k] = dense[c[0]][c[1]]
	}
	return out
}

func TestElementCount(t *testing.T) {
	tests := []struct {
		format Format
		n      int
		want   int
	}{
		{FullMatrix, 4, 16},
		{UpperRow, 4, 6},
		{LowerRow, 4, 6},
		{UpperDiagRow, 4, 10},
		{LowerDiagCol, 4, 10},
		{UpperCol, 1, 0},
		{LowerDiagRow, 1, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.format, tt.n), func(t *testing.T) {
			got, err := ElementCount(tt.format, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ElementCount(FullMatrix, 0)
	require.ErrorIs(t, err, ErrInvalidDimension)
	// Squaring this wraps around, which must not read as a valid count.
	_, err = ElementCount(FullMatrix, MaxDimension*2)
	require.ErrorIs(t, err, ErrInvalidDimension)
	_, err = ElementCount(UpperRow, MaxDimension+1)
	require.ErrorIs(t, err, ErrInvalidDimension)
	got, err := ElementCount(UpperDiagRow, MaxDimension)
	require.NoError(t, err)
	assert.Positive(t, got)
	_, err = ElementCount(Function, 3)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNew_ElementCountBoundaries(t *testing.T) {
	for _, f := range Formats {
		for _, n := range []int{1, 2, 3, 10, 100} {
			t.Run(fmt.Sprintf("%s/%d", f, n), func(t *testing.T) {
				want, err := ElementCount(f, n)
				require.NoError(t, err)

				_, err = New(f, n, make([]int, want))
				require.NoError(t, err)

				if want > 0 {
					_, err = New(f, n, make([]int, want-1))
					require.ErrorIs(t, err, ErrConstruction)
				}

				_, err = New(f, n, make([]int, want+1))
				require.ErrorIs(t, err, ErrConstruction)

				var ce *CountError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, want, ce.Expected)
				assert.Equal(t, want+1, ce.Actual)
			})
		}
	}
}

func TestNew_RoundTripAgainstFull(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 10} {
		dense := symmetricDense(n)
		ref, err := New(FullMatrix, n, encode(FullMatrix, dense))
		require.NoError(t, err)

		for _, f := range Formats {
			t.Run(fmt.Sprintf("%s/%d", f, n), func(t *testing.T) {
				m, err := New(f, n, encode(f, dense))
				require.NoError(t, err)
				assert.Equal(t, f, m.Format())
				assert.Equal(t, n, m.Dimension())

				for i := 0; i < n; i++ {
					for j := 0; j < n; j++ {
						want, err := ref.Distance(i, j)
						require.NoError(t, err)
						got, err := m.Distance(i, j)
						require.NoError(t, err)
						require.Equal(t, want, got, "distance(%d, %d)", i, j)
					}
				}
			})
		}
	}
}

func TestTriangularWithoutDiagonal_Symmetric(t *testing.T) {
	for _, f := range []Format{UpperRow, LowerRow, UpperCol, LowerCol} {
		t.Run(string(f), func(t *testing.T) {
			n := 6
			count, err := ElementCount(f, n)
			require.NoError(t, err)
			w := make([]int, count)
			for k := range w {
				w[k] = k*7 + 3
			}
			m, err := New(f, n, w)
			require.NoError(t, err)

			for i := 0; i < n; i++ {
				d, err := m.Distance(i, i)
				require.NoError(t, err)
				assert.Zero(t, d)
				for j := 0; j < n; j++ {
					if i == j {
						continue
					}
					a, _ := m.Distance(i, j)
					b, _ := m.Distance(j, i)
					require.Equal(t, a, b)
				}
			}
			assert.True(t, IsSymmetric(m))
		})
	}
}

func TestLowerDiagRow_Literal(t *testing.T) {
	m, err := New(LowerDiagRow, 4, []int{9, 2, 9, 3, 4, 9, 5, 6, 7, 9})
	require.NoError(t, err)

	tests := []struct {
		i, j, want int
	}{
		{0, 0, 9},
		{2, 1, 4},
		{3, 2, 7},
		{1, 3, 5},
		{3, 1, 5},
	}
	for _, tt := range tests {
		got, err := m.Distance(tt.i, tt.j)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "distance(%d, %d)", tt.i, tt.j)
	}
}

func TestFull_Asymmetric(t *testing.T) {
	m, err := New(FullMatrix, 2, []int{0, 5, 8, 0})
	require.NoError(t, err)

	d, err := m.Distance(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, d)
	d, err = m.Distance(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, d)
	assert.False(t, IsSymmetric(m))
}

func TestDistance_OutOfRange(t *testing.T) {
	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			count, _ := ElementCount(f, 3)
			m, err := New(f, 3, make([]int, count))
			require.NoError(t, err)

			for _, idx := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}, {3, 3}} {
				_, err := m.Distance(idx[0], idx[1])
				require.ErrorIs(t, err, ErrOutOfRange)
			}
		})
	}
}

func TestDimensionFor(t *testing.T) {
	for _, f := range Formats {
		for _, n := range []int{1, 2, 3, 10, 100, 1000} {
			count, err := ElementCount(f, n)
			require.NoError(t, err)
			got, ok := DimensionFor(f, count)
			if f.HasDiagonal() || n > 1 {
				require.True(t, ok, "%s count %d", f, count)
				require.Equal(t, n, got, "%s count %d", f, count)
			}
		}
	}

	_, ok := DimensionFor(FullMatrix, 15)
	assert.False(t, ok)
	_, ok = DimensionFor(LowerDiagRow, 11)
	assert.False(t, ok)
}

func TestDensify(t *testing.T) {
	dense := symmetricDense(5)
	m, err := New(UpperDiagCol, 5, encode(UpperDiagCol, dense))
	require.NoError(t, err)

	got, err := Densify(m)
	require.NoError(t, err)
	assert.Equal(t, dense, got)
}

func TestWeights_ReturnsCopy(t *testing.T) {
	m, err := New(LowerCol, 3, []int{1, 2, 3})
	require.NoError(t, err)

	w := m.Weights()
	w[0] = 99
	assert.Equal(t, []int{1, 2, 3}, m.Weights())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("UPPER_DIAG_COL")
	require.NoError(t, err)
	assert.Equal(t, UpperDiagCol, f)

	_, err = ParseFormat("FUNCTION")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, Recognized("FUNCTION"))
	assert.False(t, Recognized("DIAGONAL"))
}

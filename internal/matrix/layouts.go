package matrix

// full stores every cell row by row: index = i*n + j.
type full struct{ backing }

func (m *full) Format() Format { return FullMatrix }

func (m *full) Distance(i, j int) (int, error) {
	if err := m.check(i, j); err != nil {
		return 0, err
	}
	return m.w[i*m.n+j], nil
}

// lowerDiagRow stores j <= i row by row. Row i starts at T(i).
type lowerDiagRow struct{ backing }

func (m *lowerDiagRow) Format() Format { return LowerDiagRow }

func (m *lowerDiagRow) Distance(i, j int) (int, error) {
	if err := m.check(i, j); err != nil {
		return 0, err
	}
	if j > i {
		i, j = j, i
	}
	return m.w[TriangularNumber(i)+j], nil
}

// upperDiagRow stores j >= i row by row. Row i starts at T(n) - T(n-i).
type upperDiagRow struct{ backing }

func (m *upperDiagRow) Format() Format { return UpperDiagRow }

func (m *upperDiagRow) Distance(i, j int) (int, error) {
	if err := m.check(i, j); err != nil {
		return 0, err
	}
	if i > j {
		i, j = j, i
	}
	return m.w[TriangularNumber(m.n)-TriangularNumber(m.n-i)+(j-i)], nil
}

// lowerRow stores j < i row by row. Row i starts at T(i-1).
type lowerRow struct{ backing }

func (m *lowerRow) Format() Format { return LowerRow }

func (m *lowerRow) Distance(i, j int) (int, error) {
	if err := m.check(i, j); err != nil {
		return 0, err
	}
	if i == j {
		return 0, nil
	}
	if j > i {
		i, j = j, i
	}
	return m.w[TriangularNumber(i-1)+j], nil
}

// upperRow stores j > i row by row. Row i starts at T(n-1) - T(n-1-i).
type upperRow struct{ backing }

func (m *upperRow) Format() Format { return UpperRow }

func (m *upperRow) Distance(i, j int) (int, error) {
	if err := m.check(i, j); err != nil {
		return 0, err
	}
	if i == j {
		return 0, nil
	}
	if i > j {
		i, j = j, i
	}
	return m.w[TriangularNumber(m.n-1)-TriangularNumber(m.n-1-i)+(j-i-1)], nil
}

// columnMajor reads a column-major layout through the opposite row-major
// layout with the indices swapped.
type columnMajor struct {
	format Format
	rows   Matrix
}

func (m *columnMajor) Format() Format { return m.format }

func (m *columnMajor) Dimension() int { return m.rows.Dimension() }

func (m *columnMajor) Weights() []int { return m.rows.Weights() }

func (m *columnMajor) Distance(i, j int) (int, error) {
	return m.rows.Distance(j, i)
}

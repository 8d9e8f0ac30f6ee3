package tsplib

import (
	"errors"
	"fmt"

	"github.com/frederic-klein/tspingest/internal/matrix"
	"github.com/frederic-klein/tspingest/internal/problem"
)

// sopPrecedenceMark is the weight SOP files use for "j must precede i".
const sopPrecedenceMark = -1

// stripDimensionMarker removes the leading dimension value that SOP weight
// sections carry. The marker is only stripped when what remains has exactly
// the expected element count.
func stripDimensionMarker(spec problem.ProblemSpec, weights []int) ([]int, problem.Quirk) {
	want, _ := matrix.ElementCount(spec.EdgeWeightFormat, spec.Dimension)
	if len(weights) == want+1 && weights[0] == spec.Dimension {
		return weights[1:], problem.Quirk{
			Kind:   problem.QuirkDimensionMarker,
			Detail: fmt.Sprintf("stripped leading %d from %d weights", spec.Dimension, len(weights)),
		}
	}
	return weights, problem.Quirk{
		Kind:   problem.QuirkDimensionMarkerMissing,
		Detail: fmt.Sprintf("no leading dimension marker in %d weights", len(weights)),
	}
}

// matrixDimension decides the logical matrix size and the node offset of
// matrix row 0. Only VRP problems may drop exactly the depot row.
func matrixDimension(spec problem.ProblemSpec, weights []int, depots []int, line int) (int, int, *problem.Quirk, error) {
	f, n := spec.EdgeWeightFormat, spec.Dimension
	want, err := matrix.ElementCount(f, n)
	if err != nil {
		return 0, 0, nil, sectionError(ErrMatrixConstruction, sectionEdgeWeight, line, "", err)
	}
	if len(weights) == want || spec.Kind != problem.KindVRP {
		return n, 0, nil, nil
	}

	actual, ok := matrix.DimensionFor(f, len(weights))
	if !ok {
		return 0, 0, nil, &ParseError{Kind: ErrMatrixConstruction, Section: sectionEdgeWeight, Line: line,
			Expected: want, Actual: len(weights), HasCount: true}
	}
	if actual != n-1 {
		return 0, 0, nil, &ParseError{Kind: ErrDimensionMismatch, Section: sectionEdgeWeight, Line: line,
			Expected: n, Actual: actual, HasCount: true,
			Err: fmt.Errorf("matrix covers %d nodes", actual)}
	}
	// The excluded row must be the depot, which sits at node 0.
	for _, d := range depots {
		if d != 0 {
			return 0, 0, nil, &ParseError{Kind: ErrDimensionMismatch, Section: sectionEdgeWeight, Line: line,
				Expected: n, Actual: actual, HasCount: true,
				Err: fmt.Errorf("customer-only matrix requires the single depot at node 0, found depot %d", d)}
		}
	}

	return actual, 1, &problem.Quirk{
		Kind:   problem.QuirkCustomerOnlyMatrix,
		Detail: fmt.Sprintf("matrix dimension %d excludes depot of %d nodes", actual, n),
	}, nil
}

func buildMatrix(spec problem.ProblemSpec, n int, weights []int, line int) (matrix.Matrix, error) {
	m, err := matrix.New(spec.EdgeWeightFormat, n, weights)
	if err != nil {
		var ce *matrix.CountError
		if errors.As(err, &ce) {
			return nil, &ParseError{Kind: ErrMatrixConstruction, Section: sectionEdgeWeight, Line: line,
				Expected: ce.Expected, Actual: ce.Actual, HasCount: true, Err: err}
		}
		return nil, sectionError(ErrMatrixConstruction, sectionEdgeWeight, line, "", err)
	}
	return m, nil
}

// precedences reads SOP constraints: a weight of -1 at (i, j) means j must
// be visited before i.
func precedences(m matrix.Matrix) []problem.PrecedencePair {
	var out []problem.PrecedencePair
	n := m.Dimension()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if w, _ := m.Distance(i, j); w == sopPrecedenceMark {
				out = append(out, problem.PrecedencePair{Before: j, After: i})
			}
		}
	}
	return out
}

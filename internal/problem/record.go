package problem

import (
	"errors"
	"fmt"

	"github.com/frederic-klein/tspingest/internal/distance"
	"github.com/frederic-klein/tspingest/internal/matrix"
)

var (
	// ErrNoDistance is returned when a record carries neither a matrix nor coordinates.
	ErrNoDistance = errors.New("problem: no distance information")

	// ErrNodeOutOfRange is returned for node indices outside [0, dimension).
	ErrNodeOutOfRange = errors.New("problem: node index out of range")

	// ErrDepotNotInMatrix is returned when a customer-only matrix is asked for a depot distance.
	ErrDepotNotInMatrix = errors.New("problem: depot is excluded from the distance matrix")
)

// QuirkKind names a documented format deviation that was accepted.
type QuirkKind string

const (
	// QuirkDimensionMarker: a leading SOP weight equal to the dimension was stripped.
	QuirkDimensionMarker QuirkKind = "sop-dimension-marker"
	// QuirkDimensionMarkerMissing: an SOP weight section carried no marker.
	QuirkDimensionMarkerMissing QuirkKind = "sop-dimension-marker-missing"
	// QuirkCustomerOnlyMatrix: a VRP matrix omits the depot row.
	QuirkCustomerOnlyMatrix QuirkKind = "vrp-customer-only-matrix"
	// QuirkMissingEOF: the file ended without an EOF line.
	QuirkMissingEOF QuirkKind = "missing-eof"
)

// Quirk records that a documented deviation fired while parsing.
type Quirk struct {
	Kind   QuirkKind
	Detail string
}

// Record is the canonical, normalized result of parsing one file.
// It is never mutated after Parse returns.
type Record struct {
	Spec  ProblemSpec
	Nodes []Node

	// Matrix is nil unless Spec.EdgeWeightType is EXPLICIT.
	Matrix matrix.Matrix
	// MatrixOffset is the node index that maps to matrix row 0. It is 1 for
	// a customer-only VRP matrix, 0 otherwise.
	MatrixOffset int

	Tours       []Tour
	Precedences []PrecedencePair
	Edges       []Edge
	FixedEdges  []Edge
	Depots      []int

	// IndexBase is the numbering convention observed in the file (0 or 1).
	IndexBase int
	Quirks    []Quirk
	Extras    []Extra
}

// HasMatrix reports whether the record carries an explicit distance matrix.
func (r *Record) HasMatrix() bool {
	return r.Matrix != nil
}

// HasQuirk reports whether the given quirk fired for this record.
func (r *Record) HasQuirk(kind QuirkKind) bool {
	for _, q := range r.Quirks {
		if q.Kind == kind {
			return true
		}
	}
	return false
}

// Distance returns the weight between nodes i and j using the record's
// distance mode.
func (r *Record) Distance(i, j int) (int, error) {
	n := r.Spec.Dimension
	if i < 0 || i >= n || j < 0 || j >= n {
		return 0, fmt.Errorf("%w: (%d, %d) with dimension %d", ErrNodeOutOfRange, i, j, n)
	}

	if r.Matrix != nil {
		mi, mj := i-r.MatrixOffset, j-r.MatrixOffset
		if mi < 0 || mj < 0 {
			if i == j {
				return 0, nil
			}
			return 0, fmt.Errorf("%w: (%d, %d)", ErrDepotNotInMatrix, i, j)
		}
		return r.Matrix.Distance(mi, mj)
	}

	if !r.Spec.Mode().IsCoordinate() || r.Nodes[i].Coords == nil || r.Nodes[j].Coords == nil {
		return 0, ErrNoDistance
	}
	fn, err := distance.For(string(r.Spec.EdgeWeightType))
	if err != nil {
		return 0, err
	}
	return fn(r.Nodes[i].Coords, r.Nodes[j].Coords)
}

// TourCost sums Distance along t, closing the cycle back to the first node.
func (r *Record) TourCost(t Tour) (int, error) {
	if len(t) == 0 {
		return 0, nil
	}
	total := 0
	for k := range t {
		next := t[(k+1)%len(t)]
		d, err := r.Distance(t[k], next)
		if err != nil {
			return 0, fmt.Errorf("tour step %d: %w", k, err)
		}
		total += d
	}
	return total, nil
}

// Package distance implements the coordinate distance functions named by
// EDGE_WEIGHT_TYPE. All results are integers, rounded the way each type
// prescribes.
package distance

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnsupported is returned for recognized types with no formula here.
	ErrUnsupported = errors.New("distance: unsupported edge weight type")

	// ErrArity is returned when coordinates have too few components.
	ErrArity = errors.New("distance: coordinate arity mismatch")
)

// Func computes the distance between two coordinate tuples.
type Func func(a, b []float64) (int, error)

var funcs = map[string]struct {
	dims int
	fn   func(a, b []float64) int
}{
	"EUC_2D":  {2, euclidean},
	"EUC_3D":  {3, euclidean},
	"MAX_2D":  {2, maximum},
	"MAX_3D":  {3, maximum},
	"MAN_2D":  {2, manhattan},
	"MAN_3D":  {3, manhattan},
	"CEIL_2D": {2, ceiling},
	"GEO":     {2, geographic},
	"ATT":     {2, pseudoEuclidean},
}

// For returns the distance function for an EDGE_WEIGHT_TYPE spelling.
func For(edgeWeightType string) (Func, error) {
	entry, ok := funcs[edgeWeightType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, edgeWeightType)
	}
	return func(a, b []float64) (int, error) {
		if len(a) < entry.dims || len(b) < entry.dims {
			return 0, fmt.Errorf("%w: %s needs %d components, got %d and %d",
				ErrArity, edgeWeightType, entry.dims, len(a), len(b))
		}
		return entry.fn(a[:entry.dims], b[:entry.dims]), nil
	}, nil
}

// nint rounds to the nearest integer, halves away from zero.
func nint(x float64) int {
	return int(math.Floor(x + 0.5))
}

func euclidean(a, b []float64) int {
	var sum float64
	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}
	return nint(math.Sqrt(sum))
}

func ceiling(a, b []float64) int {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return int(math.Ceil(math.Sqrt(dx*dx + dy*dy)))
}

func manhattan(a, b []float64) int {
	var sum float64
	for k := range a {
		sum += math.Abs(a[k] - b[k])
	}
	return nint(sum)
}

func maximum(a, b []float64) int {
	best := 0
	for k := range a {
		if d := nint(math.Abs(a[k] - b[k])); d > best {
			best = d
		}
	}
	return best
}

// pseudoEuclidean is the ATT distance: the scaled Euclidean distance,
// rounded up whenever rounding to nearest would fall below it.
func pseudoEuclidean(a, b []float64) int {
	dx, dy := a[0]-b[0], a[1]-b[1]
	r := math.Sqrt((dx*dx + dy*dy) / 10.0)
	t := nint(r)
	if float64(t) < r {
		return t + 1
	}
	return t
}

const (
	geoPi     = 3.141592
	geoRadius = 6378.388
)

// geoRadians converts a DDD.MM coordinate to radians.
func geoRadians(x float64) float64 {
	deg := math.Trunc(x)
	min := x - deg
	return geoPi * (deg + 5.0*min/3.0) / 180.0
}

func geographic(a, b []float64) int {
	latA, lonA := geoRadians(a[0]), geoRadians(a[1])
	latB, lonB := geoRadians(b[0]), geoRadians(b[1])
	q1 := math.Cos(lonA - lonB)
	q2 := math.Cos(latA - latB)
	q3 := math.Cos(latA + latB)
	return int(geoRadius*math.Acos(0.5*((1.0+q1)*q2-(1.0-q1)*q3)) + 1.0)
}

package problem

// EdgeWeightType is the upper-cased EDGE_WEIGHT_TYPE value.
type EdgeWeightType string

const (
	Explicit EdgeWeightType = "EXPLICIT"
	Euc2D    EdgeWeightType = "EUC_2D"
	Euc3D    EdgeWeightType = "EUC_3D"
	Max2D    EdgeWeightType = "MAX_2D"
	Max3D    EdgeWeightType = "MAX_3D"
	Man2D    EdgeWeightType = "MAN_2D"
	Man3D    EdgeWeightType = "MAN_3D"
	Ceil2D   EdgeWeightType = "CEIL_2D"
	Geo      EdgeWeightType = "GEO"
	Att      EdgeWeightType = "ATT"
	Xray1    EdgeWeightType = "XRAY1"
	Xray2    EdgeWeightType = "XRAY2"
	Special  EdgeWeightType = "SPECIAL"
)

var edgeWeightTypes = map[EdgeWeightType]DistanceMode{
	Explicit: {Explicit: true},
	Euc2D:    {Coordinate: Euclidean, Dims: 2},
	Euc3D:    {Coordinate: Euclidean, Dims: 3},
	Max2D:    {Coordinate: Maximum, Dims: 2},
	Max3D:    {Coordinate: Maximum, Dims: 3},
	Man2D:    {Coordinate: Manhattan, Dims: 2},
	Man3D:    {Coordinate: Manhattan, Dims: 3},
	Ceil2D:   {Coordinate: Ceiling, Dims: 2},
	Geo:      {Coordinate: Geographic, Dims: 2},
	Att:      {Coordinate: PseudoEuclidean, Dims: 2},
	Xray1:    {Coordinate: Xray, Dims: 3},
	Xray2:    {Coordinate: Xray, Dims: 3},
	Special:  {Coordinate: Custom},
}

// Known reports whether t is one of the recognized spellings.
func (t EdgeWeightType) Known() bool {
	_, ok := edgeWeightTypes[t]
	return ok
}

// Mode returns the distance mode for t. Unknown types yield the zero mode.
func (t EdgeWeightType) Mode() DistanceMode {
	return edgeWeightTypes[t]
}

// CoordinateKind names the formula used for coordinate-based distances.
type CoordinateKind string

const (
	Euclidean       CoordinateKind = "euclidean"
	Geographic      CoordinateKind = "geographic"
	PseudoEuclidean CoordinateKind = "pseudo-euclidean"
	Ceiling         CoordinateKind = "ceiling"
	Manhattan       CoordinateKind = "manhattan"
	Maximum         CoordinateKind = "maximum"
	Xray            CoordinateKind = "xray"
	Custom          CoordinateKind = "custom"
)

// DistanceMode is either Explicit or Coordinate(kind).
type DistanceMode struct {
	Explicit   bool
	Coordinate CoordinateKind
	// Dims is the coordinate arity the formula expects; 0 when unconstrained.
	Dims int
}

// IsCoordinate reports whether distances derive from node coordinates.
func (m DistanceMode) IsCoordinate() bool {
	return !m.Explicit && m.Coordinate != ""
}

func (m DistanceMode) String() string {
	if m.Explicit {
		return "explicit"
	}
	if m.Coordinate == "" {
		return "none"
	}
	return "coordinate(" + string(m.Coordinate) + ")"
}

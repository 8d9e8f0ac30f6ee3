package problem

import (
	"github.com/frederic-klein/tspingest/internal/matrix"
)

// Kind is the problem variant declared by the TYPE keyword.
type Kind string

const (
	KindTSP  Kind = "TSP"
	KindATSP Kind = "ATSP"
	KindVRP  Kind = "VRP"
	KindHCP  Kind = "HCP"
	KindSOP  Kind = "SOP"
	KindTour Kind = "TOUR"
)

// ParseKind maps a TYPE value to its Kind. CVRP is folded into VRP.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "TSP":
		return KindTSP, true
	case "ATSP":
		return KindATSP, true
	case "CVRP", "VRP":
		return KindVRP, true
	case "HCP":
		return KindHCP, true
	case "SOP":
		return KindSOP, true
	case "TOUR":
		return KindTour, true
	}
	return "", false
}

// ProblemSpec holds the typed header of one problem file.
type ProblemSpec struct {
	Name    string
	Comment string
	Kind    Kind
	// TypeRaw keeps the TYPE spelling found in the file (e.g. "CVRP").
	TypeRaw   string
	Dimension int
	// Capacity is set iff Kind is VRP.
	Capacity *int

	EdgeWeightType EdgeWeightType
	// EdgeWeightTypeRaw keeps the EDGE_WEIGHT_TYPE spelling found in the file.
	EdgeWeightTypeRaw string
	// EdgeWeightFormat is empty unless EdgeWeightType is EXPLICIT.
	EdgeWeightFormat matrix.Format
	EdgeDataFormat   string
	NodeCoordType    string
	DisplayDataType  string
}

// Mode returns the distance mode implied by the edge weight type.
func (s ProblemSpec) Mode() DistanceMode {
	return s.EdgeWeightType.Mode()
}

// Node is one city/customer. Index is 0-based after normalization.
type Node struct {
	Index int
	// Coords holds 2 or 3 values; nil when the problem has no coordinates.
	Coords []float64
	// Display holds TWOD_DISPLAY coordinates when present.
	Display []float64
	Demand  int
	IsDepot bool
}

// Tour is an ordered sequence of 0-based node indices.
type Tour []int

// PrecedencePair states that Before must be visited before After.
type PrecedencePair struct {
	Before int
	After  int
}

// Edge is an undirected or directed node pair, depending on the problem kind.
type Edge struct {
	From int
	To   int
}

// Extra is an unrecognized keyword or section, kept verbatim.
type Extra struct {
	Keyword string
	Value   string
	Line    int
	Lines   []string
}

package emit

import (
	"github.com/frederic-klein/tspingest/internal/matrix"
	"github.com/frederic-klein/tspingest/internal/problem"
)

// Document is the serialized form of a problem.Record.
type Document struct {
	Name             string       `json:"name" yaml:"name"`
	Comment          string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	Type             string       `json:"type" yaml:"type"`
	TypeRaw          string       `json:"type_raw,omitempty" yaml:"type_raw,omitempty"`
	Dimension        int          `json:"dimension" yaml:"dimension"`
	Capacity         *int         `json:"capacity,omitempty" yaml:"capacity,omitempty"`
	EdgeWeightType   string       `json:"edge_weight_type,omitempty" yaml:"edge_weight_type,omitempty"`
	EdgeWeightRaw    string       `json:"edge_weight_type_raw,omitempty" yaml:"edge_weight_type_raw,omitempty"`
	EdgeWeightFormat string       `json:"edge_weight_format,omitempty" yaml:"edge_weight_format,omitempty"`
	DistanceMode     string       `json:"distance_mode,omitempty" yaml:"distance_mode,omitempty"`
	IndexBase        int          `json:"index_base" yaml:"index_base"`
	Nodes            []Node       `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Matrix           *Matrix      `json:"matrix,omitempty" yaml:"matrix,omitempty"`
	Depots           []int        `json:"depots,omitempty" yaml:"depots,omitempty"`
	Tours            [][]int      `json:"tours,omitempty" yaml:"tours,omitempty"`
	Precedences      []Precedence `json:"precedences,omitempty" yaml:"precedences,omitempty"`
	Edges            [][2]int     `json:"edges,omitempty" yaml:"edges,omitempty"`
	FixedEdges       [][2]int     `json:"fixed_edges,omitempty" yaml:"fixed_edges,omitempty"`
	Quirks           []Quirk      `json:"quirks,omitempty" yaml:"quirks,omitempty"`
	Extras           []Extra      `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// Node is one node that carries coordinates, display data, demand or a depot flag.
type Node struct {
	Index   int       `json:"index" yaml:"index"`
	Coords  []float64 `json:"coords,omitempty" yaml:"coords,omitempty,flow"`
	Display []float64 `json:"display,omitempty" yaml:"display,omitempty,flow"`
	Demand  int       `json:"demand,omitempty" yaml:"demand,omitempty"`
	Depot   bool      `json:"depot,omitempty" yaml:"depot,omitempty"`
}

// Matrix carries either the flat backing sequence or, when dense output was
// requested and the matrix is small enough, the full rows.
type Matrix struct {
	Format    string  `json:"format" yaml:"format"`
	Dimension int     `json:"dimension" yaml:"dimension"`
	Offset    int     `json:"offset,omitempty" yaml:"offset,omitempty"`
	Weights   []int   `json:"weights,omitempty" yaml:"weights,omitempty,flow"`
	Rows      [][]int `json:"rows,omitempty" yaml:"rows,omitempty,flow"`
}

// Precedence means Before must be visited before After.
type Precedence struct {
	Before int `json:"before" yaml:"before"`
	After  int `json:"after" yaml:"after"`
}

// Quirk is an accepted format deviation.
type Quirk struct {
	Kind   string `json:"kind" yaml:"kind"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Extra is an unrecognized keyword or section kept verbatim.
type Extra struct {
	Keyword string   `json:"keyword" yaml:"keyword"`
	Value   string   `json:"value,omitempty" yaml:"value,omitempty"`
	Lines   []string `json:"lines,omitempty" yaml:"lines,omitempty"`
}

// FromRecord converts rec. With dense set, matrices up to
// matrix.LazyThreshold cells are expanded into rows.
func FromRecord(rec *problem.Record, dense bool) Document {
	spec := rec.Spec
	doc := Document{
		Name:             spec.Name,
		Comment:          spec.Comment,
		Type:             string(spec.Kind),
		TypeRaw:          spec.TypeRaw,
		Dimension:        spec.Dimension,
		Capacity:         spec.Capacity,
		EdgeWeightType:   string(spec.EdgeWeightType),
		EdgeWeightRaw:    spec.EdgeWeightTypeRaw,
		EdgeWeightFormat: string(spec.EdgeWeightFormat),
		IndexBase:        rec.IndexBase,
		Depots:           rec.Depots,
	}
	if spec.EdgeWeightType != "" {
		doc.DistanceMode = spec.Mode().String()
	}
	if spec.TypeRaw == string(spec.Kind) {
		doc.TypeRaw = ""
	}
	if spec.EdgeWeightTypeRaw == string(spec.EdgeWeightType) {
		doc.EdgeWeightRaw = ""
	}

	for _, n := range rec.Nodes {
		if n.Coords == nil && n.Display == nil && n.Demand == 0 && !n.IsDepot {
			continue
		}
		doc.Nodes = append(doc.Nodes, Node{
			Index:   n.Index,
			Coords:  n.Coords,
			Display: n.Display,
			Demand:  n.Demand,
			Depot:   n.IsDepot,
		})
	}

	if m := rec.Matrix; m != nil {
		md := &Matrix{Format: string(m.Format()), Dimension: m.Dimension(), Offset: rec.MatrixOffset}
		if dense && m.Dimension()*m.Dimension() <= matrix.LazyThreshold {
			// Densify only fails on out-of-range lookups, which New rules out.
			md.Rows, _ = matrix.Densify(m)
		}
		if md.Rows == nil {
			md.Weights = m.Weights()
		}
		doc.Matrix = md
	}

	for _, t := range rec.Tours {
		doc.Tours = append(doc.Tours, []int(t))
	}
	for _, p := range rec.Precedences {
		doc.Precedences = append(doc.Precedences, Precedence{Before: p.Before, After: p.After})
	}
	doc.Edges = edgePairs(rec.Edges)
	doc.FixedEdges = edgePairs(rec.FixedEdges)
	for _, q := range rec.Quirks {
		doc.Quirks = append(doc.Quirks, Quirk{Kind: string(q.Kind), Detail: q.Detail})
	}
	for _, e := range rec.Extras {
		doc.Extras = append(doc.Extras, Extra{Keyword: e.Keyword, Value: e.Value, Lines: e.Lines})
	}
	return doc
}

func edgePairs(edges []problem.Edge) [][2]int {
	if len(edges) == 0 {
		return nil
	}
	out := make([][2]int, len(edges))
	for i, e := range edges {
		out[i] = [2]int{e.From, e.To}
	}
	return out
}

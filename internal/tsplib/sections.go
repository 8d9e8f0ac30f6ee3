package tsplib

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/frederic-klein/tspingest/internal/problem"
)

const (
	sectionNodeCoord   = "NODE_COORD_SECTION"
	sectionDepot       = "DEPOT_SECTION"
	sectionDemand      = "DEMAND_SECTION"
	sectionEdgeData    = "EDGE_DATA_SECTION"
	sectionFixedEdges  = "FIXED_EDGES_SECTION"
	sectionDisplayData = "DISPLAY_DATA_SECTION"
	sectionTour        = "TOUR_SECTION"
	sectionEdgeWeight  = "EDGE_WEIGHT_SECTION"
)

// terminator ends DEPOT, FIXED_EDGES, EDGE_DATA and TOUR lists.
const terminator = -1

// rawPoint is a NODE_COORD or DISPLAY_DATA entry in file numbering.
type rawPoint struct {
	id     int
	coords []float64
	line   int
}

type rawDemand struct {
	id     int
	demand int
	line   int
}

type rawEdge struct {
	from, to int
	line     int
}

// rawSections holds section payloads with indices still in file numbering.
type rawSections struct {
	coords     []rawPoint
	display    []rawPoint
	demands    []rawDemand
	depots     []int
	edges      []rawEdge
	fixedEdges []rawEdge
	tours      [][]int
	weights    []int
	weightLine int
}

// sectionDecoder fills raw from one section block.
type sectionDecoder func(h *header, s *Section, raw *rawSections) error

var sectionRegistry = map[string]sectionDecoder{
	sectionNodeCoord:   decodeNodeCoords,
	sectionDisplayData: decodeDisplayData,
	sectionDemand:      decodeDemands,
	sectionDepot:       decodeDepots,
	sectionEdgeData:    decodeEdgeData,
	sectionFixedEdges:  decodeFixedEdges,
	sectionTour:        decodeTours,
	sectionEdgeWeight:  decodeEdgeWeights,
}

func decodeSections(h *header, sections []Section) (*rawSections, error) {
	raw := &rawSections{}
	for i := range sections {
		s := &sections[i]
		decode, ok := sectionRegistry[s.Name]
		if !ok {
			lines := make([]string, len(s.Lines))
			for k, l := range s.Lines {
				lines[k] = l.Text
			}
			h.extras = append(h.extras, problem.Extra{Keyword: s.Name, Line: s.Line, Lines: lines})
			continue
		}
		if err := decode(h, s, raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// token is one whitespace-separated value with its source line.
type token struct {
	text string
	line int
}

func tokens(s *Section) []token {
	var out []token
	for _, l := range s.Lines {
		for _, f := range strings.Fields(l.Text) {
			out = append(out, token{text: f, line: l.Line})
		}
	}
	return out
}

func parseIndex(s *Section, t token) (int, error) {
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, sectionError(ErrMalformedSection, s.Name, t.line, t.text, fmt.Errorf("not an integer index"))
	}
	return n, nil
}

// parseWeight accepts integers and integral reals such as "12.0" or "1e3".
func parseWeight(s *Section, t token) (int, error) {
	if n, err := strconv.Atoi(t.text); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(t.text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, sectionError(ErrMalformedSection, s.Name, t.line, t.text, fmt.Errorf("not a number"))
	}
	if f != math.Trunc(f) {
		return 0, sectionError(ErrUnsupportedFeature, s.Name, t.line, t.text, fmt.Errorf("non-integral edge weight"))
	}
	return int(f), nil
}

func decodePoints(s *Section, wantDims int) ([]rawPoint, error) {
	points := make([]rawPoint, 0, len(s.Lines))
	dims := wantDims
	for _, l := range s.Lines {
		fields := strings.Fields(l.Text)
		if len(fields) != 3 && len(fields) != 4 {
			return nil, sectionError(ErrMalformedSection, s.Name, l.Line, l.Text,
				fmt.Errorf("expected an index and 2 or 3 coordinates"))
		}
		if dims == 0 {
			dims = len(fields) - 1
		}
		if len(fields)-1 != dims {
			return nil, sectionError(ErrMalformedSection, s.Name, l.Line, l.Text,
				fmt.Errorf("expected %d coordinates, got %d", dims, len(fields)-1))
		}
		id, err := parseIndex(s, token{text: fields[0], line: l.Line})
		if err != nil {
			return nil, err
		}
		coords := make([]float64, dims)
		for k := 0; k < dims; k++ {
			v, err := strconv.ParseFloat(fields[k+1], 64)
			if err != nil {
				return nil, sectionError(ErrMalformedSection, s.Name, l.Line, fields[k+1], fmt.Errorf("not a coordinate"))
			}
			coords[k] = v
		}
		points = append(points, rawPoint{id: id, coords: coords, line: l.Line})
	}
	return points, nil
}

func decodeNodeCoords(h *header, s *Section, raw *rawSections) error {
	dims := 0
	switch h.nodeCoordType {
	case "TWOD_COORDS":
		dims = 2
	case "THREED_COORDS":
		dims = 3
	case "NO_COORDS":
		return sectionError(ErrMalformedSection, s.Name, s.Line, "", fmt.Errorf("NODE_COORD_TYPE is NO_COORDS"))
	}
	if dims == 0 {
		dims = h.edgeWeightType.Mode().Dims
	}
	points, err := decodePoints(s, dims)
	if err != nil {
		return err
	}
	raw.coords = append(raw.coords, points...)
	return nil
}

func decodeDisplayData(h *header, s *Section, raw *rawSections) error {
	points, err := decodePoints(s, 2)
	if err != nil {
		return err
	}
	raw.display = append(raw.display, points...)
	return nil
}

func decodeDemands(h *header, s *Section, raw *rawSections) error {
	for _, l := range s.Lines {
		fields := strings.Fields(l.Text)
		if len(fields) != 2 {
			return sectionError(ErrMalformedSection, s.Name, l.Line, l.Text, fmt.Errorf("expected an index and a demand"))
		}
		id, err := parseIndex(s, token{text: fields[0], line: l.Line})
		if err != nil {
			return err
		}
		demand, err := parseIndex(s, token{text: fields[1], line: l.Line})
		if err != nil {
			return err
		}
		if demand < 0 {
			return sectionError(ErrMalformedSection, s.Name, l.Line, fields[1], fmt.Errorf("demand must not be negative"))
		}
		raw.demands = append(raw.demands, rawDemand{id: id, demand: demand, line: l.Line})
	}
	return nil
}

func decodeDepots(h *header, s *Section, raw *rawSections) error {
	for _, t := range tokens(s) {
		id, err := parseIndex(s, t)
		if err != nil {
			return err
		}
		if id == terminator {
			break
		}
		raw.depots = append(raw.depots, id)
	}
	return nil
}

func decodeFixedEdges(h *header, s *Section, raw *rawSections) error {
	edges, err := decodeEdgeList(s)
	if err != nil {
		return err
	}
	raw.fixedEdges = append(raw.fixedEdges, edges...)
	return nil
}

func decodeEdgeData(h *header, s *Section, raw *rawSections) error {
	var (
		edges []rawEdge
		err   error
	)
	if h.edgeDataFormat == "ADJ_LIST" {
		edges, err = decodeAdjacencyList(s)
	} else {
		edges, err = decodeEdgeList(s)
	}
	if err != nil {
		return err
	}
	raw.edges = append(raw.edges, edges...)
	return nil
}

// decodeEdgeList reads "from to" pairs until a lone -1.
func decodeEdgeList(s *Section) ([]rawEdge, error) {
	toks := tokens(s)
	var edges []rawEdge
	for k := 0; k < len(toks); k++ {
		from, err := parseIndex(s, toks[k])
		if err != nil {
			return nil, err
		}
		if from == terminator {
			break
		}
		if k+1 >= len(toks) {
			return nil, sectionError(ErrMalformedSection, s.Name, toks[k].line, toks[k].text, fmt.Errorf("edge has no second node"))
		}
		k++
		to, err := parseIndex(s, toks[k])
		if err != nil {
			return nil, err
		}
		edges = append(edges, rawEdge{from: from, to: to, line: toks[k].line})
	}
	return edges, nil
}

// decodeAdjacencyList reads "node n1 n2 ... -1" groups until a lone -1.
func decodeAdjacencyList(s *Section) ([]rawEdge, error) {
	toks := tokens(s)
	var edges []rawEdge
	for k := 0; k < len(toks); k++ {
		from, err := parseIndex(s, toks[k])
		if err != nil {
			return nil, err
		}
		if from == terminator {
			break
		}
		for k++; k < len(toks); k++ {
			to, err := parseIndex(s, toks[k])
			if err != nil {
				return nil, err
			}
			if to == terminator {
				break
			}
			edges = append(edges, rawEdge{from: from, to: to, line: toks[k].line})
		}
	}
	return edges, nil
}

// decodeTours splits the section into tours at each -1. A second -1 in a
// row (or the end of the section) finishes the list.
func decodeTours(h *header, s *Section, raw *rawSections) error {
	var current []int
	for _, t := range tokens(s) {
		id, err := parseIndex(s, t)
		if err != nil {
			return err
		}
		if id == terminator {
			if len(current) == 0 {
				break
			}
			raw.tours = append(raw.tours, current)
			current = nil
			continue
		}
		current = append(current, id)
	}
	if len(current) > 0 {
		raw.tours = append(raw.tours, current)
	}
	return nil
}

func decodeEdgeWeights(h *header, s *Section, raw *rawSections) error {
	// Stream line by line; weight sections are the largest payload in a file.
	for _, l := range s.Lines {
		for _, f := range strings.Fields(l.Text) {
			w, err := parseWeight(s, token{text: f, line: l.Line})
			if err != nil {
				return err
			}
			raw.weights = append(raw.weights, w)
		}
	}
	raw.weightLine = s.Line
	return nil
}

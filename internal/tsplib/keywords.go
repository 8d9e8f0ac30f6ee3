package tsplib

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/frederic-klein/tspingest/internal/matrix"
	"github.com/frederic-klein/tspingest/internal/problem"
)

// header accumulates decoded keyword values before validation.
type header struct {
	name            string
	comments        []string
	typeRaw         string
	kind            problem.Kind
	dimension       int
	hasDimension    bool
	capacity        int
	hasCapacity     bool
	capacityLine    int
	edgeWeightType  problem.EdgeWeightType
	edgeWeightRaw   string
	edgeWeightFmt   string
	edgeWeightLine  int
	edgeDataFormat  string
	nodeCoordType   string
	displayDataType string

	extras []problem.Extra
}

// fieldDecoder parses one keyword's raw value into h. A returned error is
// wrapped with the keyword and line by decodeHeader.
type fieldDecoder func(h *header, f Field) error

// keywordRegistry is the closed set of header keywords with a decoder.
// Keywords not listed here are kept as extras.
var keywordRegistry = map[string]fieldDecoder{
	"NAME": func(h *header, f Field) error {
		h.name = f.Value
		return nil
	},
	"COMMENT": func(h *header, f Field) error {
		h.comments = append(h.comments, f.Value)
		return nil
	},
	"TYPE":      decodeType,
	"DIMENSION": decodeDimension,
	"CAPACITY":  decodeCapacity,
	"EDGE_WEIGHT_TYPE": func(h *header, f Field) error {
		t := problem.EdgeWeightType(strings.ToUpper(f.Value))
		if !t.Known() {
			return errUnsupported
		}
		h.edgeWeightType = t
		h.edgeWeightRaw = f.Value
		return nil
	},
	"EDGE_WEIGHT_FORMAT": func(h *header, f Field) error {
		v := strings.ToUpper(f.Value)
		if !matrix.Recognized(v) {
			return errUnsupported
		}
		h.edgeWeightFmt = v
		h.edgeWeightLine = f.Line
		return nil
	},
	"EDGE_DATA_FORMAT": enumDecoder(func(h *header) *string { return &h.edgeDataFormat },
		"EDGE_LIST", "ADJ_LIST"),
	"NODE_COORD_TYPE": enumDecoder(func(h *header) *string { return &h.nodeCoordType },
		"TWOD_COORDS", "THREED_COORDS", "NO_COORDS"),
	"DISPLAY_DATA_TYPE": enumDecoder(func(h *header) *string { return &h.displayDataType },
		"COORD_DISPLAY", "TWOD_DISPLAY", "NO_DISPLAY"),
}

// errUnsupported marks a decoder rejection that should surface as
// ErrUnsupportedFeature rather than ErrMalformedHeader.
var errUnsupported = errors.New("no decoder for value")

func decodeHeader(fields []Field) (*header, error) {
	h := &header{}
	for _, f := range fields {
		decode, ok := keywordRegistry[f.Keyword]
		if !ok {
			h.extras = append(h.extras, problem.Extra{Keyword: f.Keyword, Value: f.Value, Line: f.Line})
			continue
		}
		if err := decode(h, f); err != nil {
			if errors.Is(err, errUnsupported) {
				return nil, headerError(ErrUnsupportedFeature, f.Keyword, f.Line, f.Value, nil)
			}
			return nil, headerError(ErrMalformedHeader, f.Keyword, f.Line, f.Value, err)
		}
	}
	return h, nil
}

func decodeType(h *header, f Field) error {
	raw := f.Value
	// Some files append a note after the type, e.g. "TSP (M.~Hofmeister)".
	if idx := strings.IndexAny(raw, " \t("); idx != -1 {
		raw = raw[:idx]
	}
	kind, ok := problem.ParseKind(strings.ToUpper(raw))
	if !ok {
		return errUnsupported
	}
	h.typeRaw = raw
	h.kind = kind
	return nil
}

func decodeDimension(h *header, f Field) error {
	n, err := positiveInt(f.Value)
	if err != nil {
		return err
	}
	h.dimension = n
	h.hasDimension = true
	return nil
}

func decodeCapacity(h *header, f Field) error {
	n, err := positiveInt(f.Value)
	if err != nil {
		return err
	}
	h.capacity = n
	h.hasCapacity = true
	h.capacityLine = f.Line
	return nil
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

func enumDecoder(target func(h *header) *string, allowed ...string) fieldDecoder {
	return func(h *header, f Field) error {
		v := strings.ToUpper(f.Value)
		for _, a := range allowed {
			if v == a {
				*target(h) = v
				return nil
			}
		}
		return fmt.Errorf("expected one of %s", strings.Join(allowed, ", "))
	}
}

// validate checks presence and cross-field rules and produces the typed spec.
func (h *header) validate(sections map[string]*Section) (problem.ProblemSpec, error) {
	spec := problem.ProblemSpec{
		Name:              h.name,
		Comment:           strings.Join(h.comments, "\n"),
		Kind:              h.kind,
		TypeRaw:           h.typeRaw,
		Dimension:         h.dimension,
		EdgeWeightType:    h.edgeWeightType,
		EdgeWeightTypeRaw: h.edgeWeightRaw,
		EdgeDataFormat:    h.edgeDataFormat,
		NodeCoordType:     h.nodeCoordType,
		DisplayDataType:   h.displayDataType,
	}

	if h.kind == "" {
		return spec, missing("TYPE")
	}
	if !h.hasDimension {
		return spec, missing("DIMENSION")
	}

	if h.kind == problem.KindVRP {
		if !h.hasCapacity {
			return spec, missing("CAPACITY")
		}
		c := h.capacity
		spec.Capacity = &c
	} else if h.hasCapacity {
		return spec, headerError(ErrMalformedHeader, "CAPACITY", h.capacityLine, strconv.Itoa(h.capacity),
			fmt.Errorf("only valid for VRP, problem is %s", h.kind))
	}

	needsWeights := h.kind == problem.KindTSP || h.kind == problem.KindATSP ||
		h.kind == problem.KindVRP || h.kind == problem.KindSOP
	if needsWeights && h.edgeWeightType == "" {
		return spec, missing("EDGE_WEIGHT_TYPE")
	}

	mode := h.edgeWeightType.Mode()
	switch {
	case mode.Explicit:
		if h.edgeWeightFmt == "" {
			return spec, missing("EDGE_WEIGHT_FORMAT")
		}
		f, err := matrix.ParseFormat(h.edgeWeightFmt)
		if err != nil {
			return spec, headerError(ErrUnsupportedFeature, "EDGE_WEIGHT_FORMAT", h.edgeWeightLine, h.edgeWeightFmt, err)
		}
		if (h.kind == problem.KindATSP || h.kind == problem.KindSOP) && f != matrix.FullMatrix {
			return spec, headerError(ErrMalformedHeader, "EDGE_WEIGHT_FORMAT", h.edgeWeightLine, h.edgeWeightFmt,
				fmt.Errorf("asymmetric %s problems require %s", h.kind, matrix.FullMatrix))
		}
		if sections[sectionEdgeWeight] == nil {
			return spec, missing(sectionEdgeWeight)
		}
		spec.EdgeWeightFormat = f

	case mode.IsCoordinate():
		// FUNCTION is the customary companion of coordinate types and carries no data.
		if h.edgeWeightFmt != "" && matrix.Format(h.edgeWeightFmt) != matrix.Function {
			return spec, headerError(ErrMalformedHeader, "EDGE_WEIGHT_FORMAT", h.edgeWeightLine, h.edgeWeightFmt,
				fmt.Errorf("only valid with EDGE_WEIGHT_TYPE EXPLICIT"))
		}
		if sections[sectionNodeCoord] == nil {
			return spec, missing(sectionNodeCoord)
		}
	}

	if h.kind == problem.KindHCP && sections[sectionEdgeData] == nil {
		return spec, missing(sectionEdgeData)
	}
	if sections[sectionEdgeData] != nil && h.edgeDataFormat == "" {
		return spec, missing("EDGE_DATA_FORMAT")
	}
	if h.kind == problem.KindTour && sections[sectionTour] == nil {
		return spec, missing(sectionTour)
	}

	return spec, nil
}

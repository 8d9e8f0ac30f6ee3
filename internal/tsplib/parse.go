// Package tsplib decodes the keyword-and-section problem file format into a
// normalized problem.Record.
//
// Parsing is a pure function of the input text. It runs in four passes:
// tokenize, decode header keywords and section payloads, rebase indices to
// 0, then validate dimensions and build the distance matrix. Nothing is
// returned unless every pass succeeds.
package tsplib

import (
	"github.com/frederic-klein/tspingest/internal/matrix"
	"github.com/frederic-klein/tspingest/internal/problem"
)

// Parse decodes one problem or tour file.
func Parse(text string) (*problem.Record, error) {
	doc, err := Tokenize(text)
	if err != nil {
		return nil, err
	}

	h, err := decodeHeader(doc.Fields)
	if err != nil {
		return nil, err
	}

	present := make(map[string]*Section, len(doc.Sections))
	for i := range doc.Sections {
		if _, ok := present[doc.Sections[i].Name]; !ok {
			present[doc.Sections[i].Name] = &doc.Sections[i]
		}
	}

	spec, err := h.validate(present)
	if err != nil {
		return nil, err
	}

	raw, err := decodeSections(h, doc.Sections)
	if err != nil {
		return nil, err
	}

	base, err := detectBase(raw)
	if err != nil {
		return nil, err
	}
	raw.rebase(base)

	return assemble(spec, h, raw, base, doc.SawEOF)
}

func assemble(spec problem.ProblemSpec, h *header, raw *rawSections, base int, sawEOF bool) (*problem.Record, error) {
	var (
		m      matrix.Matrix
		offset int
		quirks []problem.Quirk
		err    error
	)
	if spec.Mode().Explicit {
		weights := raw.weights
		if spec.Kind == problem.KindSOP {
			var q problem.Quirk
			weights, q = stripDimensionMarker(spec, weights)
			quirks = append(quirks, q)
		}

		var n int
		var q *problem.Quirk
		n, offset, q, err = matrixDimension(spec, weights, raw.depots, raw.weightLine)
		if err != nil {
			return nil, err
		}
		if q != nil {
			quirks = append(quirks, *q)
		}

		if m, err = buildMatrix(spec, n, weights, raw.weightLine); err != nil {
			return nil, err
		}
	}

	// Nothing sized by DIMENSION is allocated before this check.
	if err := checkDimension(spec, raw, m != nil); err != nil {
		return nil, err
	}

	nodes, err := buildNodes(spec, raw)
	if err != nil {
		return nil, err
	}

	rec := &problem.Record{
		Spec:         spec,
		Nodes:        nodes,
		Matrix:       m,
		MatrixOffset: offset,
		Depots:       raw.depots,
		IndexBase:    base,
		Quirks:       quirks,
		Extras:       h.extras,
	}

	if rec.Tours, err = checkTours(raw.tours, spec.Dimension); err != nil {
		return nil, err
	}
	if rec.Edges, err = checkEdges(sectionEdgeData, raw.edges, spec.Dimension); err != nil {
		return nil, err
	}
	if rec.FixedEdges, err = checkEdges(sectionFixedEdges, raw.fixedEdges, spec.Dimension); err != nil {
		return nil, err
	}

	if m != nil && spec.Kind == problem.KindSOP {
		rec.Precedences = precedences(m)
	}

	if !sawEOF {
		rec.Quirks = append(rec.Quirks, problem.Quirk{Kind: problem.QuirkMissingEOF, Detail: "input ended without EOF"})
	}

	return rec, nil
}

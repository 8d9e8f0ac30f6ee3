package tsplib

import (
	"fmt"
	"strconv"

	"github.com/frederic-klein/tspingest/internal/problem"
)

// detectBase finds the numbering convention from the smallest index in any
// index-bearing section. Files with no indices at all count as 1-based.
func detectBase(raw *rawSections) (int, error) {
	min, seen := 0, false
	observe := func(id int) {
		if !seen || id < min {
			min, seen = id, true
		}
	}

	for _, p := range raw.coords {
		observe(p.id)
	}
	for _, p := range raw.display {
		observe(p.id)
	}
	for _, d := range raw.demands {
		observe(d.id)
	}
	for _, id := range raw.depots {
		observe(id)
	}
	for _, e := range raw.edges {
		observe(e.from)
		observe(e.to)
	}
	for _, e := range raw.fixedEdges {
		observe(e.from)
		observe(e.to)
	}
	for _, t := range raw.tours {
		for _, id := range t {
			observe(id)
		}
	}

	if !seen {
		return 1, nil
	}
	switch min {
	case 0, 1:
		return min, nil
	}
	return 0, &ParseError{Kind: ErrIndexingAmbiguity, Value: strconv.Itoa(min),
		Err: fmt.Errorf("smallest node index is %d, expected 0 or 1", min)}
}

// rebase shifts every index in raw by -base. It runs exactly once per parse.
func (raw *rawSections) rebase(base int) {
	if base == 0 {
		return
	}
	for i := range raw.coords {
		raw.coords[i].id -= base
	}
	for i := range raw.display {
		raw.display[i].id -= base
	}
	for i := range raw.demands {
		raw.demands[i].id -= base
	}
	for i := range raw.depots {
		raw.depots[i] -= base
	}
	for i := range raw.edges {
		raw.edges[i].from -= base
		raw.edges[i].to -= base
	}
	for i := range raw.fixedEdges {
		raw.fixedEdges[i].from -= base
		raw.fixedEdges[i].to -= base
	}
	for _, t := range raw.tours {
		for i := range t {
			t[i] -= base
		}
	}
}

// checkDimension requires the file's contents to account for the declared
// dimension. A matrix already ties it to the weight count. Otherwise a node
// section must list every node, and files made only of index references
// (tours, edge data, depots) must hold at least one reference per node.
func checkDimension(spec problem.ProblemSpec, raw *rawSections, hasMatrix bool) error {
	n := spec.Dimension
	if hasMatrix {
		return nil
	}
	if spec.Mode().IsCoordinate() {
		return checkCoverage(sectionNodeCoord, n, len(raw.coords))
	}

	covered := false
	for _, s := range []struct {
		section string
		count   int
	}{
		{sectionNodeCoord, len(raw.coords)},
		{sectionDisplayData, len(raw.display)},
		{sectionDemand, len(raw.demands)},
	} {
		if s.count == 0 {
			continue
		}
		if err := checkCoverage(s.section, n, s.count); err != nil {
			return err
		}
		covered = true
	}
	if covered {
		return nil
	}

	refs := len(raw.depots) + 2*len(raw.edges) + 2*len(raw.fixedEdges)
	for _, t := range raw.tours {
		refs += len(t)
	}
	if refs < n {
		return &ParseError{Kind: ErrDimensionMismatch, Keyword: "DIMENSION", Expected: n, Actual: refs,
			HasCount: true, Err: fmt.Errorf("only %d node references to account for %d nodes", refs, n)}
	}
	return nil
}

// buildNodes creates the contiguous node list [0, dimension) and attaches
// coordinates, display data and demands. Each section that is present must
// name every node exactly once.
func buildNodes(spec problem.ProblemSpec, raw *rawSections) ([]problem.Node, error) {
	n := spec.Dimension
	nodes := make([]problem.Node, n)
	for i := range nodes {
		nodes[i].Index = i
	}

	if len(raw.coords) > 0 {
		if err := checkCoverage(sectionNodeCoord, n, len(raw.coords)); err != nil {
			return nil, err
		}
		seen := make([]bool, n)
		for _, p := range raw.coords {
			if err := claim(sectionNodeCoord, seen, p.id, p.line); err != nil {
				return nil, err
			}
			nodes[p.id].Coords = p.coords
		}
	}

	if len(raw.display) > 0 {
		if err := checkCoverage(sectionDisplayData, n, len(raw.display)); err != nil {
			return nil, err
		}
		seen := make([]bool, n)
		for _, p := range raw.display {
			if err := claim(sectionDisplayData, seen, p.id, p.line); err != nil {
				return nil, err
			}
			nodes[p.id].Display = p.coords
		}
	}

	if len(raw.demands) > 0 {
		if err := checkCoverage(sectionDemand, n, len(raw.demands)); err != nil {
			return nil, err
		}
		seen := make([]bool, n)
		for _, d := range raw.demands {
			if err := claim(sectionDemand, seen, d.id, d.line); err != nil {
				return nil, err
			}
			nodes[d.id].Demand = d.demand
		}
	}

	for _, id := range raw.depots {
		if id < 0 || id >= n {
			return nil, outOfRange(sectionDepot, 0, id, n)
		}
		nodes[id].IsDepot = true
	}

	return nodes, nil
}

func checkCoverage(section string, want, got int) error {
	if want != got {
		return countError(ErrDimensionMismatch, section, want, got)
	}
	return nil
}

func claim(section string, seen []bool, id, line int) error {
	if id < 0 || id >= len(seen) {
		return outOfRange(section, line, id, len(seen))
	}
	if seen[id] {
		return sectionError(ErrDuplicateIndex, section, line, strconv.Itoa(id), nil)
	}
	seen[id] = true
	return nil
}

func outOfRange(section string, line, id, n int) error {
	return sectionError(ErrDimensionMismatch, section, line, strconv.Itoa(id),
		fmt.Errorf("index outside [0, %d)", n))
}

func checkEdges(section string, edges []rawEdge, n int) ([]problem.Edge, error) {
	if len(edges) == 0 {
		return nil, nil
	}
	out := make([]problem.Edge, len(edges))
	for i, e := range edges {
		for _, id := range []int{e.from, e.to} {
			if id < 0 || id >= n {
				return nil, outOfRange(section, e.line, id, n)
			}
		}
		out[i] = problem.Edge{From: e.from, To: e.to}
	}
	return out, nil
}

func checkTours(tours [][]int, n int) ([]problem.Tour, error) {
	if len(tours) == 0 {
		return nil, nil
	}
	out := make([]problem.Tour, len(tours))
	for i, t := range tours {
		for _, id := range t {
			if id < 0 || id >= n {
				return nil, outOfRange(sectionTour, 0, id, n)
			}
		}
		out[i] = problem.Tour(t)
	}
	return out, nil
}

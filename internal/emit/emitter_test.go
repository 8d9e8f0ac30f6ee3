package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/tspingest/internal/problem"
	"github.com/frederic-klein/tspingest/internal/tsplib"
)

const explicitProblem = `NAME: four
TYPE: TSP
DIMENSION: 4
EDGE_WEIGHT_TYPE: EXPLICIT
EDGE_WEIGHT_FORMAT: LOWER_DIAG_ROW
EDGE_WEIGHT_SECTION
9
2 9
3 4 9
5 6 7 9
EOF`

const vrpProblem = `NAME: small
TYPE: CVRP
DIMENSION: 3
CAPACITY: 5
EDGE_WEIGHT_TYPE: EUC_2D
NODE_COORD_SECTION
1 0 0
2 3 4
3 6 8
DEMAND_SECTION
1 0
2 2
3 3
DEPOT_SECTION
1
-1
`

func mustParse(t *testing.T, text string) *problem.Record {
	t.Helper()
	rec, err := tsplib.Parse(text)
	require.NoError(t, err)
	return rec
}

func TestEmit_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(&buf, JSON, false).Emit(mustParse(t, vrpProblem)))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "small", doc.Name)
	assert.Equal(t, "VRP", doc.Type)
	assert.Equal(t, "CVRP", doc.TypeRaw)
	assert.Empty(t, doc.EdgeWeightRaw)
	require.NotNil(t, doc.Capacity)
	assert.Equal(t, 5, *doc.Capacity)
	assert.Equal(t, "coordinate(euclidean)", doc.DistanceMode)
	assert.Equal(t, []int{0}, doc.Depots)
	require.Len(t, doc.Nodes, 3)
	assert.True(t, doc.Nodes[0].Depot)
	assert.Equal(t, 3, doc.Nodes[2].Demand)
	assert.Nil(t, doc.Matrix)
	require.Len(t, doc.Quirks, 1)
	assert.Equal(t, "missing-eof", doc.Quirks[0].Kind)
}

func TestEmit_RawSpellings(t *testing.T) {
	text := strings.NewReplacer("TYPE: CVRP", "TYPE: cvrp", "EDGE_WEIGHT_TYPE: EUC_2D", "EDGE_WEIGHT_TYPE: euc_2d").
		Replace(vrpProblem)
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(&buf, JSON, false).Emit(mustParse(t, text)))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "VRP", doc.Type)
	assert.Equal(t, "cvrp", doc.TypeRaw)
	assert.Equal(t, "EUC_2D", doc.EdgeWeightType)
	assert.Equal(t, "euc_2d", doc.EdgeWeightRaw)
}

func TestEmit_MatrixStoredOrDense(t *testing.T) {
	rec := mustParse(t, explicitProblem)

	var flat bytes.Buffer
	require.NoError(t, NewEmitter(&flat, JSON, false).Emit(rec))
	var doc Document
	require.NoError(t, json.Unmarshal(flat.Bytes(), &doc))
	require.NotNil(t, doc.Matrix)
	assert.Equal(t, "LOWER_DIAG_ROW", doc.Matrix.Format)
	assert.Equal(t, []int{9, 2, 9, 3, 4, 9, 5, 6, 7, 9}, doc.Matrix.Weights)
	assert.Nil(t, doc.Matrix.Rows)
	assert.Empty(t, doc.Nodes)

	var dense bytes.Buffer
	require.NoError(t, NewEmitter(&dense, JSON, true).Emit(rec))
	doc = Document{}
	require.NoError(t, json.Unmarshal(dense.Bytes(), &doc))
	assert.Nil(t, doc.Matrix.Weights)
	assert.Equal(t, [][]int{
		{9, 2, 3, 5},
		{2, 9, 4, 6},
		{3, 4, 9, 7},
		{5, 6, 7, 9},
	}, doc.Matrix.Rows)
}

func TestEmit_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(&buf, YAML, false).Emit(mustParse(t, explicitProblem)))

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "four", doc.Name)
	assert.Equal(t, "explicit", doc.DistanceMode)
	assert.Contains(t, buf.String(), "weights: [9, 2, 9, 3, 4, 9, 5, 6, 7, 9]")
}

func TestEmitAll_SortedByName(t *testing.T) {
	var buf bytes.Buffer
	recs := []*problem.Record{mustParse(t, vrpProblem), mustParse(t, explicitProblem)}
	require.NoError(t, NewEmitter(&buf, JSON, false).EmitAll(recs))

	var docs []Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "four", docs[0].Name)
	assert.Equal(t, "small", docs[1].Name)
	// The input slice is left untouched.
	assert.Equal(t, "small", recs[0].Spec.Name)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)

	_, err = ParseFormat("xml")
	require.Error(t, err)
}

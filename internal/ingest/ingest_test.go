package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/frederic-klein/tspingest/internal/discover"
	"github.com/frederic-klein/tspingest/internal/metrics"
	"github.com/frederic-klein/tspingest/internal/problem"
	"github.com/frederic-klein/tspingest/internal/store"
	"github.com/frederic-klein/tspingest/internal/tsplib"
)

var include = []string{"*.tsp", "*.sop", "*.vrp"}

const goodTSP = `NAME: five
TYPE: TSP
DIMENSION: 5
EDGE_WEIGHT_TYPE: EUC_2D
NODE_COORD_SECTION
1 0 0
2 3 4
3 6 8
4 0 10
5 10 0
EOF
`

const goodSOP = `NAME: ESC3.sop
TYPE: SOP
DIMENSION: 3
EDGE_WEIGHT_TYPE: EXPLICIT
EDGE_WEIGHT_FORMAT: FULL_MATRIX
EDGE_WEIGHT_SECTION
3
0 1 2
-1 0 5
-1 -1 0
EOF
`

const badTSP = `NAME: broken
TYPE: TSP
EDGE_WEIGHT_TYPE: EUC_2D
NODE_COORD_SECTION
1 0 0
EOF
`

type fakeSink struct {
	mu      sync.Mutex
	records map[string]*problem.Record
	runs    []*store.Run
	fail    bool
}

func (f *fakeSink) SaveRecord(_ context.Context, rec *problem.Record, sourcePath, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, errors.New("disk full")
	}
	if f.records == nil {
		f.records = make(map[string]*problem.Record)
	}
	f.records[store.RecordName(rec, sourcePath)] = rec
	return int64(len(f.records)), nil
}

func (f *fakeSink) SaveRun(_ context.Context, run *store.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestRunner_Run(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"five.tsp":   goodTSP,
		"esc3.sop":   goodSOP,
		"broken.tsp": badTSP,
		"readme.txt": "not a problem",
	})
	sink := &fakeSink{}
	core, logs := observer.New(zap.InfoLevel)
	metricsFile := filepath.Join(t.TempDir(), "ingest.prom")

	runner := NewRunner(sink, metrics.NewCollector(), zap.New(core), Options{
		Workers:     2,
		Include:     include,
		MetricsFile: metricsFile,
	})
	sum, err := runner.Run(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Len(t, sum.Files, 3)
	assert.Equal(t, 2, sum.Parsed)
	assert.Equal(t, 2, sum.Stored)
	assert.Equal(t, 1, sum.Failed)
	assert.NotEmpty(t, sum.RunID)
	assert.False(t, sum.FinishedAt.Before(sum.StartedAt))

	failures := sum.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, filepath.Join(dir, "broken.tsp"), failures[0].Source)
	require.ErrorIs(t, failures[0].Err, tsplib.ErrMissingRequiredField)
	require.ErrorIs(t, sum.Err(), tsplib.ErrMissingRequiredField)

	assert.Contains(t, sink.records, "five")
	assert.Contains(t, sink.records, "ESC3.sop")
	require.Len(t, sink.runs, 1)
	assert.Equal(t, sum.RunID, sink.runs[0].ID)
	assert.Equal(t, 3, sink.runs[0].Files)
	assert.Equal(t, 1, sink.runs[0].Failures)

	quirkLogs := logs.FilterMessage("quirk accepted").All()
	require.Len(t, quirkLogs, 1)
	assert.Equal(t, string(problem.QuirkDimensionMarker), quirkLogs[0].ContextMap()["quirk"])

	_, err = os.Stat(metricsFile)
	require.NoError(t, err)
}

func TestRunner_FilesKeepSourceOrder(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.tsp": goodTSP, "b.tsp": badTSP, "c.sop": goodSOP})
	sum, err := NewRunner(nil, nil, zap.NewNop(), Options{Workers: 4, Include: include}).
		Run(context.Background(), []string{dir})
	require.NoError(t, err)

	require.Len(t, sum.Files, 3)
	assert.Equal(t, filepath.Join(dir, "a.tsp"), sum.Files[0].Source)
	assert.Equal(t, "five", sum.Files[0].Name)
	assert.Equal(t, "TSP", sum.Files[0].Kind)
	assert.Equal(t, 5, sum.Files[0].Dimension)
	assert.NotEmpty(t, sum.Files[1].Error)
	assert.Equal(t, []string{string(problem.QuirkDimensionMarker)}, sum.Files[2].Quirks)
	// Without a sink nothing is stored.
	assert.Zero(t, sum.Stored)
	assert.False(t, sum.Files[0].Stored)
}

func TestRunner_StoreFailureIsolated(t *testing.T) {
	dir := writeFiles(t, map[string]string{"five.tsp": goodTSP})
	sink := &fakeSink{fail: true}

	sum, err := NewRunner(sink, nil, zap.NewNop(), Options{Workers: 1, Include: include}).
		Run(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Parsed)
	assert.Equal(t, 1, sum.Failed)
	assert.Zero(t, sum.Stored)
	assert.EqualError(t, sum.Files[0].Err, "disk full")
}

func TestRunner_OversizedDimensionIsolated(t *testing.T) {
	huge := "NAME: huge\nTYPE: TOUR\nDIMENSION: 4611686018427387904\nTOUR_SECTION\n1\n-1\nEOF\n"
	dir := writeFiles(t, map[string]string{"a.tsp": goodTSP, "huge.tsp": huge, "c.sop": goodSOP})
	sink := &fakeSink{}

	var (
		sum *Summary
		err error
	)
	require.NotPanics(t, func() {
		sum, err = NewRunner(sink, nil, zap.NewNop(), Options{Workers: 2, Include: include}).
			Run(context.Background(), []string{dir})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Stored)
	assert.Equal(t, 1, sum.Failed)
	require.ErrorIs(t, sum.Files[2].Err, tsplib.ErrDimensionMismatch)
	assert.Contains(t, sink.records, "five")
	assert.Contains(t, sink.records, "ESC3.sop")
}

func TestRunner_Cancelled(t *testing.T) {
	dir := writeFiles(t, map[string]string{"a.tsp": goodTSP, "b.tsp": goodTSP})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &fakeSink{}
	sum, err := NewRunner(sink, nil, zap.NewNop(), Options{Workers: 1, Include: include}).
		Run(ctx, []string{dir})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Empty(t, sink.runs)
}

func TestRunner_DiscoveryError(t *testing.T) {
	_, err := NewRunner(nil, nil, zap.NewNop(), Options{Include: include}).
		Run(context.Background(), []string{filepath.Join(t.TempDir(), "absent")})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunner_WithStore(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	dir := writeFiles(t, map[string]string{"five.tsp": goodTSP, "esc3.sop": goodSOP})
	runner := NewRunner(db, nil, zap.NewNop(), Options{Workers: 2, Include: include})
	sum, err := runner.RunSources(ctx, []discover.Source{
		{Path: filepath.Join(dir, "five.tsp")},
		{Path: filepath.Join(dir, "esc3.sop")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Stored)

	list, err := db.List(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	runs, err := db.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sum.RunID, runs[0].ID)
}

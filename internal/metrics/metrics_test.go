package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c *Collector, name, label, value string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()

	c.ObserveParse("TSP", 52, 3*time.Millisecond)
	c.ObserveParse("TSP", 100, time.Millisecond)
	c.ObserveFailure()
	c.ObserveStored()
	c.ObserveQuirk("missing-eof")
	c.ObserveQuirk("missing-eof")

	assert.Equal(t, 2.0, counterValue(t, c, "tspingest_files_total", "outcome", OutcomeParsed))
	assert.Equal(t, 1.0, counterValue(t, c, "tspingest_files_total", "outcome", OutcomeFailed))
	assert.Equal(t, 1.0, counterValue(t, c, "tspingest_files_total", "outcome", OutcomeStored))
	assert.Equal(t, 2.0, counterValue(t, c, "tspingest_quirks_total", "quirk", "missing-eof"))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	a.ObserveFailure()
	assert.Equal(t, 0.0, counterValue(t, b, "tspingest_files_total", "outcome", OutcomeFailed))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector()
	start := time.Unix(1700000000, 0)
	c.ObserveRun(start, start.Add(2*time.Second))
	c.ObserveParse("VRP", 32, time.Millisecond)

	path := filepath.Join(t.TempDir(), "tspingest.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "tspingest_run_duration_seconds 2")
	assert.Contains(t, text, `tspingest_parse_duration_seconds_count{kind="VRP"} 1`)
}

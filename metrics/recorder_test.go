package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/metrics"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	r := metrics.New(reg)

	r.Node()
	r.Node()
	r.DummyNode()
	r.Separation(metrics.SepExact)
	r.Cut(metrics.CutLocal, 3)
	r.Cut(metrics.CutLocal, 0)
	r.Incumbent()
	r.OuterIteration()
	r.ObserveSolve("kadapt", 0.2)

	n, err := testutil.GatherAndCount(reg, "kadapt_solver_nodes_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	got := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				got[mf.GetName()] += c.GetValue()
			}
		}
	}
	require.Equal(t, 2.0, got["kadapt_solver_nodes_total"])
	require.Equal(t, 1.0, got["kadapt_solver_dummy_nodes_total"])
	require.Equal(t, 3.0, got["kadapt_solver_cuts_total"])
	require.Equal(t, 1.0, got["kadapt_solver_outer_iterations_total"])

	cnt, err := testutil.GatherAndCount(reg, "kadapt_solver_solve_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, cnt)
}

func TestNilRecorder(t *testing.T) {
	var r *metrics.Recorder
	require.NotPanics(t, func() {
		r.Node()
		r.DummyNode()
		r.Separation(metrics.SepSamples)
		r.Cut(metrics.CutLazy, 1)
		r.Incumbent()
		r.OuterIteration()
		r.ObserveSolve("lshaped", 1)
	})
}

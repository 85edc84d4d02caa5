package lshaped_test

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/kadapt/instances"
	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/lshaped"
	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/milp"
	"github.com/katalvlaran/kadapt/problem"
	"github.com/katalvlaran/kadapt/uncertainty"
)

func newSolver(t *testing.T, spec problem.Spec, mutate ...func(*lshaped.Options)) (*lshaped.Solver, *kadapt.Solver) {
	t.Helper()
	m, err := problem.Build(spec)
	require.NoError(t, err)
	k, err := kadapt.New(m, kadapt.DefaultOptions())
	require.NoError(t, err)
	opts := lshaped.DefaultOptions()
	for _, f := range mutate {
		f(&opts)
	}
	s, err := lshaped.New(k, opts)
	require.NoError(t, err)

	return s, k
}

func knapsack(t *testing.T) problem.Spec {
	t.Helper()
	d, err := instances.GenerateKnapsack(5, 2)
	require.NoError(t, err)
	k, err := instances.NewKnapsack(d)
	require.NoError(t, err)

	return k
}

// blind is Test1 with two w columns that observe no parameter.
type blind struct {
	instances.Test1
	cw []float64
}

func (blind) Info() problem.Info {
	info := instances.Test1{}.Info()
	info.NumFirstStage = 3
	info.ExistsFirstStage = true

	return info
}

func (b blind) MakeUncSet(u *uncertainty.Set) error {
	if err := b.Test1.MakeUncSet(u); err != nil {
		return err
	}
	for p := 1; p <= u.NumParams(); p++ {
		if err := u.SetObsVar(p, -1); err != nil {
			return err
		}
	}

	return nil
}

func (b blind) MakeVars(x, y *problem.VarSet) error {
	if err := b.Test1.MakeVars(x, y); err != nil {
		return err
	}

	return x.Add("w", milp.Binary, 0, 1, 2)
}

func (b blind) MakeConsX(*problem.Model) (problem.FirstStage, error) {
	return problem.FirstStage{CW: b.cw}, nil
}

// Without observation columns the first evaluation closes the gap.
func TestNoObservationSingleIteration(t *testing.T) {
	ctx := context.Background()
	s, _ := newSolver(t, instances.Test1{})

	res, err := s.Solve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, milp.Optimal, res.Status)
	require.Equal(t, 1, res.Iterations)
	require.InDelta(t, 1.25, res.Objective, 1e-4)
	require.InDelta(t, res.Objective, res.Bound, 1e-4)
	require.Empty(t, res.W)
	require.Len(t, res.X, 3)

	bc, err := s.SolveBranchAndCut(ctx, 1)
	require.NoError(t, err)
	require.True(t, bc.Status.HasSolution())
	require.Equal(t, 1, bc.Iterations)
	require.InDelta(t, res.Objective, bc.Objective, 1e-4)
}

// w columns that observe nothing leave the inner value unchanged, so one
// evaluation settles every pattern.
func TestUnobservingWSingleIteration(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name string
		cw   []float64
		obj  float64
		w    []bool
	}{
		{"costly", []float64{0.1, 0.1}, 1.25, []bool{false, false}},
		{"rebate", []float64{0.1, -0.2}, 1.05, []bool{false, true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newSolver(t, blind{cw: tc.cw})
			res, err := s.Solve(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, milp.Optimal, res.Status)
			require.Equal(t, 1, res.Iterations)
			require.InDelta(t, tc.obj, res.Objective, 1e-4)
			require.Equal(t, tc.w, res.W)
			require.Len(t, res.X, 3+2)

			s2, _ := newSolver(t, blind{cw: tc.cw})
			bc, err := s2.SolveBranchAndCut(ctx, 1)
			require.NoError(t, err)
			require.True(t, bc.Status.HasSolution(), bc.Status.String())
			require.Equal(t, 1, bc.Iterations)
			require.InDelta(t, tc.obj, bc.Objective, 1e-4)
			require.Equal(t, tc.w, bc.W)
			require.InDelta(t, boolF(tc.w[0]), bc.X[1], 1e-9)
			require.InDelta(t, boolF(tc.w[1]), bc.X[2], 1e-9)
		})
	}
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func TestTimeLimitBeforeMaster(t *testing.T) {
	s, _ := newSolver(t, knapsack(t), func(o *lshaped.Options) { o.TimeLimit = time.Nanosecond })
	res, err := s.Solve(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, milp.TimeLimInfeas, res.Status)
	require.Zero(t, res.Iterations)
	require.Equal(t, "Time Lim", res.Row(0).Status)

	bc, err := s.SolveBranchAndCut(context.Background(), 1)
	require.NoError(t, err)
	require.Contains(t, []milp.Status{milp.TimeLimFeas, milp.TimeLimInfeas}, bc.Status)
}

func TestExpiredContext(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	s, _ := newSolver(t, knapsack(t))

	res, err := s.Solve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, milp.TimeLimInfeas, res.Status)
	require.Equal(t, "Time Lim", res.Row(0).Status)
}

// Cancelling once the first w is evaluated must not be reported as optimal.
func TestCancelAfterEvaluation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hook := func(e zapcore.Entry) error {
		if e.Message == "w evaluated" {
			cancel()
		}
		return nil
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(io.Discard), zap.DebugLevel)
	log := zap.New(core, zap.Hooks(hook))

	s, _ := newSolver(t, blind{cw: []float64{0.1, 0.1}}, func(o *lshaped.Options) { o.Logger = log })
	res, err := s.Solve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, milp.AbortFeas, res.Status)
	require.Equal(t, 1, res.Iterations)
	require.InDelta(t, 1.25, res.Objective, 1e-4)
	require.Equal(t, "Time Lim", res.Row(0).Status)
}

// Every w pattern is evaluated at most once.
func TestEvaluationsBoundedByPatterns(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	rec := metrics.New(reg)
	s, _ := newSolver(t, knapsack(t), func(o *lshaped.Options) {
		o.GapTol = 0
		o.Metrics = rec
	})

	res, err := s.Solve(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, res.Status.HasSolution(), res.Status.String())
	require.LessOrEqual(t, res.Iterations, 1<<5)
	mfs, err := reg.Gather()
	require.NoError(t, err)
	var outer float64
	for _, mf := range mfs {
		if mf.GetName() == "kadapt_solver_outer_iterations_total" {
			outer = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, float64(res.Iterations), outer)
}

func TestBestBoxSeeds(t *testing.T) {
	for seed := int64(0); seed < 3; seed++ {
		d, err := instances.GenerateBestBox(5, seed)
		require.NoError(t, err)
		b, err := instances.NewBestBox(d)
		require.NoError(t, err)
		s, _ := newSolver(t, b)

		res, err := s.Solve(context.Background(), 1)
		require.NoError(t, err, "seed %d", seed)
		require.True(t, res.Status.HasSolution(), "seed %d: %s", seed, res.Status)
		require.LessOrEqual(t, res.Bound, res.Objective+1e-6)
	}
}

func TestModesAgree(t *testing.T) {
	ctx := context.Background()
	exact := func(o *lshaped.Options) { o.GapTol = 1e-6 }

	s, k := newSolver(t, knapsack(t), exact)
	it, err := s.Solve(ctx, 1)
	require.NoError(t, err)
	require.True(t, it.Status.HasSolution(), it.Status.String())
	require.Len(t, it.W, 5)
	require.LessOrEqual(t, it.Bound, it.Objective+1e-6)
	require.GreaterOrEqual(t, it.Iterations, 1)

	require.NoError(t, k.SetW(it.W))
	ok, err := k.FeasibleKAdaptability(it.X, 1)
	require.NoError(t, err)
	require.True(t, ok)

	s2, _ := newSolver(t, knapsack(t), exact)
	bc, err := s2.SolveBranchAndCut(ctx, 1)
	require.NoError(t, err)
	require.True(t, bc.Status.HasSolution(), bc.Status.String())
	require.InDelta(t, it.Objective, bc.Objective, 1e-3*(1+math.Abs(it.Objective)))
}

func TestHeuristicCarriesCuts(t *testing.T) {
	ctx := context.Background()
	s, _ := newSolver(t, knapsack(t), func(o *lshaped.Options) { o.Heuristic = true })

	one, err := s.Solve(ctx, 1)
	require.NoError(t, err)
	require.True(t, one.Heuristic)
	require.Positive(t, s.Stored())

	two, err := s.Solve(ctx, 2)
	require.NoError(t, err)
	require.True(t, two.Status.HasSolution())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	rec := metrics.New(reg)
	s, _ := newSolver(t, instances.Test1{}, func(o *lshaped.Options) { o.Metrics = rec })

	_, err := s.Solve(context.Background(), 1)
	require.NoError(t, err)
	n, err := testutil.GatherAndCount(reg, "kadapt_solver_outer_iterations_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestOptionsValidation(t *testing.T) {
	m, err := problem.Build(instances.Test1{})
	require.NoError(t, err)
	k, err := kadapt.New(m, kadapt.DefaultOptions())
	require.NoError(t, err)

	opts := lshaped.DefaultOptions()
	opts.GapTol = -1
	_, err = lshaped.New(k, opts)
	require.ErrorIs(t, err, lshaped.ErrOptions)
}

func TestResultRow(t *testing.T) {
	s, _ := newSolver(t, instances.Test1{})
	res, err := s.Solve(context.Background(), 1)
	require.NoError(t, err)

	row := res.Row(7)
	require.Equal(t, int64(7), row.Seed)
	require.Equal(t, "Optimal", row.Status)
	require.Equal(t, 1, row.Iterations)
	require.InDelta(t, 1.25, row.Objective, 1e-4)
}

package kadapt_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/instances"
	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
	"github.com/katalvlaran/kadapt/problem"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// selection picks one of three items with uncertain costs
// q ∈ [0, 1]³, Σq ≤ 1.5, nominal 0.5 each:
//
//	min O  s.t.  O − Σ_i q_i·y_i ≥ 0,  Σ_i y_i = 1.
//
// One policy pays 1, two pay 0.75 and three pay 0.5.
type selection struct{}

func (selection) Info() problem.Info {
	return problem.Info{HasInteger: true, ObjectiveUnc: true, NumFirstStage: 1, NumSecondStage: 3}
}

func (selection) MakeUncSet(u *uncertainty.Set) error {
	var sum []linprog.Term
	for i := 0; i < 3; i++ {
		p, err := u.AddParam(0.5, 0, 1)
		if err != nil {
			return err
		}
		sum = append(sum, linprog.Term{Index: p, Coef: 1})
	}

	return u.AddFacet(sum, linprog.LessEqual, 1.5)
}

func (selection) MakeVars(x, y *problem.VarSet) error {
	if err := x.Add("O", milp.Continuous, math.Inf(-1), math.Inf(1)); err != nil {
		return err
	}
	if err := x.SetObj(1, "O"); err != nil {
		return err
	}

	return y.Add("y", milp.Binary, 0, 1, 3)
}

func (selection) MakeConsX(*problem.Model) (problem.FirstStage, error) {
	return problem.FirstStage{}, nil
}

func (selection) MakeConsY(m *problem.Model, k int) (problem.Policy, error) {
	obj := expr.New(fmt.Sprintf("OBJ(%d)", k), linprog.GreaterEqual, 0)
	obj.AddTermX(m.VarIndex1("O"), 1)
	one := expr.New(fmt.Sprintf("ONE(%d)", k), linprog.Equal, 1)
	for i := 0; i < 3; i++ {
		obj.AddTermProduct(m.VarIndex2(k, "y", i), i+1, -1)
		one.AddTermX(m.VarIndex2(k, "y", i), 1)
	}

	return problem.Policy{CXY: expr.List{one}, CXYQ: expr.List{obj}}, nil
}

func newSelection(t *testing.T) *kadapt.Solver {
	t.Helper()
	m, err := problem.Build(selection{})
	require.NoError(t, err)
	s, err := kadapt.New(m, kadapt.DefaultOptions())
	require.NoError(t, err)

	return s
}

func TestSRODualityMatchesCuttingPlanes(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		solver func(*testing.T) *kadapt.Solver
		want   float64
	}{
		{"test1", func(t *testing.T) *kadapt.Solver { return newTest1(t) }, test1Static},
		{"selection", newSelection, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sv := c.solver(t)
			cp, err := sv.SolveSRO(ctx)
			require.NoError(t, err)
			require.True(t, cp.Status.HasSolution())

			dual, err := sv.SolveSRODuality(ctx)
			require.NoError(t, err)
			require.Equal(t, milp.Optimal, dual.Status)
			require.InDelta(t, c.want, dual.Objective, 1e-5)
			require.InDelta(t, cp.Objective, dual.Objective, 1e-5)
			require.Len(t, dual.X, sv.Model().NumVars(1))
			ok, err := sv.FeasibleSRO(dual.X)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestMinMaxMin(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		K         int
		objective float64
		heuristic bool
	}{
		{1, 1, true},
		{2, 0.75, true},
		{3, 0.5, true},
		{4, 0.5, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("K=%d", c.K), func(t *testing.T) {
			sv := newSelection(t)
			res, err := sv.SolveMinMaxMin(ctx, c.K)
			require.NoError(t, err)
			require.InDelta(t, c.objective, res.Objective, 1e-5)
			require.InDelta(t, 0.5, res.BestBound, 1e-5)
			require.Equal(t, c.heuristic, res.Heuristic)
			if c.heuristic {
				require.Equal(t, milp.OptimalTol, res.Status)
			} else {
				require.Equal(t, milp.Optimal, res.Status)
			}
			require.Len(t, res.X, sv.Model().NumVars(c.K))
			wc, err := sv.WorstCase(res.X, c.K)
			require.NoError(t, err)
			require.InDelta(t, res.Objective, wc, 1e-6)
		})
	}

	sv := newSelection(t)
	exact, err := sv.SolveKAdaptability(ctx, 2, false)
	require.NoError(t, err)
	require.InDelta(t, 0.75, exact.Objective, 1e-4)
}

func TestMinMaxMinScope(t *testing.T) {
	_, err := newTest1(t).SolveMinMaxMin(context.Background(), 2)
	require.ErrorIs(t, err, kadapt.ErrMinMaxMin)
	_, err = newSelection(t).SolveMinMaxMin(context.Background(), 0)
	require.ErrorIs(t, err, kadapt.ErrPolicies)
}

// A first stage taken from a K=1 solve and pinned back reproduces its value,
// and moving one pinned column can only cost more.
func TestSolveFixedAndSweep(t *testing.T) {
	ctx := context.Background()
	spec, err := instances.Generate(instances.KindKnapsack, 5, 0)
	require.NoError(t, err)
	m, err := problem.Build(spec)
	require.NoError(t, err)

	sv, err := kadapt.New(m, kadapt.DefaultOptions())
	require.NoError(t, err)
	begin, end := sv.Model().WRange()
	w := make([]bool, end-begin)
	for j := range w {
		w[j] = j%2 == 0
	}
	require.NoError(t, sv.SetW(w))
	base, err := sv.SolveKAdaptability(ctx, 1, false)
	require.NoError(t, err)
	if base.Status != milp.Optimal {
		t.Skipf("reference solve ended with %v", base.Status)
	}
	n1 := sv.Model().NumFirstStage()
	first := append([]float64(nil), base.X[:n1]...)

	ev, err := kadapt.New(m, kadapt.DefaultOptions())
	require.NoError(t, err)
	fixed, err := ev.SolveFixed(ctx, 1, base.X)
	require.NoError(t, err)
	require.Equal(t, milp.Optimal, fixed.Status)
	require.InDelta(t, base.Objective, fixed.Objective, 1e-4)
	require.Equal(t, sv.Model().W(), ev.Model().W())
	for j := 1; j < n1; j++ {
		require.InDelta(t, first[j], fixed.X[j], 1e-6, "column %d", j)
	}

	psi, err := ev.Model().X().Index("psi")
	require.NoError(t, err)
	v := first[psi]
	pts, err := ev.Sweep(ctx, 1, first, "psi", []kadapt.Axis{{Lo: v, Hi: v + 1, Points: 2}})
	require.NoError(t, err)
	require.Len(t, pts, 2)
	require.InDelta(t, v, pts[0].Values[0], 1e-12)
	require.InDelta(t, v+1, pts[1].Values[0], 1e-12)
	require.InDelta(t, base.Objective, pts[0].Objective, 1e-4)
	if pts[1].Status == milp.Optimal {
		require.GreaterOrEqual(t, pts[1].Objective, base.Objective-1e-4)
	}

	require.ErrorIs(t, ev.FixFirstStage(first[:1]), kadapt.ErrDimension)
	_, err = ev.Sweep(ctx, 1, first, "psi", []kadapt.Axis{{Lo: 1, Hi: 0, Points: 2}})
	require.ErrorIs(t, err, kadapt.ErrDimension)
	require.NoError(t, ev.FixFirstStage(nil))
}

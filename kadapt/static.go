package kadapt

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/milp"
)

// newModel returns a MILP over [X | Y_0 | ... | Y_{K−1}] with the
// deterministic rows of every policy and the pinned first-stage columns.
// relaxY makes the Y columns continuous.
func (s *Solver) newModel(K int, relaxY bool) (*milp.Model, error) {
	if err := s.resize(K); err != nil {
		return nil, err
	}
	mdl := milp.NewModel()
	for _, c := range s.m.X().Columns() {
		if _, err := mdl.AddVar(c.Type, c.LB, c.UB, c.Obj, c.Name); err != nil {
			return nil, err
		}
	}
	ycols := s.m.Y().Columns()
	for k := 0; k < K; k++ {
		for _, c := range ycols {
			t := c.Type
			if relaxY {
				t = milp.Continuous
			}
			if _, err := mdl.AddVar(t, c.LB, c.UB, 0, fmt.Sprintf("%s_%d", c.Name, k)); err != nil {
				return nil, err
			}
		}
	}
	for j := 1; j < len(s.fixed); j++ {
		if !math.IsNaN(s.fixed[j]) {
			mdl.Fix(j, s.fixed[j])
		}
	}
	if err := addRows(mdl, s.m.CX(), nil); err != nil {
		return nil, err
	}
	if err := addRows(mdl, s.m.BX(), nil); err != nil {
		return nil, err
	}
	for k := 0; k < K; k++ {
		if err := addRows(mdl, s.m.CXY(k), nil); err != nil {
			return nil, err
		}
		if err := addRows(mdl, s.m.BY(k), nil); err != nil {
			return nil, err
		}
	}

	return mdl, nil
}

type rowAdder interface {
	AddRow(linprog.Row) (int, error)
}

// addRows adds every row of l with the parameters fixed to q.
func addRows(m rowAdder, l expr.List, q []float64) error {
	for _, c := range l {
		r := c.Deterministic(q)
		if len(r.Terms) == 0 {
			continue
		}
		if _, err := m.AddRow(r); err != nil {
			return fmt.Errorf("kadapt: row %s: %w", c.Name, err)
		}
	}

	return nil
}

// scenarioRows returns the rows of C_XQ and C_XYQ[k] at q.
func (s *Solver) scenarioRows(k int, q []float64, only int) []linprog.Row {
	var out []linprog.Row
	add := func(c expr.Constraint) {
		if r := c.Deterministic(q); len(r.Terms) > 0 {
			out = append(out, r)
		}
	}
	for _, c := range s.m.CXQ() {
		add(c)
	}
	for j, c := range s.m.CXYQ(k) {
		if only < 0 || j == only {
			add(c)
		}
	}

	return out
}

// SolveDET solves the one-policy problem at the single scenario q.
func (s *Solver) SolveDET(ctx context.Context, q []float64) (milp.Result, error) {
	return s.SolveScSRO(ctx, [][]float64{q})
}

// SolveScSRO solves the one-policy problem robust against a finite scenario set.
func (s *Solver) SolveScSRO(ctx context.Context, samples [][]float64) (milp.Result, error) {
	if err := s.checkSamples(samples); err != nil {
		return milp.Result{}, err
	}
	mdl, err := s.newModel(1, false)
	if err != nil {
		return milp.Result{}, err
	}
	for _, q := range samples {
		if err = addRows(mdl, s.m.CXQ(), q); err != nil {
			return milp.Result{}, err
		}
		if err = addRows(mdl, s.m.CXYQ(0), q); err != nil {
			return milp.Result{}, err
		}
	}

	return milp.Solve(ctx, mdl, s.subOptions())
}

// ScenarioLP returns the LP relaxation of the problem restricted to samples,
// with one policy per sample: policy k only has to cover samples[k]. Its
// value bounds the K-adaptable optimum from below for every K.
func (s *Solver) ScenarioLP(samples [][]float64) (*linprog.Problem, error) {
	if len(samples) == 0 {
		return nil, ErrPolicies
	}
	if err := s.checkSamples(samples); err != nil {
		return nil, err
	}
	mdl, err := s.newModel(len(samples), true)
	if err != nil {
		return nil, err
	}
	for k, q := range samples {
		for _, r := range s.scenarioRows(k, q, -1) {
			if _, err = mdl.AddRow(r); err != nil {
				return nil, err
			}
		}
	}

	return mdl.Relaxation(), nil
}

// SolveSRO solves the static robust problem by lazy cutting planes over U.
func (s *Solver) SolveSRO(ctx context.Context) (milp.Result, error) {
	return s.solveSRO(ctx, false)
}

func (s *Solver) solveSRO(ctx context.Context, relaxY bool) (milp.Result, error) {
	mdl, err := s.newModel(1, relaxY)
	if err != nil {
		return milp.Result{}, err
	}
	nominal := s.m.Nominal()
	if err = addRows(mdl, s.m.CXQ(), nominal); err != nil {
		return milp.Result{}, err
	}
	if err = addRows(mdl, s.m.CXYQ(0), nominal); err != nil {
		return milp.Result{}, err
	}

	u := s.m.UncSet()
	rows := append(append(expr.List(nil), s.m.CXQ()...), s.m.CXYQ(0)...)
	opts := s.subOptions()
	opts.TimeLimit = s.opts.TimeLimit
	opts.LazyCuts = true
	opts.Callbacks.Cut = func(_ *milp.Node, x []float64) ([]milp.Cut, error) {
		var cuts []milp.Cut
		for _, c := range rows {
			q, err := u.MaxViolation(c, x)
			if err != nil {
				return nil, err
			}
			if q[0] > s.opts.InfeasTol {
				cuts = append(cuts, milp.Cut{Row: c.Deterministic(q)})
			}
		}
		s.opts.Metrics.Cut(metrics.CutLazy, len(cuts))

		return cuts, nil
	}

	return milp.Solve(ctx, mdl, opts)
}

// LowerBound returns a bound below the K-adaptable optimum for every K: the
// nominal optimum, and under objective uncertainty the larger of it and the
// static robust optimum with continuous Y.
func (s *Solver) LowerBound(ctx context.Context) (float64, error) {
	res, err := s.SolveDET(ctx, s.m.Nominal())
	if err != nil {
		return 0, err
	}
	if !res.Status.HasSolution() {
		return math.Inf(1), nil
	}
	lb := res.BestBound
	if !s.m.Info().ObjectiveUnc {
		return lb, nil
	}
	sro, err := s.solveSRO(ctx, true)
	if err != nil {
		return 0, err
	}
	if sro.Status.HasSolution() {
		lb = math.Max(lb, sro.BestBound)
	}

	return lb, nil
}

// WorstCase returns the worst-case objective max_q min_k over the policies
// feasible at q, or +Inf when some scenario is covered by no policy. First
// stage rows are assumed to hold.
func (s *Solver) WorstCase(x []float64, K int) (float64, error) {
	if err := s.resize(K); err != nil {
		return 0, err
	}
	if err := s.checkX(x, K); err != nil {
		return 0, err
	}
	if s.m.Info().ObjectiveUnc {
		v, _, err := s.worstObjective(x, K)
		return v, err
	}

	obj := make([][]expr.Affine, K)
	other := make([][]expr.Affine, K)
	hasObj := false
	for k := 0; k < K; k++ {
		for _, c := range s.m.CXYQ(k) {
			a, err := c.ViolationAffine(x)
			if err != nil {
				return 0, err
			}
			if c.HasVar(0) {
				obj[k] = append(obj[k], a)
				hasObj = true
			} else {
				other[k] = append(other[k], a)
			}
		}
	}
	if !hasObj {
		ok, _, err := s.FeasibleYQ(x, K)
		if err != nil || !ok {
			return math.Inf(1), err
		}
		return x[0], nil
	}

	worst := math.Inf(-1)
	for mask := 0; mask < 1<<K; mask++ {
		v, feasible, err := s.worstTuple(obj, other, mask)
		if err != nil {
			return 0, err
		}
		if !feasible {
			continue
		}
		if mask == 0 {
			return math.Inf(1), nil
		}
		worst = math.Max(worst, v)
	}
	if math.IsInf(worst, -1) {
		return x[0], nil
	}

	return x[0] + worst, nil
}

// worstObjective is WorstCase under objective uncertainty. It also returns
// the maximizing scenario.
func (s *Solver) worstObjective(x []float64, K int) (float64, []float64, error) {
	cons := make([]expr.Constraint, K)
	for k := range cons {
		cons[k] = s.m.CXYQ(k)[0]
	}
	q, err := s.m.UncSet().EvaluateKAdaptable(cons, x)
	if err != nil {
		return 0, nil, err
	}

	return x[0] + q[0], q, nil
}

// worstTuple maximizes tau over the scenarios at which exactly the policies
// in mask are feasible, tau being bounded by the objective violation of one
// feasible policy.
func (s *Solver) worstTuple(obj, other [][]expr.Affine, mask int) (float64, bool, error) {
	u := s.m.UncSet()
	tol := s.opts.InfeasTol
	mdl, err := u.Model()
	if err != nil {
		return 0, false, err
	}
	mdl.SetObj(0, 1)
	mdl.SetMaximize(true)

	lo, hi := math.Inf(1), math.Inf(-1)
	for k := range obj {
		if mask&(1<<k) == 0 {
			continue
		}
		for _, a := range obj[k] {
			l, h, err := u.Range(a)
			if err != nil {
				return 0, false, err
			}
			lo, hi = math.Min(lo, l), math.Max(hi, h)
		}
	}
	if mask == 0 || math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	mdl.SetBounds(0, lo, hi)

	// a'q + a0 ≤ rhs as a row over q
	row := func(a expr.Affine, sign, rhs float64, name string) linprog.Row {
		r := linprog.Row{Name: name, Sense: linprog.LessEqual, RHS: rhs - sign*a.Const}
		for _, t := range a.Terms {
			r.Terms = append(r.Terms, linprog.Term{Index: t.Index, Coef: sign * t.Coef})
		}
		return r
	}
	choose := func(k int, rows []linprog.Row, prefix string) error {
		pick := linprog.Row{Name: fmt.Sprintf("%s%d", prefix, k), Sense: linprog.Equal, RHS: 1}
		for j, r := range rows {
			z, err := mdl.AddVar(milp.Binary, 0, 1, 0, fmt.Sprintf("%s%d_%d", prefix, j, k))
			if err != nil {
				return err
			}
			pick.Terms = append(pick.Terms, linprog.Term{Index: z, Coef: 1})
			if err = mdl.AddIndicator(milp.Indicator{Binary: z, Active: true, Row: r}); err != nil {
				return err
			}
		}
		_, err := mdl.AddRow(pick)
		return err
	}

	for k := range obj {
		if mask&(1<<k) != 0 {
			for j, a := range other[k] {
				if _, err := mdl.AddRow(row(a, 1, tol, fmt.Sprintf("feas%d_%d", j, k))); err != nil {
					return 0, false, err
				}
			}
			var sel []linprog.Row
			for j, a := range obj[k] {
				r := row(a, -1, 0, fmt.Sprintf("obj%d_%d", j, k))
				r.Terms = append(r.Terms, linprog.Term{Index: 0, Coef: 1})
				sel = append(sel, r)
			}
			if len(sel) > 0 {
				if err := choose(k, sel, "o"); err != nil {
					return 0, false, err
				}
			}
			continue
		}
		if len(other[k]) == 0 {
			return 0, false, nil
		}
		var rev []linprog.Row
		for j, a := range other[k] {
			rev = append(rev, row(a, -1, -tol, fmt.Sprintf("rev%d_%d", j, k)))
		}
		if err := choose(k, rev, "r"); err != nil {
			return 0, false, err
		}
	}

	res, err := milp.Solve(context.Background(), mdl, s.subOptions())
	if err != nil {
		return 0, false, err
	}
	switch res.Status {
	case milp.Optimal, milp.OptimalTol:
		return res.Objective, true, nil
	case milp.Infeasible:
		return 0, false, nil
	}

	return 0, false, statusError("worst case", res.Status)
}

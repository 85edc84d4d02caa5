package uncertainty

import (
	"fmt"
	"math"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
)

// paramBounds returns the bounds of parameter p with xiBar applied.
func (s *Set) paramBounds(p int) (float64, float64) {
	pr := s.params[p-1]
	if s.xiBar != nil && s.IsObserved(p) {
		return s.xiBar[p], s.xiBar[p]
	}

	return pr.LB, pr.UB
}

// LP returns an LP over [tau, q1..qP] with tau fixed to 0, the parameter
// bounds (xiBar applied) and every facet.
func (s *Set) LP() (*linprog.Problem, error) {
	lp := linprog.NewProblem()
	lp.AddVar(0, 0, 0, "tau")
	for p := 1; p <= len(s.params); p++ {
		lb, ub := s.paramBounds(p)
		lp.AddVar(lb, ub, 0, fmt.Sprintf("q%d", p))
	}
	for _, f := range s.facets {
		if _, err := lp.AddRow(f); err != nil {
			return nil, fmt.Errorf("uncertainty: facet %s: %w", f.Name, err)
		}
	}

	return lp, nil
}

// Model returns the same description as LP as a MILP model with tau free,
// for callers that add binaries and indicator rows. Column j is q[j].
func (s *Set) Model() (*milp.Model, error) {
	m := milp.NewModel()
	if _, err := m.AddVar(milp.Continuous, math.Inf(-1), math.Inf(1), 0, "tau"); err != nil {
		return nil, err
	}
	for p := 1; p <= len(s.params); p++ {
		lb, ub := s.paramBounds(p)
		if _, err := m.AddVar(milp.Continuous, lb, ub, 0, fmt.Sprintf("q%d", p)); err != nil {
			return nil, fmt.Errorf("uncertainty: q%d: %w", p, err)
		}
	}
	for _, f := range s.facets {
		if _, err := m.AddRow(f); err != nil {
			return nil, fmt.Errorf("uncertainty: facet %s: %w", f.Name, err)
		}
	}

	return m, nil
}

// Range returns the minimum and maximum of a over the parameter box
// (facets ignored, xiBar applied).
func (s *Set) Range(a expr.Affine) (float64, float64, error) {
	lo, hi := a.Const, a.Const
	for _, t := range a.Terms {
		if t.Index == 0 || t.Coef == 0 {
			continue
		}
		if t.Index < 1 || t.Index > len(s.params) {
			return 0, 0, ErrParamIndex
		}
		lb, ub := s.paramBounds(t.Index)
		u, v := t.Coef*lb, t.Coef*ub
		if u > v {
			u, v = v, u
		}
		lo += u
		hi += v
	}

	return lo, hi, nil
}

// MaxViolation maximizes the violation of con at x over the set. The returned
// scenario has q[0] set to the maximal violation.
func (s *Set) MaxViolation(con expr.Constraint, x []float64) ([]float64, error) {
	a, err := con.ViolationAffine(x)
	if err != nil {
		return nil, err
	}

	return s.maximize(a)
}

// Maximize returns argmax of a over the set with q[0] = max value.
func (s *Set) Maximize(a expr.Affine) ([]float64, error) { return s.maximize(a) }

func (s *Set) maximize(a expr.Affine) ([]float64, error) {
	lp, err := s.LP()
	if err != nil {
		return nil, err
	}
	for _, t := range a.Terms {
		if t.Index < 0 || t.Index >= lp.NumVars() {
			return nil, ErrParamIndex
		}
		if t.Index > 0 {
			lp.SetObj(t.Index, lp.Obj(t.Index)+t.Coef)
		}
	}
	lp.SetMaximize(true)

	sol, err := lp.Solve(s.lpOpts)
	if err != nil {
		return nil, err
	}
	switch sol.Status {
	case linprog.Infeasible:
		return nil, ErrEmpty
	case linprog.Unbounded:
		return nil, ErrUnbounded
	}
	q := sol.X
	q[0] = sol.Objective + a.Const

	return q, nil
}

// EvaluateKAdaptable solves max_q min_k viol_k(x, q) for the constraints in
// cons, each taken as one policy's objective row. It returns q with q[0] set
// to the optimal value.
func (s *Set) EvaluateKAdaptable(cons []expr.Constraint, x []float64) ([]float64, error) {
	affs := make([]expr.Affine, len(cons))
	for k, c := range cons {
		a, err := c.ViolationAffine(x)
		if err != nil {
			return nil, err
		}
		affs[k] = a
	}

	return s.MaxMin(affs)
}

// MaxMin solves max_q min_k a_k(q) as the LP max tau s.t. tau ≤ a_k(q).
func (s *Set) MaxMin(affs []expr.Affine) ([]float64, error) {
	if len(affs) == 0 {
		return nil, fmt.Errorf("%w: no functions", ErrDimension)
	}
	lp, err := s.LP()
	if err != nil {
		return nil, err
	}
	lp.SetBounds(0, math.Inf(-1), math.Inf(1))
	lp.SetObj(0, 1)
	lp.SetMaximize(true)
	for k, a := range affs {
		// tau − a'q ≤ const
		r := linprog.Row{Name: fmt.Sprintf("pol%d", k), Sense: linprog.LessEqual, RHS: a.Const}
		r.Terms = append(r.Terms, linprog.Term{Index: 0, Coef: 1})
		for _, t := range a.Terms {
			if t.Index < 1 || t.Index >= lp.NumVars() {
				return nil, ErrParamIndex
			}
			r.Terms = append(r.Terms, linprog.Term{Index: t.Index, Coef: -t.Coef})
		}
		if _, err := lp.AddRow(r); err != nil {
			return nil, err
		}
	}

	sol, err := lp.Solve(s.lpOpts)
	if err != nil {
		return nil, err
	}
	switch sol.Status {
	case linprog.Infeasible:
		return nil, ErrEmpty
	case linprog.Unbounded:
		return nil, ErrUnbounded
	}
	sol.X[0] = sol.Objective

	return sol.X, nil
}

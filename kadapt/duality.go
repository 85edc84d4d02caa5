package kadapt

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
)

// colRowAdder is the part of milp.Model the robust counterpart writes to.
type colRowAdder interface {
	rowAdder
	AddVar(t milp.VarType, lb, ub, obj float64, name string) (int, error)
}

// robustCounterpart adds the dual reformulation of max_q c(x, q) ≤ rhs over
// the set described by set (an LP over [tau, q1..qP] as returned by
// uncertainty.Set.LP). Row c becomes one row over x and the dual columns, plus
// one equality per parameter.
func robustCounterpart(m colRowAdder, c expr.Constraint, set *linprog.Problem) error {
	var s float64
	switch c.Sense {
	case linprog.LessEqual:
		s = 1
	case linprog.GreaterEqual:
		s = -1
	default:
		return fmt.Errorf("kadapt: row %s: %w", c.Name, expr.ErrEqualityUncertain)
	}

	P := set.NumVars() - 1
	main := linprog.Row{Name: "RC_" + c.Name, Sense: linprog.LessEqual, RHS: s * (c.RHS - c.Const)}
	for _, t := range c.X {
		main.Terms = append(main.Terms, linprog.Term{Index: t.Var, Coef: s * t.Coef})
	}
	eq := make([]linprog.Row, P+1)
	for p := 1; p <= P; p++ {
		eq[p] = linprog.Row{Name: fmt.Sprintf("RC_%s_q%d", c.Name, p), Sense: linprog.Equal}
	}
	for _, t := range c.Q {
		if t.Param < 1 || t.Param > P {
			return fmt.Errorf("kadapt: row %s: parameter %d outside 1..%d", c.Name, t.Param, P)
		}
		eq[t.Param].RHS += s * t.Coef
	}
	for _, t := range c.XQ {
		if t.Param < 1 || t.Param > P {
			return fmt.Errorf("kadapt: row %s: parameter %d outside 1..%d", c.Name, t.Param, P)
		}
		eq[t.Param].Terms = append(eq[t.Param].Terms, linprog.Term{Index: t.Var, Coef: -s * t.Coef})
	}

	dual := func(lb, ub, cost float64, name string) (int, error) {
		j, err := m.AddVar(milp.Continuous, lb, ub, 0, name)
		if err != nil {
			return 0, err
		}
		if cost != 0 {
			main.Terms = append(main.Terms, linprog.Term{Index: j, Coef: cost})
		}
		return j, nil
	}

	inf := math.Inf(1)
	for i := 0; i < set.NumRows(); i++ {
		f, err := set.Row(i)
		if err != nil {
			return err
		}
		lb, ub := 0.0, inf
		switch f.Sense {
		case linprog.GreaterEqual:
			lb, ub = -inf, 0
		case linprog.Equal:
			lb = -inf
		}
		j, err := dual(lb, ub, f.RHS, fmt.Sprintf("lambda_%s_%d", c.Name, i))
		if err != nil {
			return err
		}
		for _, t := range f.Terms {
			if t.Index >= 1 && t.Index <= P && t.Coef != 0 {
				eq[t.Index].Terms = append(eq[t.Index].Terms, linprog.Term{Index: j, Coef: t.Coef})
			}
		}
	}
	for p := 1; p <= P; p++ {
		lo, hi := set.Bounds(p)
		if lo == hi {
			j, err := dual(-inf, inf, lo, fmt.Sprintf("nu_%s_%d", c.Name, p))
			if err != nil {
				return err
			}
			eq[p].Terms = append(eq[p].Terms, linprog.Term{Index: j, Coef: 1})
			continue
		}
		if !math.IsInf(hi, 1) {
			j, err := dual(0, inf, hi, fmt.Sprintf("mu+_%s_%d", c.Name, p))
			if err != nil {
				return err
			}
			eq[p].Terms = append(eq[p].Terms, linprog.Term{Index: j, Coef: 1})
		}
		if !math.IsInf(lo, -1) {
			j, err := dual(0, inf, -lo, fmt.Sprintf("mu-_%s_%d", c.Name, p))
			if err != nil {
				return err
			}
			eq[p].Terms = append(eq[p].Terms, linprog.Term{Index: j, Coef: -1})
		}
	}

	if _, err := m.AddRow(main); err != nil {
		return fmt.Errorf("kadapt: row %s: %w", main.Name, err)
	}
	for p := 1; p <= P; p++ {
		if len(eq[p].Terms) == 0 && eq[p].RHS == 0 {
			continue
		}
		if _, err := m.AddRow(eq[p]); err != nil {
			return fmt.Errorf("kadapt: row %s: %w", eq[p].Name, err)
		}
	}

	return nil
}

// SolveSRODuality solves the static robust problem as one MILP in which every
// uncertain row is replaced by its dual reformulation. The returned X holds
// the one-policy layout only; the dual columns are dropped.
func (s *Solver) SolveSRODuality(ctx context.Context) (milp.Result, error) {
	mdl, err := s.newModel(1, false)
	if err != nil {
		return milp.Result{}, err
	}
	set, err := s.m.UncSet().LP()
	if err != nil {
		return milp.Result{}, err
	}
	rows := append(append(expr.List(nil), s.m.CXQ()...), s.m.CXYQ(0)...)
	for _, c := range rows {
		if c.IsDeterministic() {
			if err = addRows(mdl, expr.List{c}, nil); err != nil {
				return milp.Result{}, err
			}
			continue
		}
		if err = robustCounterpart(mdl, c, set); err != nil {
			return milp.Result{}, err
		}
	}

	opts := s.subOptions()
	opts.TimeLimit = s.opts.TimeLimit
	res, err := milp.Solve(ctx, mdl, opts)
	if err != nil {
		return milp.Result{}, err
	}
	if n := s.m.NumVars(1); len(res.X) > n {
		res.X = res.X[:n]
	}

	return res, nil
}

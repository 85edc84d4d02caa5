package linprog_test

import (
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/linprog"
)

func (s *LinprogSuite) addRow(p *linprog.Problem, sense linprog.Sense, rhs float64, terms ...linprog.Term) {
	_, err := p.AddRow(linprog.Row{Terms: terms, Sense: sense, RHS: rhs})
	require.NoError(s.T(), err)
}

// Beale's example cycles under textbook Dantzig pricing.
func (s *LinprogSuite) TestBealeCycling() {
	p := linprog.NewProblem()
	x4 := p.AddVar(0, linprog.Inf, -0.75, "x4")
	x5 := p.AddVar(0, linprog.Inf, 20, "x5")
	x6 := p.AddVar(0, linprog.Inf, -0.5, "x6")
	x7 := p.AddVar(0, linprog.Inf, 6, "x7")
	s.addRow(p, linprog.LessEqual, 0, linprog.Term{x4, 0.25}, linprog.Term{x5, -8}, linprog.Term{x6, -1}, linprog.Term{x7, 9})
	s.addRow(p, linprog.LessEqual, 0, linprog.Term{x4, 0.5}, linprog.Term{x5, -12}, linprog.Term{x6, -0.5}, linprog.Term{x7, 3})
	s.addRow(p, linprog.LessEqual, 1, linprog.Term{x6, 1})

	sol, err := p.Solve(linprog.DefaultOptions())
	require.NoError(s.T(), err)
	require.Equal(s.T(), linprog.Optimal, sol.Status)
	require.InDelta(s.T(), -1.25, sol.Objective, tol)
	require.LessOrEqual(s.T(), p.MaxViolation(sol.X), 1e-9)
}

// Fractional knapsack relaxation with the capacity row repeated and a fixed
// column: duplicates share the capacity dual.
func (s *LinprogSuite) TestDuplicateRowsAndFixedColumn() {
	profit := []float64{10, 13, 7, 8}
	weight := []float64{5, 6, 4, 3}
	p := linprog.NewProblem()
	terms := make([]linprog.Term, 0, len(profit)+1)
	for i := range profit {
		j := p.AddVar(0, 1, profit[i], "")
		terms = append(terms, linprog.Term{j, weight[i]})
	}
	fixed := p.AddVar(0, 0, 100, "fixed")
	terms = append(terms, linprog.Term{fixed, 1})
	p.SetMaximize(true)
	for range 3 {
		s.addRow(p, linprog.LessEqual, 10, terms...)
	}
	s.addRow(p, linprog.GreaterEqual, 0, terms...)
	s.addRow(p, linprog.LessEqual, 0)

	sol, err := p.Solve(linprog.Options{Duals: true})
	require.NoError(s.T(), err)
	require.Equal(s.T(), linprog.Optimal, sol.Status)
	require.InDelta(s.T(), 23, sol.Objective, tol)
	require.InDelta(s.T(), 0.2, sol.X[0], tol)
	require.InDelta(s.T(), 1, sol.X[1], tol)
	require.InDelta(s.T(), 0, sol.X[2], tol)
	require.InDelta(s.T(), 1, sol.X[3], tol)
	require.InDelta(s.T(), 0, sol.X[fixed], tol)
	require.InDelta(s.T(), 2, sol.Duals[0]+sol.Duals[1]+sol.Duals[2], 1e-6)
	require.InDelta(s.T(), 0, sol.Duals[3], 1e-6)
}

func (s *LinprogSuite) TestEmptyRowInfeasible() {
	p := linprog.NewProblem()
	p.AddVar(0, 1, 1, "x")
	s.addRow(p, linprog.GreaterEqual, 1)

	sol, err := p.Solve(linprog.DefaultOptions())
	require.NoError(s.T(), err)
	require.Equal(s.T(), linprog.Infeasible, sol.Status)
}

// Equalities that pin a degenerate vertex, plus a redundant copy.
func (s *LinprogSuite) TestDegenerateEqualities() {
	p := linprog.NewProblem()
	x := p.AddVar(0, linprog.Inf, 1, "x")
	y := p.AddVar(0, linprog.Inf, 1, "y")
	z := p.AddVar(0, linprog.Inf, 0, "z")
	s.addRow(p, linprog.Equal, 2, linprog.Term{x, 1}, linprog.Term{y, 1}, linprog.Term{z, 1})
	s.addRow(p, linprog.Equal, 4, linprog.Term{x, 2}, linprog.Term{y, 2}, linprog.Term{z, 2})
	s.addRow(p, linprog.GreaterEqual, 1, linprog.Term{x, 1}, linprog.Term{y, -1})
	s.addRow(p, linprog.GreaterEqual, 0, linprog.Term{y, 1})

	sol, err := p.Solve(linprog.Options{Duals: true})
	require.NoError(s.T(), err)
	require.Equal(s.T(), linprog.Optimal, sol.Status)
	require.InDelta(s.T(), 1, sol.Objective, tol)
	require.InDelta(s.T(), 1, sol.X[x], tol)
	require.InDelta(s.T(), 1, sol.X[z], tol)
	require.LessOrEqual(s.T(), p.MaxViolation(sol.X), 1e-9)
}

func (s *LinprogSuite) TestGreaterEqualDual() {
	p := linprog.NewProblem()
	x := p.AddVar(0, linprog.Inf, 1, "x")
	s.addRow(p, linprog.GreaterEqual, 1, linprog.Term{x, 1})

	sol, err := p.Solve(linprog.Options{Duals: true})
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 1, sol.Objective, tol)
	require.InDelta(s.T(), 1, sol.Duals[0], 1e-9)
}

func (s *LinprogSuite) TestIterationLimit() {
	p := linprog.NewProblem()
	x := p.AddVar(0, linprog.Inf, 1, "x")
	y := p.AddVar(0, linprog.Inf, 1, "y")
	s.addRow(p, linprog.LessEqual, 4, linprog.Term{x, 1}, linprog.Term{y, 2})
	s.addRow(p, linprog.LessEqual, 6, linprog.Term{x, 3}, linprog.Term{y, 1})
	p.SetMaximize(true)

	_, err := p.Solve(linprog.Options{MaxIter: 1})
	require.ErrorIs(s.T(), err, linprog.ErrNumerical)
}

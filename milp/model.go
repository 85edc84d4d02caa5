// SPDX-License-Identifier: MIT

package milp

import (
	"math"

	"github.com/katalvlaran/kadapt/linprog"
)

// Model is a mixed-integer linear program.
type Model struct {
	lp    *linprog.Problem
	types []VarType
}

// NewModel returns an empty minimization model.
func NewModel() *Model {
	return &Model{lp: linprog.NewProblem()}
}

// AddVar appends a column. Binary bounds are clipped to [0, 1].
func (m *Model) AddVar(t VarType, lb, ub, obj float64, name string) (int, error) {
	switch t {
	case Continuous, Integer:
	case Binary:
		lb, ub = math.Max(lb, 0), math.Min(ub, 1)
	default:
		return -1, ErrVarType
	}
	m.types = append(m.types, t)

	return m.lp.AddVar(lb, ub, obj, name), nil
}

// AddRow appends a linear row.
func (m *Model) AddRow(r linprog.Row) (int, error) {
	return m.lp.AddRow(r)
}

// Indicator is the implication (x[Binary] == Active) ⇒ Row.
type Indicator struct {
	Binary int
	Active bool
	Row    linprog.Row
}

// AddIndicator linearizes ind with the tightest big-M the bounds allow.
// A row that always holds is dropped.
func (m *Model) AddIndicator(ind Indicator) error {
	if ind.Binary < 0 || ind.Binary >= len(m.types) {
		return linprog.ErrVarIndex
	}
	if m.types[ind.Binary] != Binary {
		return ErrNotBinary
	}
	switch ind.Row.Sense {
	case linprog.LessEqual, linprog.GreaterEqual:
		return m.addIndicatorRow(ind.Binary, ind.Active, ind.Row)
	case linprog.Equal:
		le, ge := ind.Row.Clone(), ind.Row.Clone()
		le.Sense, ge.Sense = linprog.LessEqual, linprog.GreaterEqual
		if err := m.addIndicatorRow(ind.Binary, ind.Active, le); err != nil {
			return err
		}

		return m.addIndicatorRow(ind.Binary, ind.Active, ge)
	}

	return linprog.ErrSense
}

func (m *Model) addIndicatorRow(z int, active bool, r linprog.Row) error {
	lo, hi, err := m.activityRange(r.Terms)
	if err != nil {
		return err
	}

	// a'x ≤ b + M·(1-z) for active=true, a'x ≤ b + M·z otherwise; same for ≥ with −M.
	var bigM float64
	if r.Sense == linprog.LessEqual {
		bigM = hi - r.RHS
	} else {
		bigM = r.RHS - lo
	}
	if bigM <= 0 {
		return nil
	}

	out := r.Clone()
	coef := bigM
	if r.Sense == linprog.GreaterEqual {
		coef = -bigM
	}
	if active {
		out.Terms = append(out.Terms, linprog.Term{Index: z, Coef: coef})
		out.RHS += coef
	} else {
		out.Terms = append(out.Terms, linprog.Term{Index: z, Coef: -coef})
	}
	_, err = m.lp.AddRow(out)

	return err
}

// activityRange returns the min and max of Σ a_j x_j over the variable bounds.
func (m *Model) activityRange(terms []linprog.Term) (float64, float64, error) {
	var lo, hi float64
	for _, t := range terms {
		if t.Index < 0 || t.Index >= len(m.types) {
			return 0, 0, linprog.ErrVarIndex
		}
		if t.Coef == 0 {
			continue
		}
		lb, ub := m.lp.Bounds(t.Index)
		a, b := t.Coef*lb, t.Coef*ub
		if t.Coef < 0 {
			a, b = b, a
		}
		if math.IsInf(a, 0) || math.IsInf(b, 0) {
			return 0, 0, ErrIndicatorUnbounded
		}
		lo += a
		hi += b
	}

	return lo, hi, nil
}

// SetMaximize switches the objective sense.
func (m *Model) SetMaximize(max bool) { m.lp.SetMaximize(max) }

// Maximize reports the objective sense.
func (m *Model) Maximize() bool { return m.lp.Maximize() }

// SetBounds replaces the bounds of column j.
func (m *Model) SetBounds(j int, lb, ub float64) { m.lp.SetBounds(j, lb, ub) }

// Bounds returns the bounds of column j.
func (m *Model) Bounds(j int) (float64, float64) { return m.lp.Bounds(j) }

// Fix sets both bounds of column j to v.
func (m *Model) Fix(j int, v float64) { m.lp.SetBounds(j, v, v) }

// SetObj replaces the objective coefficient of column j.
func (m *Model) SetObj(j int, c float64) { m.lp.SetObj(j, c) }

// Type returns the type of column j.
func (m *Model) Type(j int) VarType { return m.types[j] }

// NumVars returns the number of columns.
func (m *Model) NumVars() int { return len(m.types) }

// NumRows returns the number of rows, linearized indicators included.
func (m *Model) NumRows() int { return m.lp.NumRows() }

// Row returns a copy of row i.
func (m *Model) Row(i int) (linprog.Row, error) { return m.lp.Row(i) }

// ObjectiveValue evaluates the objective at x.
func (m *Model) ObjectiveValue(x []float64) float64 { return m.lp.ObjectiveValue(x) }

// Relaxation returns the LP relaxation as an independent problem.
func (m *Model) Relaxation() *linprog.Problem { return m.lp.Clone() }

// Clone returns a deep copy.
func (m *Model) Clone() *Model {
	return &Model{lp: m.lp.Clone(), types: append([]VarType(nil), m.types...)}
}

// Feasible reports whether x satisfies every row, bound and integrality
// requirement of m within the tolerances.
func (m *Model) Feasible(x []float64, feasTol, intTol float64) bool {
	if len(x) != len(m.types) {
		return false
	}
	if m.lp.MaxViolation(x) > feasTol {
		return false
	}
	for j, t := range m.types {
		if t != Continuous && math.Abs(x[j]-math.Round(x[j])) > intTol {
			return false
		}
	}

	return true
}

// SPDX-License-Identifier: MIT

package linprog

import "math"

// Problem is a mutable LP. The zero value is not usable; call NewProblem.
type Problem struct {
	obj      []float64
	lb, ub   []float64
	names    []string
	rows     []Row
	maximize bool
}

// NewProblem returns an empty minimization problem.
func NewProblem() *Problem {
	return &Problem{}
}

// AddVar appends a column and returns its index.
func (p *Problem) AddVar(lb, ub, obj float64, name string) int {
	p.obj = append(p.obj, obj)
	p.lb = append(p.lb, lb)
	p.ub = append(p.ub, ub)
	p.names = append(p.names, name)

	return len(p.obj) - 1
}

// AddRow validates r and appends it. It returns the row index.
func (p *Problem) AddRow(r Row) (int, error) {
	if err := p.validateRow(r); err != nil {
		return -1, err
	}
	p.rows = append(p.rows, r.Clone())

	return len(p.rows) - 1, nil
}

func (p *Problem) validateRow(r Row) error {
	if !r.Sense.Valid() {
		return ErrSense
	}
	if math.IsNaN(r.RHS) {
		return ErrNaN
	}
	for _, t := range r.Terms {
		if t.Index < 0 || t.Index >= len(p.obj) {
			return ErrVarIndex
		}
		if math.IsNaN(t.Coef) {
			return ErrNaN
		}
	}

	return nil
}

// RemoveRowsFrom truncates the row list to its first n rows.
func (p *Problem) RemoveRowsFrom(n int) {
	if n >= 0 && n < len(p.rows) {
		p.rows = p.rows[:n]
	}
}

// NumVars returns the number of columns.
func (p *Problem) NumVars() int { return len(p.obj) }

// NumRows returns the number of rows.
func (p *Problem) NumRows() int { return len(p.rows) }

// Row returns a copy of row i.
func (p *Problem) Row(i int) (Row, error) {
	if i < 0 || i >= len(p.rows) {
		return Row{}, ErrRowIndex
	}

	return p.rows[i].Clone(), nil
}

// Name returns the column name.
func (p *Problem) Name(j int) string { return p.names[j] }

// Bounds returns the bounds of column j.
func (p *Problem) Bounds(j int) (float64, float64) { return p.lb[j], p.ub[j] }

// SetBounds replaces the bounds of column j.
func (p *Problem) SetBounds(j int, lb, ub float64) {
	p.lb[j], p.ub[j] = lb, ub
}

// Obj returns the objective coefficient of column j.
func (p *Problem) Obj(j int) float64 { return p.obj[j] }

// SetObj replaces the objective coefficient of column j.
func (p *Problem) SetObj(j int, c float64) { p.obj[j] = c }

// SetMaximize switches the objective sense.
func (p *Problem) SetMaximize(max bool) { p.maximize = max }

// Maximize reports whether the objective is maximized.
func (p *Problem) Maximize() bool { return p.maximize }

// ObjectiveValue evaluates cᵀx.
func (p *Problem) ObjectiveValue(x []float64) float64 {
	var s float64
	for j, c := range p.obj {
		if j < len(x) {
			s += c * x[j]
		}
	}

	return s
}

// MaxViolation returns the largest row or bound violation of x.
func (p *Problem) MaxViolation(x []float64) float64 {
	var worst float64
	for j := range p.obj {
		if v := p.lb[j] - x[j]; v > worst {
			worst = v
		}
		if v := x[j] - p.ub[j]; v > worst {
			worst = v
		}
	}
	for _, r := range p.rows {
		if v := r.Violation(x); v > worst {
			worst = v
		}
	}

	return worst
}

// Clone returns a deep copy.
func (p *Problem) Clone() *Problem {
	out := &Problem{
		obj:      append([]float64(nil), p.obj...),
		lb:       append([]float64(nil), p.lb...),
		ub:       append([]float64(nil), p.ub...),
		names:    append([]string(nil), p.names...),
		rows:     make([]Row, len(p.rows)),
		maximize: p.maximize,
	}
	for i, r := range p.rows {
		out.rows[i] = r.Clone()
	}

	return out
}

// SPDX-License-Identifier: MIT

package linprog

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors. Every message is prefixed with "linprog: ".
var (
	// ErrVarIndex is returned when a row references a variable that does not exist.
	ErrVarIndex = errors.New("linprog: variable index out of range")

	// ErrRowIndex is returned when a row index is outside [0, NumRows).
	ErrRowIndex = errors.New("linprog: row index out of range")

	// ErrSense is returned for a sense other than L, G or E.
	ErrSense = errors.New("linprog: invalid row sense")

	// ErrNaN is returned when a coefficient, bound or right-hand side is NaN.
	ErrNaN = errors.New("linprog: NaN encountered")

	// ErrNumerical wraps any simplex failure other than infeasibility or
	// unboundedness (singular basis, Bland cycling guard, ...).
	ErrNumerical = errors.New("linprog: numerical failure in simplex")
)

// Inf is the bound value used for "no bound".
var Inf = math.Inf(1)

// Sense is the relation of a row: L (≤), G (≥) or E (=).
type Sense byte

const (
	LessEqual    Sense = 'L'
	GreaterEqual Sense = 'G'
	Equal        Sense = 'E'
)

// Valid reports whether s is one of L, G, E.
func (s Sense) Valid() bool {
	return s == LessEqual || s == GreaterEqual || s == Equal
}

// Flip returns the opposite inequality; E stays E.
func (s Sense) Flip() Sense {
	switch s {
	case LessEqual:
		return GreaterEqual
	case GreaterEqual:
		return LessEqual
	}
	return s
}

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	}
	return fmt.Sprintf("Sense(%d)", byte(s))
}

// Term is one coefficient of a row.
type Term struct {
	Index int
	Coef  float64
}

// Row is a linear constraint Σ Coef·x[Index] (Sense) RHS.
// Duplicate indices are allowed and summed.
type Row struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Activity returns Σ Coef·x[Index]. Indices outside x count as zero.
func (r Row) Activity(x []float64) float64 {
	var s float64
	for _, t := range r.Terms {
		if t.Index >= 0 && t.Index < len(x) {
			s += t.Coef * x[t.Index]
		}
	}
	return s
}

// Violation returns how much x violates the row (≤ 0 means satisfied).
func (r Row) Violation(x []float64) float64 {
	a := r.Activity(x)
	switch r.Sense {
	case LessEqual:
		return a - r.RHS
	case GreaterEqual:
		return r.RHS - a
	default:
		return math.Abs(a - r.RHS)
	}
}

// Clone returns a deep copy of r.
func (r Row) Clone() Row {
	out := r
	out.Terms = append([]Term(nil), r.Terms...)
	return out
}

// Status is the outcome of an LP solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Solution is the result of Problem.Solve. X, Objective and Duals are only
// meaningful when Status == Optimal.
type Solution struct {
	Status    Status
	Objective float64
	X         []float64
	// Duals[i] = ∂Objective/∂RHS of row i (nil unless Options.Duals).
	Duals []float64
}

// Options tunes a solve. Zero fields select the defaults.
//   - FeasTol: bound violation tolerated on basic columns (default 1e-9).
//   - OptTol: reduced-cost threshold for optimality (default 1e-9).
//   - PivotTol: smallest pivot accepted by the ratio test (default 1e-9).
//   - MaxIter: iteration cap; exceeding it returns ErrNumerical.
//   - Refactor: pivots between basis reinversions (default 100).
//   - Duals: also report row duals.
type Options struct {
	FeasTol  float64
	OptTol   float64
	PivotTol float64
	MaxIter  int
	Refactor int
	Duals    bool
}

// DefaultOptions returns the options used by the MILP layer.
func DefaultOptions() Options {
	return Options{FeasTol: 1e-9, OptTol: 1e-9, PivotTol: 1e-9, Refactor: 100}
}

func (o Options) withDefaults(n, m int) Options {
	d := DefaultOptions()
	if o.FeasTol <= 0 {
		o.FeasTol = d.FeasTol
	}
	if o.OptTol <= 0 {
		o.OptTol = d.OptTol
	}
	if o.PivotTol <= 0 {
		o.PivotTol = d.PivotTol
	}
	if o.Refactor <= 0 {
		o.Refactor = d.Refactor
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 1000 + 50*(n+2*m)
	}

	return o
}

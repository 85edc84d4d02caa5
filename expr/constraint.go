package expr

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/katalvlaran/kadapt/linprog"
)

// ErrEqualityUncertain is returned when a violation function is requested
// for an equality row that depends on q.
var ErrEqualityUncertain = errors.New("expr: uncertain equality has no one-sided violation")

// XTerm is a coefficient on a decision variable.
type XTerm struct {
	Var  int
	Coef float64
}

// QTerm is a coefficient on an uncertain parameter.
type QTerm struct {
	Param int
	Coef  float64
}

// Product is a bilinear term Coef·x[Var]·q[Param].
type Product struct {
	Var   int
	Param int
	Coef  float64
}

// Constraint is a row of a two-stage model, see the package documentation.
type Constraint struct {
	Name  string
	Sense linprog.Sense
	RHS   float64
	Const float64
	X     []XTerm
	Q     []QTerm
	XQ    []Product
}

// New returns an empty constraint with the given sense and right-hand side.
func New(name string, sense linprog.Sense, rhs float64) Constraint {
	return Constraint{Name: name, Sense: sense, RHS: rhs}
}

// AddTermX appends c·x[i].
func (c *Constraint) AddTermX(i int, coef float64) *Constraint {
	c.X = append(c.X, XTerm{Var: i, Coef: coef})
	return c
}

// AddTermQ appends coef·q[p].
func (c *Constraint) AddTermQ(p int, coef float64) *Constraint {
	c.Q = append(c.Q, QTerm{Param: p, Coef: coef})
	return c
}

// AddTermProduct appends coef·x[i]·q[p].
func (c *Constraint) AddTermProduct(i, p int, coef float64) *Constraint {
	c.XQ = append(c.XQ, Product{Var: i, Param: p, Coef: coef})
	return c
}

// AddConst adds v to the left-hand-side constant.
func (c *Constraint) AddConst(v float64) *Constraint {
	c.Const += v
	return c
}

// IsEmpty reports whether the constraint has no terms at all.
func (c Constraint) IsEmpty() bool {
	return len(c.X) == 0 && len(c.Q) == 0 && len(c.XQ) == 0
}

// HasBilinear reports whether the row has x·q terms.
func (c Constraint) HasBilinear() bool { return len(c.XQ) > 0 }

// HasConstQ reports whether the row has pure q terms.
func (c Constraint) HasConstQ() bool { return len(c.Q) > 0 }

// IsDeterministic reports whether the row does not depend on q.
func (c Constraint) IsDeterministic() bool { return len(c.Q) == 0 && len(c.XQ) == 0 }

// HasVar reports whether x[i] appears in a linear or bilinear term.
func (c Constraint) HasVar(i int) bool {
	for _, t := range c.X {
		if t.Var == i {
			return true
		}
	}
	for _, t := range c.XQ {
		if t.Var == i {
			return true
		}
	}

	return false
}

// VarIndices returns the sorted distinct variable indices of the row.
func (c Constraint) VarIndices() []int {
	seen := make(map[int]struct{}, len(c.X)+len(c.XQ))
	for _, t := range c.X {
		seen[t.Var] = struct{}{}
	}
	for _, t := range c.XQ {
		seen[t.Var] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)

	return out
}

// ParamIndices returns the sorted distinct parameter indices of the row.
func (c Constraint) ParamIndices() []int {
	seen := make(map[int]struct{}, len(c.Q)+len(c.XQ))
	for _, t := range c.Q {
		seen[t.Param] = struct{}{}
	}
	for _, t := range c.XQ {
		seen[t.Param] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)

	return out
}

// OnlyVarsIn reports whether every variable of the row lies in [begin, end).
func (c Constraint) OnlyVarsIn(begin, end int) bool {
	for _, i := range c.VarIndices() {
		if i < begin || i >= end {
			return false
		}
	}

	return true
}

// WDetObjOnly reports whether the variables in [begin, end) enter the row
// only as deterministic objective terms: the row does not use them at all,
// or uses them linearly in a row that carries the objective variable x[0].
// Any bilinear use makes it false.
func (c Constraint) WDetObjOnly(begin, end int) bool {
	in := func(i int) bool { return i >= begin && i < end }
	for _, t := range c.XQ {
		if in(t.Var) {
			return false
		}
	}
	linear := false
	for _, t := range c.X {
		if in(t.Var) {
			linear = true
			break
		}
	}

	return !linear || c.HasVar(0)
}

// LHS evaluates the left-hand side. Missing entries of x or q count as zero.
func (c Constraint) LHS(x, q []float64) float64 {
	s := c.Const
	for _, t := range c.X {
		s += t.Coef * at(x, t.Var)
	}
	for _, t := range c.Q {
		s += t.Coef * at(q, t.Param)
	}
	for _, t := range c.XQ {
		s += t.Coef * at(x, t.Var) * at(q, t.Param)
	}

	return s
}

func at(v []float64, i int) float64 {
	if i < 0 || i >= len(v) {
		return 0
	}

	return v[i]
}

// Violation returns the amount by which (x, q) violates the row.
func (c Constraint) Violation(x, q []float64) float64 {
	lhs := c.LHS(x, q)
	switch c.Sense {
	case linprog.GreaterEqual:
		return c.RHS - lhs
	case linprog.LessEqual:
		return lhs - c.RHS
	default:
		return math.Abs(lhs - c.RHS)
	}
}

// ViolationX is Violation for rows that do not depend on q.
func (c Constraint) ViolationX(x []float64) float64 { return c.Violation(x, nil) }

// Deterministic fixes q and returns the row as a linear row in x.
func (c Constraint) Deterministic(q []float64) linprog.Row {
	coef := make(map[int]float64, len(c.X)+len(c.XQ))
	order := make([]int, 0, len(c.X)+len(c.XQ))
	add := func(i int, v float64) {
		if _, ok := coef[i]; !ok {
			order = append(order, i)
		}
		coef[i] += v
	}
	for _, t := range c.X {
		add(t.Var, t.Coef)
	}
	for _, t := range c.XQ {
		add(t.Var, t.Coef*at(q, t.Param))
	}
	rhs := c.RHS - c.Const
	for _, t := range c.Q {
		rhs -= t.Coef * at(q, t.Param)
	}

	r := linprog.Row{Name: c.Name, Sense: c.Sense, RHS: rhs}
	for _, i := range order {
		if coef[i] != 0 {
			r.Terms = append(r.Terms, linprog.Term{Index: i, Coef: coef[i]})
		}
	}

	return r
}

// Stochastic fixes x and returns the row as a linear row over q indices.
func (c Constraint) Stochastic(x []float64) linprog.Row {
	coef := make(map[int]float64, len(c.Q)+len(c.XQ))
	order := make([]int, 0, len(c.Q)+len(c.XQ))
	add := func(p int, v float64) {
		if _, ok := coef[p]; !ok {
			order = append(order, p)
		}
		coef[p] += v
	}
	for _, t := range c.Q {
		add(t.Param, t.Coef)
	}
	for _, t := range c.XQ {
		add(t.Param, t.Coef*at(x, t.Var))
	}
	rhs := c.RHS - c.Const
	for _, t := range c.X {
		rhs -= t.Coef * at(x, t.Var)
	}

	r := linprog.Row{Name: c.Name, Sense: c.Sense, RHS: rhs}
	for _, p := range order {
		if coef[p] != 0 {
			r.Terms = append(r.Terms, linprog.Term{Index: p, Coef: coef[p]})
		}
	}

	return r
}

// Affine is Σ Terms[i].Coef·q[Terms[i].Index] + Const.
type Affine struct {
	Terms []linprog.Term
	Const float64
}

// Eval evaluates a at q.
func (a Affine) Eval(q []float64) float64 {
	s := a.Const
	for _, t := range a.Terms {
		s += t.Coef * at(q, t.Index)
	}

	return s
}

// ViolationAffine returns the violation of the row as an affine function of q
// for fixed x.
func (c Constraint) ViolationAffine(x []float64) (Affine, error) {
	r := c.Stochastic(x)
	var sign float64
	switch r.Sense {
	case linprog.LessEqual:
		sign = 1
	case linprog.GreaterEqual:
		sign = -1
	default:
		if len(r.Terms) > 0 {
			return Affine{}, ErrEqualityUncertain
		}
		sign = 1
	}
	a := Affine{Const: -sign * r.RHS, Terms: make([]linprog.Term, len(r.Terms))}
	for i, t := range r.Terms {
		a.Terms[i] = linprog.Term{Index: t.Index, Coef: sign * t.Coef}
	}

	return a, nil
}

// Reversed returns the strict complement of an inequality row, tightened by
// eps: lhs ≤ rhs − eps for a ≥ row and lhs ≥ rhs + eps for a ≤ row.
func (c Constraint) Reversed(eps float64) Constraint {
	out := c.Clone()
	out.Sense = c.Sense.Flip()
	if c.Sense == linprog.GreaterEqual {
		out.RHS -= eps
	} else if c.Sense == linprog.LessEqual {
		out.RHS += eps
	}

	return out
}

// MapVars returns a copy with every variable index replaced by fn(index).
func (c Constraint) MapVars(fn func(int) int) Constraint {
	out := c.Clone()
	for i := range out.X {
		out.X[i].Var = fn(out.X[i].Var)
	}
	for i := range out.XQ {
		out.XQ[i].Var = fn(out.XQ[i].Var)
	}

	return out
}

// MapParams returns a copy with every parameter index replaced by fn(index).
func (c Constraint) MapParams(fn func(int) int) Constraint {
	out := c.Clone()
	for i := range out.Q {
		out.Q[i].Param = fn(out.Q[i].Param)
	}
	for i := range out.XQ {
		out.XQ[i].Param = fn(out.XQ[i].Param)
	}

	return out
}

// Clone returns a deep copy.
func (c Constraint) Clone() Constraint {
	out := c
	out.X = append([]XTerm(nil), c.X...)
	out.Q = append([]QTerm(nil), c.Q...)
	out.XQ = append([]Product(nil), c.XQ...)

	return out
}

func (c Constraint) String() string {
	var b strings.Builder
	if c.Name != "" {
		b.WriteString(c.Name)
		b.WriteString(": ")
	}
	if c.Const != 0 {
		fmt.Fprintf(&b, "%g ", c.Const)
	}
	for _, t := range c.X {
		fmt.Fprintf(&b, "%+g x%d ", t.Coef, t.Var)
	}
	for _, t := range c.Q {
		fmt.Fprintf(&b, "%+g q%d ", t.Coef, t.Param)
	}
	for _, t := range c.XQ {
		fmt.Fprintf(&b, "%+g x%d*q%d ", t.Coef, t.Var, t.Param)
	}
	fmt.Fprintf(&b, "%s %g", c.Sense, c.RHS)

	return b.String()
}

// List is an ordered constraint family.
type List []Constraint

// Clone deep-copies the list.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, c := range l {
		out[i] = c.Clone()
	}

	return out
}

// MaxViolation returns the largest violation over the list and its index
// (−1 and −Inf for an empty list).
func (l List) MaxViolation(x, q []float64) (float64, int) {
	best, idx := math.Inf(-1), -1
	for i, c := range l {
		if v := c.Violation(x, q); v > best {
			best, idx = v, i
		}
	}

	return best, idx
}

package uncertainty

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/katalvlaran/kadapt/linprog"
)

var (
	// ErrDimension is returned when a vector does not match the set's size.
	ErrDimension = errors.New("uncertainty: dimension mismatch")

	// ErrParamIndex is returned for a parameter index outside [1, NumParams].
	ErrParamIndex = errors.New("uncertainty: parameter index out of range")

	// ErrBounds is returned when a parameter has lb > ub or a nominal value outside its bounds.
	ErrBounds = errors.New("uncertainty: invalid parameter bounds")

	// ErrEmpty is returned when an optimization over the set is infeasible.
	ErrEmpty = errors.New("uncertainty: set is empty")

	// ErrUnbounded is returned when a violation is unbounded over the set.
	ErrUnbounded = errors.New("uncertainty: violation is unbounded over the set")
)

// Param is one uncertain parameter.
type Param struct {
	Nominal float64
	LB, UB  float64
}

// Set is a polyhedral uncertainty set. The zero value is an empty set ready for use.
type Set struct {
	params []Param
	facets []linprog.Row

	// obsVar[p-1] is the observation-variable index of parameter p, or −1.
	obsVar []int
	// observed[p-1] is set by SetW; empty when no observation is in effect.
	observed []bool

	xiBar []float64

	lpOpts linprog.Options
}

// New returns an empty set.
func New() *Set { return &Set{lpOpts: linprog.DefaultOptions()} }

// SetLPOptions sets the options of every LP solved over the set.
func (s *Set) SetLPOptions(o linprog.Options) { s.lpOpts = o }

// LPOptions returns the options set by SetLPOptions.
func (s *Set) LPOptions() linprog.Options { return s.lpOpts }

// AddParam appends a parameter and returns its q index (starting at 1).
func (s *Set) AddParam(nominal, lb, ub float64) (int, error) {
	if lb > ub || nominal < lb || nominal > ub || math.IsNaN(nominal) {
		return -1, fmt.Errorf("%w: nominal %g, bounds [%g, %g]", ErrBounds, nominal, lb, ub)
	}
	s.params = append(s.params, Param{Nominal: nominal, LB: lb, UB: ub})
	s.obsVar = append(s.obsVar, -1)
	if len(s.observed) > 0 {
		s.observed = append(s.observed, false)
	}

	return len(s.params), nil
}

// AddFacet appends Σ coef·q[p] (sense) rhs.
func (s *Set) AddFacet(terms []linprog.Term, sense linprog.Sense, rhs float64) error {
	if !sense.Valid() {
		return linprog.ErrSense
	}
	for _, t := range terms {
		if t.Index < 1 || t.Index > len(s.params) {
			return ErrParamIndex
		}
	}
	s.facets = append(s.facets, linprog.Row{
		Name:  fmt.Sprintf("facet%d", len(s.facets)),
		Terms: append([]linprog.Term(nil), terms...),
		Sense: sense,
		RHS:   rhs,
	})

	return nil
}

// SetObsVar declares that parameter p is revealed by observation variable j.
func (s *Set) SetObsVar(p, j int) error {
	if p < 1 || p > len(s.params) {
		return ErrParamIndex
	}
	s.obsVar[p-1] = j

	return nil
}

// ObsVar returns the observation variable of parameter p, or −1.
func (s *Set) ObsVar(p int) int {
	if p < 1 || p > len(s.params) {
		return -1
	}

	return s.obsVar[p-1]
}

// HasObservation reports whether any parameter is linked to an observation variable.
func (s *Set) HasObservation() bool {
	for _, j := range s.obsVar {
		if j >= 0 {
			return true
		}
	}

	return false
}

// SetW takes the values of the observation variables (index j of w is obsVar j)
// and derives the per-parameter observation vector. An empty w clears it.
func (s *Set) SetW(w []float64) error {
	if len(w) == 0 {
		s.observed = nil
		return nil
	}
	obs := make([]bool, len(s.params))
	for p, j := range s.obsVar {
		if j < 0 {
			continue
		}
		if j >= len(w) {
			return fmt.Errorf("%w: observation variable %d, w has %d entries", ErrDimension, j, len(w))
		}
		obs[p] = w[j] > 0.5
	}
	s.observed = obs

	return nil
}

// SetObserved installs a per-parameter observation vector directly.
func (s *Set) SetObserved(obs []bool) error {
	if len(obs) != 0 && len(obs) != len(s.params) {
		return fmt.Errorf("%w: observation vector %d, params %d", ErrDimension, len(obs), len(s.params))
	}
	s.observed = append([]bool(nil), obs...)
	if len(obs) == 0 {
		s.observed = nil
	}

	return nil
}

// W returns the per-parameter observation vector (nil when none is set).
func (s *Set) W() []bool { return append([]bool(nil), s.observed...) }

// IsObserved reports whether parameter p is observed.
func (s *Set) IsObserved(p int) bool {
	return p >= 1 && p <= len(s.observed) && s.observed[p-1]
}

// NumObserved counts the observed parameters.
func (s *Set) NumObserved() int {
	n := 0
	for _, o := range s.observed {
		if o {
			n++
		}
	}

	return n
}

// SetXiBar fixes the observed components to those of q.
func (s *Set) SetXiBar(q []float64) error {
	if len(q) != s.Dim() {
		return fmt.Errorf("%w: xiBar has %d entries, want %d", ErrDimension, len(q), s.Dim())
	}
	s.xiBar = append(s.xiBar[:0], q...)

	return nil
}

// ResetXiBar releases the components fixed by SetXiBar.
func (s *Set) ResetXiBar() { s.xiBar = nil }

// HasXiBar reports whether SetXiBar is in effect.
func (s *Set) HasXiBar() bool { return s.xiBar != nil }

// Clear removes every parameter, facet and observation.
func (s *Set) Clear() {
	s.params, s.facets, s.obsVar, s.observed, s.xiBar = nil, nil, nil, nil, nil
}

// NumParams returns the number of parameters.
func (s *Set) NumParams() int { return len(s.params) }

// Dim returns the scenario length 1+NumParams.
func (s *Set) Dim() int { return 1 + len(s.params) }

// Param returns parameter p (1-based).
func (s *Set) Param(p int) (Param, error) {
	if p < 1 || p > len(s.params) {
		return Param{}, ErrParamIndex
	}

	return s.params[p-1], nil
}

// Nominal returns the nominal scenario with q[0] = 0.
func (s *Set) Nominal() []float64 {
	q := make([]float64, s.Dim())
	for i, p := range s.params {
		q[i+1] = p.Nominal
	}

	return q
}

// Facets returns copies of the facet rows.
func (s *Set) Facets() []linprog.Row {
	out := make([]linprog.Row, len(s.facets))
	for i, f := range s.facets {
		out[i] = f.Clone()
	}

	return out
}

// Contains reports whether q lies in the set within tol (xiBar included).
func (s *Set) Contains(q []float64, tol float64) bool {
	if len(q) != s.Dim() {
		return false
	}
	for i, p := range s.params {
		if q[i+1] < p.LB-tol || q[i+1] > p.UB+tol {
			return false
		}
		if s.xiBar != nil && s.IsObserved(i+1) && !scalar.EqualWithinAbs(q[i+1], s.xiBar[i+1], tol) {
			return false
		}
	}
	for _, f := range s.facets {
		if f.Violation(q) > tol {
			return false
		}
	}

	return true
}

// Clone returns a deep copy, xiBar included.
func (s *Set) Clone() *Set {
	out := &Set{
		params: append([]Param(nil), s.params...),
		facets: s.Facets(),
		obsVar: append([]int(nil), s.obsVar...),
		lpOpts: s.lpOpts,
	}
	if s.observed != nil {
		out.observed = append([]bool(nil), s.observed...)
	}
	if s.xiBar != nil {
		out.xiBar = append([]float64(nil), s.xiBar...)
	}

	return out
}

// Lift builds the decision-dependent set for K policies, see the package doc.
func (s *Set) Lift(K int) *Set {
	if K < 2 || len(s.observed) == 0 {
		return s.Clone()
	}
	P := len(s.params)
	out := &Set{lpOpts: s.lpOpts}
	for l := 0; l <= K; l++ {
		for _, p := range s.params {
			out.params = append(out.params, p)
			out.obsVar = append(out.obsVar, -1)
		}
		for _, f := range s.facets {
			g := f.Clone()
			g.Name = fmt.Sprintf("%s_r%d", f.Name, l)
			for i := range g.Terms {
				g.Terms[i].Index += l * P
			}
			out.facets = append(out.facets, g)
		}
	}
	for l := 1; l <= K; l++ {
		for p := 1; p <= P; p++ {
			if !s.observed[p-1] {
				continue
			}
			out.facets = append(out.facets, linprog.Row{
				Name:  fmt.Sprintf("link_r%d_p%d", l, p),
				Terms: []linprog.Term{{Index: p, Coef: 1}, {Index: l*P + p, Coef: -1}},
				Sense: linprog.Equal,
			})
		}
	}

	return out
}

// IsLifted reports whether Lift would produce a replicated set for K policies.
func (s *Set) IsLifted(K int) bool { return K >= 2 && len(s.observed) > 0 }

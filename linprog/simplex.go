// SPDX-License-Identifier: MIT

package linprog

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Column layout of the tableau: structurals [0,n), one logical per row
// [n,n+m), one artificial per row [n+m,n+2m). Every row reads
//
//	aᵢ·x − sᵢ + σᵢ·artᵢ = 0
//
// so the row bounds live on sᵢ and the matrix always has full row rank.
type tableau struct {
	m, n, width int

	a *mat.Dense // original coefficients
	t *mat.Dense // B⁻¹·a

	cost   []float64
	d      []float64 // reduced costs of the current phase
	lo, hi []float64
	x      []float64
	head   []int // basic column of each row
	pos    []int // row of a basic column, −1 when nonbasic

	opts   Options
	iter   int
	pivots int
	stall  int
	bland  bool
}

type phaseResult int

const (
	phaseOptimal phaseResult = iota
	phaseUnbounded
)

func (tb *tableau) art(i int) int { return tb.n + tb.m + i }

func newTableau(p *Problem, opts Options) *tableau {
	m, n := len(p.rows), len(p.obj)
	w := n + 2*m
	tb := &tableau{
		m: m, n: n, width: w,
		a:    mat.NewDense(max(m, 1), max(w, 1), nil),
		cost: make([]float64, w),
		d:    make([]float64, w),
		lo:   make([]float64, w),
		hi:   make([]float64, w),
		x:    make([]float64, w),
		head: make([]int, m),
		pos:  make([]int, w),
		opts: opts,
	}
	for j := range tb.pos {
		tb.pos[j] = -1
	}
	for j := 0; j < n; j++ {
		tb.lo[j], tb.hi[j] = p.lb[j], p.ub[j]
		switch {
		case !math.IsInf(p.lb[j], 0):
			tb.x[j] = p.lb[j]
		case !math.IsInf(p.ub[j], 0):
			tb.x[j] = p.ub[j]
		}
	}

	for i, r := range p.rows {
		row := tb.a.RawRowView(i)
		for _, t := range r.Terms {
			row[t.Index] += t.Coef
		}
		s := n + i
		row[s] = -1
		switch r.Sense {
		case LessEqual:
			tb.lo[s], tb.hi[s] = math.Inf(-1), r.RHS
		case GreaterEqual:
			tb.lo[s], tb.hi[s] = r.RHS, math.Inf(1)
		default:
			tb.lo[s], tb.hi[s] = r.RHS, r.RHS
		}

		act := floats.Dot(row[:n], tb.x[:n])
		av := tb.art(i)
		tb.lo[av], tb.hi[av] = 0, math.Inf(1)
		if act >= tb.lo[s]-opts.FeasTol && act <= tb.hi[s]+opts.FeasTol {
			tb.x[s] = act
			tb.hi[av] = 0
			tb.setBasic(i, s)
			continue
		}
		tb.x[s] = math.Max(tb.lo[s], math.Min(tb.hi[s], act))
		sigma := 1.0
		if tb.x[s] < act {
			sigma = -1
		}
		row[av] = sigma
		tb.x[av] = math.Abs(tb.x[s] - act)
		tb.setBasic(i, av)
	}

	// The starting basis is diagonal, so B⁻¹·a is a row scaling of a.
	tb.t = mat.NewDense(max(m, 1), max(w, 1), nil)
	for i := 0; i < m; i++ {
		floats.ScaleTo(tb.t.RawRowView(i)[:w], 1/tb.a.At(i, tb.head[i]), tb.a.RawRowView(i)[:w])
	}

	return tb
}

func (tb *tableau) setBasic(i, j int) {
	tb.head[i] = j
	tb.pos[j] = i
}

// setCosts installs the objective of a phase and prices every column.
func (tb *tableau) setCosts(c []float64) {
	copy(tb.cost, c)
	copy(tb.d, c)
	for i := 0; i < tb.m; i++ {
		if cb := tb.cost[tb.head[i]]; cb != 0 {
			floats.AddScaled(tb.d, -cb, tb.t.RawRowView(i)[:tb.width])
		}
	}
	for _, j := range tb.head {
		tb.d[j] = 0
	}
}

// updateBasics recomputes the basic values from the nonbasic ones.
func (tb *tableau) updateBasics() {
	for i := 0; i < tb.m; i++ {
		row := tb.t.RawRowView(i)
		var s float64
		for j := 0; j < tb.width; j++ {
			if tb.pos[j] < 0 && row[j] != 0 {
				s += row[j] * tb.x[j]
			}
		}
		tb.x[tb.head[i]] = -s
	}
}

// reinvert rebuilds B⁻¹·a from the original coefficients. A numerically
// singular basis keeps the current tableau.
func (tb *tableau) reinvert() {
	if tb.m == 0 {
		return
	}
	B := mat.NewDense(tb.m, tb.m, nil)
	for i, j := range tb.head {
		for k := 0; k < tb.m; k++ {
			B.Set(k, i, tb.a.At(k, j))
		}
	}
	var lu mat.LU
	lu.Factorize(B)
	if lu.Cond() > 1e14 {
		return
	}
	var t mat.Dense
	if err := lu.SolveTo(&t, false, tb.a.Slice(0, tb.m, 0, tb.width)); err != nil {
		return
	}
	tb.t.Copy(&t)
	for i, j := range tb.head {
		row := tb.t.RawRowView(i)
		for _, k := range tb.head {
			row[k] = 0
		}
		row[j] = 1
	}
	tb.setCosts(tb.cost)
	tb.updateBasics()
}

// run iterates the primal simplex on the installed costs.
func (tb *tableau) run() (phaseResult, error) {
	for {
		tb.iter++
		if tb.iter > tb.opts.MaxIter {
			return 0, fmt.Errorf("%w: iteration limit %d", ErrNumerical, tb.opts.MaxIter)
		}
		q, dir := tb.price()
		if q < 0 {
			return phaseOptimal, nil
		}
		r, step, flip := tb.ratio(q, dir)
		if math.IsInf(step, 1) {
			return phaseUnbounded, nil
		}
		if step <= tb.opts.FeasTol*1e-3 {
			tb.stall++
			if tb.stall > 50 {
				tb.bland = true
			}
		} else {
			tb.stall = 0
			tb.bland = false
		}
		tb.move(q, dir, r, step, flip)
	}
}

// price picks the entering column: largest reduced-cost violation, or the
// lowest eligible index while stalling.
func (tb *tableau) price() (int, float64) {
	best, dir, score := -1, 0.0, 0.0
	for j := 0; j < tb.width; j++ {
		if tb.pos[j] >= 0 || tb.lo[j] == tb.hi[j] {
			continue
		}
		dj := tb.d[j]
		var s, dj1 float64
		switch {
		case dj < -tb.opts.OptTol && tb.x[j] < tb.hi[j]:
			s, dj1 = -dj, 1
		case dj > tb.opts.OptTol && tb.x[j] > tb.lo[j]:
			s, dj1 = dj, -1
		default:
			continue
		}
		if tb.bland {
			return j, dj1
		}
		if s > score {
			best, dir, score = j, dj1, s
		}
	}

	return best, dir
}

// ratio runs a two-pass Harris ratio test (a plain minimum-ratio test with
// lowest-index ties while stalling). It returns the leaving row, the step
// length and whether the entering column only moves to its other bound.
func (tb *tableau) ratio(q int, dir float64) (int, float64, bool) {
	var span float64
	if dir > 0 {
		span = tb.hi[q] - tb.x[q]
	} else {
		span = tb.x[q] - tb.lo[q]
	}

	limit := func(i int, tol float64) float64 {
		alpha := dir * tb.t.At(i, q)
		b := tb.head[i]
		switch {
		case alpha > tb.opts.PivotTol && !math.IsInf(tb.lo[b], -1):
			return (tb.x[b] - tb.lo[b] + tol) / alpha
		case alpha < -tb.opts.PivotTol && !math.IsInf(tb.hi[b], 1):
			return (tb.hi[b] - tb.x[b] + tol) / -alpha
		}
		return math.Inf(1)
	}

	if tb.bland {
		r, best := -1, math.Inf(1)
		for i := 0; i < tb.m; i++ {
			v := math.Max(0, limit(i, 0))
			if v < best-1e-12 || (v <= best+1e-12 && r >= 0 && tb.head[i] < tb.head[r]) {
				r, best = i, v
			}
		}
		switch {
		case math.IsInf(span, 1) && r < 0:
			return -1, span, false
		case span <= best:
			return -1, span, true
		}
		return r, best, false
	}

	bound := math.Inf(1)
	for i := 0; i < tb.m; i++ {
		bound = math.Min(bound, limit(i, tb.opts.FeasTol))
	}
	switch {
	case math.IsInf(span, 1) && math.IsInf(bound, 1):
		return -1, span, false
	case span <= bound:
		return -1, span, true
	}
	r, best := -1, 0.0
	for i := 0; i < tb.m; i++ {
		if limit(i, 0) > bound {
			continue
		}
		if a := math.Abs(tb.t.At(i, q)); a > best {
			r, best = i, a
		}
	}

	return r, math.Max(0, limit(r, 0)), false
}

func (tb *tableau) move(q int, dir float64, r int, step float64, flip bool) {
	if flip {
		if dir > 0 {
			tb.x[q] = tb.hi[q]
		} else {
			tb.x[q] = tb.lo[q]
		}
		tb.updateBasics()
		return
	}

	tb.x[q] += dir * step
	leaving := tb.head[r]
	if dir*tb.t.At(r, q) > 0 {
		tb.x[leaving] = tb.lo[leaving]
	} else {
		tb.x[leaving] = tb.hi[leaving]
	}
	tb.pos[leaving] = -1
	tb.setBasic(r, q)
	tb.pivot(r, q)

	tb.pivots++
	if tb.pivots%tb.opts.Refactor == 0 {
		tb.reinvert()
		return
	}
	tb.updateBasics()
}

func (tb *tableau) pivot(r, q int) {
	w := tb.width
	prow := tb.t.RawRowView(r)[:w]
	floats.Scale(1/prow[q], prow)
	prow[q] = 1
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)[:w]
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, prow)
			row[q] = 0
		}
	}
	if f := tb.d[q]; f != 0 {
		floats.AddScaled(tb.d, -f, prow)
		tb.d[q] = 0
	}
}

// infeasibility is the phase-one objective.
func (tb *tableau) infeasibility() float64 {
	var s float64
	for i := 0; i < tb.m; i++ {
		s += tb.x[tb.art(i)]
	}

	return s
}

// solve runs both phases. sign is +1 for minimization, −1 for maximization.
func (tb *tableau) solve(obj []float64, sign float64) (Status, error) {
	phase1 := make([]float64, tb.width)
	need := false
	for i := 0; i < tb.m; i++ {
		if tb.hi[tb.art(i)] > 0 {
			phase1[tb.art(i)] = 1
			need = true
		}
	}
	if need {
		tb.setCosts(phase1)
		res, err := tb.run()
		if err != nil {
			return 0, err
		}
		if res == phaseUnbounded {
			return 0, fmt.Errorf("%w: phase one unbounded", ErrNumerical)
		}
		tb.reinvert()
		if tb.infeasibility() > tb.opts.FeasTol*float64(1+tb.m) {
			return Infeasible, nil
		}
	}
	for i := 0; i < tb.m; i++ {
		av := tb.art(i)
		tb.hi[av] = 0
		if tb.pos[av] < 0 {
			tb.x[av] = 0
		}
	}

	phase2 := make([]float64, tb.width)
	for j, c := range obj {
		phase2[j] = sign * c
	}
	tb.setCosts(phase2)
	tb.bland, tb.stall = false, 0
	res, err := tb.run()
	if err != nil {
		return 0, err
	}
	if res == phaseUnbounded {
		return Unbounded, nil
	}
	tb.reinvert()

	return Optimal, nil
}

// SPDX-License-Identifier: MIT

package milp

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/linprog"
)

// maxLazyRounds caps the cut loop on integral LP solutions, where every
// violated cut must be honored before the incumbent callback runs.
const maxLazyRounds = 10000

// engine holds the search state of one Solve call.
type engine struct {
	m    *Model
	opts Options
	cb   Callbacks
	log  *zap.Logger

	// +1 for minimization, −1 for maximization; all internal values are minimized.
	sign    float64
	intVars []int

	cuts   []linprog.Row
	open   nodeQueue
	nextID int
	nodes  int

	inc    []float64
	incObj float64
	hasInc bool

	start       time.Time
	useDeadline bool
	deadline    time.Time

	aborted   bool
	unbounded bool
	tolPruned bool
	stop      Status
	lastBound float64
}

// Solve runs branch-and-bound on m. m is not modified.
//
// Infeasibility, limits and aborts are reported through Result.Status. The
// error is non-nil for LP breakdowns and callback failures.
func Solve(ctx context.Context, m *Model, opts Options) (Result, error) {
	e := &engine{
		m:    m,
		opts: opts,
		cb:   opts.Callbacks,
		log:  opts.Logger,
		sign: 1,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if m.Maximize() {
		e.sign = -1
	}
	for j, t := range m.types {
		if t != Continuous {
			e.intVars = append(e.intVars, j)
		}
	}
	e.start = time.Now()
	if opts.TimeLimit > 0 {
		e.useDeadline = true
		e.deadline = e.start.Add(opts.TimeLimit)
	}

	return e.run(ctx)
}

func (e *engine) run(ctx context.Context) (Result, error) {
	n := e.m.NumVars()
	root := &Node{e: e, lb: make([]float64, n), ub: make([]float64, n), bound: math.Inf(-1)}
	for j := 0; j < n; j++ {
		root.lb[j], root.ub[j] = e.m.Bounds(j)
	}
	e.nextID = 1
	heap.Push(&e.open, root)

	for e.open.Len() > 0 {
		if st := e.limitCheck(ctx); st != 0 {
			e.stop = st
			break
		}
		nd := heap.Pop(&e.open).(*Node)
		if e.hasInc && e.fathomed(nd.bound) {
			e.release(nd)
			continue
		}
		e.nodes++
		e.lastBound = nd.bound
		if e.cb.NodeSelect != nil {
			e.cb.NodeSelect(nd)
		}
		if err := e.process(nd); err != nil {
			e.drain()
			return Result{}, err
		}
		if e.aborted {
			e.stop = pick(e.hasInc, AbortFeas, AbortInfeas)
			break
		}
		if e.unbounded {
			break
		}
		if e.nodes%1000 == 0 {
			e.log.Debug("milp progress",
				zap.Int("nodes", e.nodes),
				zap.Int("open", e.open.Len()),
				zap.Bool("incumbent", e.hasInc))
		}
	}

	res := e.result()
	e.drain()
	e.log.Debug("milp done",
		zap.Stringer("status", res.Status),
		zap.Int("nodes", res.Nodes),
		zap.Float64("objective", res.Objective),
		zap.Float64("bound", res.BestBound))

	return res, nil
}

// limitCheck maps context, deadline and open-node limits to a status (0 = none).
func (e *engine) limitCheck(ctx context.Context) Status {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pick(e.hasInc, TimeLimFeas, TimeLimInfeas)
		}

		return pick(e.hasInc, AbortFeas, AbortInfeas)
	}
	if e.useDeadline && time.Now().After(e.deadline) {
		return pick(e.hasInc, TimeLimFeas, TimeLimInfeas)
	}
	if e.opts.MaxOpenNodes > 0 && e.open.Len() > e.opts.MaxOpenNodes {
		return pick(e.hasInc, MemLimFeas, MemLimInfeas)
	}

	return 0
}

func pick(feas bool, a, b Status) Status {
	if feas {
		return a
	}

	return b
}

func (e *engine) process(n *Node) error {
	rounds := 0
	for {
		lp, err := e.nodeLP(n)
		if err != nil {
			return err
		}
		sol, err := lp.Solve(e.opts.LP)
		if err != nil {
			return fmt.Errorf("milp: node %d: %w", n.id, err)
		}
		switch sol.Status {
		case linprog.Infeasible:
			e.release(n)
			return nil
		case linprog.Unbounded:
			e.unbounded = true
			e.release(n)
			return nil
		}
		n.x, n.obj = sol.X, sol.Objective
		n.bound = e.sign * sol.Objective
		n.integral = e.isIntegral(sol.X)
		if e.hasInc && e.fathomed(n.bound) {
			e.release(n)
			return nil
		}

		if e.cb.Cut == nil || (e.opts.LazyCuts && !n.integral) {
			break
		}
		if !n.integral && rounds >= e.opts.MaxCutRounds {
			break
		}
		cuts, err := e.cb.Cut(n, n.X())
		if err != nil {
			return fmt.Errorf("%w: cut: %v", ErrCallback, err)
		}
		if e.aborted {
			e.release(n)
			return nil
		}
		violated, err := e.addCuts(n, cuts)
		if err != nil {
			return err
		}
		if !violated {
			break
		}
		rounds++
		if rounds > maxLazyRounds {
			return fmt.Errorf("%w: cut loop did not settle at node %d", ErrCallback, n.id)
		}
	}

	if e.cb.Heuristic != nil {
		xh, ok, err := e.cb.Heuristic(n, n.X())
		if err != nil {
			return fmt.Errorf("%w: heuristic: %v", ErrCallback, err)
		}
		if ok && e.acceptable(xh) {
			if obj := e.sign * e.m.ObjectiveValue(xh); !e.hasInc || obj < e.incObj {
				e.setIncumbent(xh, obj)
			}
		}
		if e.aborted || (e.hasInc && e.fathomed(n.bound)) {
			e.release(n)
			return nil
		}
	}

	if n.integral {
		x := e.rounded(n.x)
		accept := true
		if e.cb.Incumbent != nil {
			var err error
			if accept, err = e.cb.Incumbent(n, x, n.obj); err != nil {
				return fmt.Errorf("%w: incumbent: %v", ErrCallback, err)
			}
		}
		if accept {
			if !e.hasInc || n.bound < e.incObj {
				e.setIncumbent(x, n.bound)
			}
			e.release(n)
			return nil
		}
		if e.aborted {
			e.release(n)
			return nil
		}

		return e.branch(n, nil)
	}

	return e.branch(n, e.nativeChildren(n))
}

func (e *engine) branch(n *Node, native []Child) error {
	children := native
	if e.cb.Branch != nil {
		ch, handled, err := e.cb.Branch(n, native)
		if err != nil {
			return fmt.Errorf("%w: branch: %v", ErrCallback, err)
		}
		if handled {
			children = ch
		}
	}
	if len(children) > 2 {
		return ErrTooManyChildren
	}
	if e.aborted {
		for _, c := range children {
			e.releaseHandle(c.Handle)
		}
		e.release(n)
		return nil
	}
	for _, c := range children {
		child, err := e.makeChild(n, c)
		if err != nil {
			return err
		}
		heap.Push(&e.open, child)
	}
	e.release(n)

	return nil
}

// nativeChildren splits on the most fractional integer variable, down branch first.
func (e *engine) nativeChildren(n *Node) []Child {
	best, bestScore := -1, -1.0
	for _, j := range e.intVars {
		f := n.x[j] - math.Floor(n.x[j])
		score := math.Min(f, 1-f)
		if score > e.opts.IntTol && score > bestScore {
			best, bestScore = j, score
		}
	}
	if best < 0 {
		return nil
	}
	v := n.x[best]

	return []Child{
		{Bounds: []BoundChange{{Var: best, Kind: Upper, Value: math.Floor(v)}}},
		{Bounds: []BoundChange{{Var: best, Kind: Lower, Value: math.Ceil(v)}}},
	}
}

func (e *engine) makeChild(parent *Node, c Child) (*Node, error) {
	child := &Node{
		e:      e,
		id:     e.nextID,
		depth:  parent.depth + 1,
		lb:     append([]float64(nil), parent.lb...),
		ub:     append([]float64(nil), parent.ub...),
		rows:   append([]linprog.Row(nil), parent.rows...),
		handle: c.Handle,
		bound:  parent.bound,
	}
	e.nextID++
	for _, bc := range c.Bounds {
		if bc.Var < 0 || bc.Var >= len(child.lb) {
			return nil, fmt.Errorf("%w: branch: %v", ErrCallback, linprog.ErrVarIndex)
		}
		switch bc.Kind {
		case Lower:
			child.lb[bc.Var] = bc.Value
		case Upper:
			child.ub[bc.Var] = bc.Value
		default:
			child.lb[bc.Var], child.ub[bc.Var] = bc.Value, bc.Value
		}
	}
	for _, r := range c.Rows {
		if err := e.checkRow(r); err != nil {
			return nil, fmt.Errorf("%w: branch: %v", ErrCallback, err)
		}
		child.rows = append(child.rows, r.Clone())
	}

	return child, nil
}

// addCuts stores the cuts and reports whether any of them cuts off the node LP point.
func (e *engine) addCuts(n *Node, cuts []Cut) (bool, error) {
	violated := false
	for _, c := range cuts {
		if err := e.checkRow(c.Row); err != nil {
			return false, fmt.Errorf("%w: cut: %v", ErrCallback, err)
		}
		if c.Local {
			n.rows = append(n.rows, c.Row.Clone())
		} else {
			e.cuts = append(e.cuts, c.Row.Clone())
		}
		if c.Row.Violation(n.x) > e.opts.FeasTol {
			violated = true
		}
	}

	return violated, nil
}

func (e *engine) checkRow(r linprog.Row) error {
	if !r.Sense.Valid() {
		return linprog.ErrSense
	}
	if math.IsNaN(r.RHS) {
		return linprog.ErrNaN
	}
	for _, t := range r.Terms {
		if t.Index < 0 || t.Index >= len(e.m.types) {
			return linprog.ErrVarIndex
		}
		if math.IsNaN(t.Coef) {
			return linprog.ErrNaN
		}
	}

	return nil
}

// nodeLP builds the node relaxation from the model rows, the global cuts,
// the node's local rows and its bounds.
func (e *engine) nodeLP(n *Node) (*linprog.Problem, error) {
	lp := e.m.lp.Clone()
	for j := range n.lb {
		lp.SetBounds(j, n.lb[j], n.ub[j])
	}
	for _, r := range e.cuts {
		if _, err := lp.AddRow(r); err != nil {
			return nil, fmt.Errorf("milp: cut %s: %w", r.Name, err)
		}
	}
	for _, r := range n.rows {
		if _, err := lp.AddRow(r); err != nil {
			return nil, fmt.Errorf("milp: node %d row %s: %w", n.id, r.Name, err)
		}
	}

	return lp, nil
}

// acceptable checks a heuristic point against rows, bounds, integrality and global cuts.
func (e *engine) acceptable(x []float64) bool {
	if !e.m.Feasible(x, e.opts.FeasTol, e.opts.IntTol) {
		return false
	}
	for _, r := range e.cuts {
		if r.Violation(x) > e.opts.FeasTol {
			return false
		}
	}

	return true
}

func (e *engine) isIntegral(x []float64) bool {
	for _, j := range e.intVars {
		if math.Abs(x[j]-math.Round(x[j])) > e.opts.IntTol {
			return false
		}
	}

	return true
}

func (e *engine) rounded(x []float64) []float64 {
	out := append([]float64(nil), x...)
	for _, j := range e.intVars {
		out[j] = math.Round(out[j])
	}

	return out
}

func (e *engine) setIncumbent(x []float64, obj float64) {
	e.inc = append(e.inc[:0], x...)
	e.incObj = obj
	e.hasInc = true
	e.log.Debug("milp incumbent", zap.Float64("objective", e.sign*obj), zap.Int("nodes", e.nodes))
}

func (e *engine) fathomed(bound float64) bool {
	tol := math.Max(e.opts.AbsGap, e.opts.RelGap*math.Abs(e.incObj))
	if bound < e.incObj-tol {
		return false
	}
	if bound < e.incObj-1e-9 {
		e.tolPruned = true
	}

	return true
}

// bestBound is the smallest of cur, the open-queue minimum and the incumbent.
func (e *engine) bestBound(cur float64) float64 {
	b := cur
	if e.open.Len() > 0 && e.open[0].bound < b {
		b = e.open[0].bound
	}
	if e.hasInc && e.incObj < b {
		b = e.incObj
	}

	return b
}

func (e *engine) release(n *Node) {
	e.releaseHandle(n.handle)
	n.handle = nil
}

func (e *engine) releaseHandle(h any) {
	if h != nil && e.cb.NodeDelete != nil {
		e.cb.NodeDelete(h)
	}
}

func (e *engine) drain() {
	for _, n := range e.open {
		e.release(n)
	}
	e.open = e.open[:0]
}

func (e *engine) result() Result {
	res := Result{Nodes: e.nodes, Elapsed: time.Since(e.start)}

	bound := math.Inf(1)
	if e.open.Len() > 0 {
		bound = e.open[0].bound
	}
	if (e.stop == AbortFeas || e.stop == AbortInfeas) && e.lastBound < bound {
		bound = e.lastBound
	}
	if e.hasInc && e.incObj < bound {
		bound = e.incObj
	}

	switch {
	case e.unbounded:
		res.Status = InfOrUnbd
	case e.stop != 0:
		res.Status = e.stop
	case e.hasInc && e.tolPruned:
		res.Status = OptimalTol
	case e.hasInc:
		res.Status = Optimal
	default:
		res.Status = Infeasible
	}

	res.BestBound = e.sign * bound
	res.Gap = math.Inf(1)
	if e.hasInc {
		res.X = append([]float64(nil), e.inc...)
		res.Objective = e.sign * e.incObj
		res.Gap = relGap(e.incObj, bound)
	}

	return res
}

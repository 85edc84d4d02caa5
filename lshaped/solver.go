package lshaped

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/milp"
)

// Solver runs the decomposition on top of a K-adaptability solver. It owns
// the cuts carried between solves and is not safe for concurrent use.
type Solver struct {
	k    *kadapt.Solver
	opts Options
	log  *zap.Logger

	stored []linprog.Row
}

// New wraps k. The observation vector of k is changed by every solve.
func New(k *kadapt.Solver, opts Options) (*Solver, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	s := &Solver{k: k, opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}

	return s, nil
}

// Stored returns the number of cuts carried into the next solve.
func (s *Solver) Stored() int { return len(s.stored) }

// Result is the outcome of a decomposition solve. Objective is the best
// evaluated θ + cw·w (+Inf when none); W and X are the matching observation
// vector and K-adaptable solution. Gap is in percent.
type Result struct {
	Status     milp.Status
	Objective  float64
	Bound      float64
	Gap        float64
	Iterations int
	W          []bool
	X          []float64
	Elapsed    time.Duration
	Heuristic  bool
}

// run is the state of one decomposition solve.
type run struct {
	s     *Solver
	K     int
	start time.Time
	log   *zap.Logger

	ms          *master
	L           float64
	cache       *wCache
	detObjOnly  bool
	information bool
	strongFeas  bool
	// inert is set when w cannot change the inner problem; inner then holds
	// its objective once the first w is evaluated.
	inert     bool
	evaluated bool
	inner     float64

	iterations int
	bestU      float64
	bestW      []bool
	bestX      []float64
}

func (s *Solver) newRun(ctx context.Context, K int, mode string) (*run, milp.Result, error) {
	r := &run{
		s:          s,
		K:          K,
		start:      time.Now(),
		log:        s.log.With(zap.Int("k", K), zap.String("mode", mode)),
		detObjOnly: s.k.Model().Info().WDetObjOnly,
		bestU:      math.Inf(1),
	}
	if err := s.k.SetW(nil); err != nil {
		return nil, milp.Result{}, err
	}
	s.k.SetBestU(math.Inf(1))
	det, err := s.k.SolveDET(ctx, s.k.Model().Nominal())
	if err != nil {
		return nil, det, fmt.Errorf("lshaped: lower bound: %w", err)
	}
	if !det.Status.HasSolution() {
		return nil, det, nil
	}
	r.L = det.BestBound
	if r.ms, err = s.newMaster(ctx, r.L); err != nil {
		return nil, det, err
	}
	r.cache = newWCache(r.ms.n)
	r.inert = s.inert(r.ms.begin, r.ms.begin+r.ms.n)

	return r, det, nil
}

// inert reports whether fixing w leaves the inner problem unchanged: no
// parameter is observed by a w column, and the only rows touching w are
// rows over w alone that the master enforces itself.
func (s *Solver) inert(begin, end int) bool {
	m := s.k.Model()
	u := m.UncSet()
	for p := 1; p <= u.NumParams(); p++ {
		if j := u.ObsVar(p); j >= 0 && j < end-begin {
			return false
		}
	}
	touches := func(l expr.List, masterOwned bool) bool {
		for _, c := range l {
			for _, i := range c.VarIndices() {
				if i < begin || i >= end {
					continue
				}
				if !masterOwned || !c.OnlyVarsIn(begin, end) {
					return true
				}
				break
			}
		}
		return false
	}
	if touches(m.CXQ(), true) || touches(m.CX(), s.opts.ProjectW) || touches(m.BX(), s.opts.ProjectW) {
		return false
	}
	for k := 0; k < m.NumPolicies(); k++ {
		if touches(m.CXY(k), false) || touches(m.CXYQ(k), false) || touches(m.BY(k), false) {
			return false
		}
	}

	return true
}

// infeasible is the result when the nominal problem has no solution.
func infeasible(det milp.Result, start time.Time) Result {
	return Result{
		Status:    det.Status,
		Objective: math.Inf(1),
		Bound:     math.Inf(1),
		Gap:       math.Inf(1),
		Elapsed:   time.Since(start),
	}
}

// Solve alternates master and subproblem solves until the gap closes, the
// time budget runs out or the master proposes an evaluated w again.
func (s *Solver) Solve(ctx context.Context, K int) (Result, error) {
	start := time.Now()
	r, det, err := s.newRun(ctx, K, "iterative")
	if err != nil {
		return Result{}, err
	}
	if r == nil {
		return infeasible(det, start), nil
	}
	r.information = r.detObjOnly && s.opts.InformationCut
	r.strongFeas = true

	opts := r.masterOptions()
	opts.LazyCuts = true
	opts.Callbacks.Cut = func(_ *milp.Node, x []float64) ([]milp.Cut, error) {
		return s.robustCuts(r.ms, x)
	}

	status := milp.Status(0)
	lb := math.Inf(-1)
	for status == 0 {
		if err := ctx.Err(); err != nil {
			status = interrupted(err, r.bestU)
			break
		}
		if s.opts.TimeLimit > 0 {
			left := s.opts.TimeLimit - time.Since(start)
			if left <= 0 {
				status = pick(r.bestU, milp.TimeLimFeas, milp.TimeLimInfeas)
				break
			}
			opts.TimeLimit = left
		}
		res, err := milp.Solve(ctx, r.ms.mdl, opts)
		if err != nil {
			return Result{}, fmt.Errorf("lshaped: master: %w", err)
		}
		if err = r.ms.flush(); err != nil {
			return Result{}, err
		}
		switch res.Status {
		case milp.Infeasible, milp.InfOrUnbd:
			// every w is evaluated or cut off
			status = milp.Infeasible
			if !math.IsInf(r.bestU, 1) {
				status, lb = milp.Optimal, r.bestU
			}
			continue
		case milp.Optimal, milp.OptimalTol:
		default:
			if !math.IsNaN(res.BestBound) {
				lb = math.Max(lb, res.BestBound)
			}
			status = stopped(res.Status, r.bestU)
			continue
		}
		lb = math.Max(lb, res.BestBound)
		w := r.ms.w(res.X)
		gap := percentGap(r.bestU, lb)
		r.log.Info("master solved",
			zap.Int("iteration", r.iterations),
			zap.Float64("bound", lb),
			zap.Float64("objective", r.bestU),
			zap.Float64("gap", gap))

		switch {
		case gap <= s.opts.GapTol:
			status = milp.Optimal
		case !r.cache.add(w):
			status = pick(r.bestU, milp.OptimalTol, milp.Infeasible)
		default:
			rows, err := r.evaluate(ctx, w)
			if err != nil {
				return Result{}, err
			}
			for _, row := range rows {
				if err = r.ms.add(row); err != nil {
					return Result{}, err
				}
			}
			r.ms.mdl.SetBounds(theta, r.L, linprog.Inf)
		}
	}

	return r.result(status, lb), nil
}

// SolveBranchAndCut runs one master search. Every integral point with a new
// w is evaluated from the lazy cut callback; a repeated w is accepted as is.
func (s *Solver) SolveBranchAndCut(ctx context.Context, K int) (Result, error) {
	start := time.Now()
	r, det, err := s.newRun(ctx, K, "branch-and-cut")
	if err != nil {
		return Result{}, err
	}
	if r == nil {
		return infeasible(det, start), nil
	}
	r.information = r.detObjOnly && s.opts.InformationCut
	r.strongFeas = s.opts.StrongFeasibilityCut

	opts := r.masterOptions()
	opts.TimeLimit = s.opts.TimeLimit
	opts.LazyCuts = true
	opts.Callbacks.Cut = func(n *milp.Node, x []float64) ([]milp.Cut, error) {
		cuts, err := s.robustCuts(r.ms, x)
		if err != nil || len(cuts) > 0 {
			return cuts, err
		}
		w := r.ms.w(x)
		if !r.cache.add(w) {
			return nil, nil
		}
		r.log.Debug("evaluating w", zap.Int("node", n.ID()), zap.Float64("node_bound", n.Objective()))
		rows, err := r.evaluate(ctx, w)
		if err != nil {
			return nil, err
		}
		cuts = make([]milp.Cut, 0, len(rows))
		for _, row := range rows {
			cuts = append(cuts, milp.Cut{Row: row})
		}

		return cuts, nil
	}

	res, err := milp.Solve(ctx, r.ms.mdl, opts)
	if err != nil {
		return Result{}, fmt.Errorf("lshaped: master: %w", err)
	}
	status := res.Status
	switch status {
	case milp.Optimal, milp.OptimalTol, milp.Infeasible, milp.InfOrUnbd:
	default:
		status = stopped(status, r.bestU)
	}

	return r.result(status, res.BestBound), nil
}

func (r *run) masterOptions() milp.Options {
	opts := r.s.opts.MILP
	opts.Callbacks = milp.Callbacks{}
	if opts.Logger == nil {
		opts.Logger = r.log.Named("master")
	}

	return opts
}

// stopped maps a master that hit a limit to the matching outer status,
// judged by whether a w has been evaluated feasibly.
func stopped(st milp.Status, bestU float64) milp.Status {
	switch st {
	case milp.TimeLimFeas, milp.TimeLimInfeas:
		return pick(bestU, milp.TimeLimFeas, milp.TimeLimInfeas)
	case milp.MemLimFeas, milp.MemLimInfeas:
		return pick(bestU, milp.MemLimFeas, milp.MemLimInfeas)
	}

	return pick(bestU, milp.AbortFeas, milp.AbortInfeas)
}

// interrupted maps a context error to a time-limit or abort status.
func interrupted(err error, bestU float64) milp.Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return pick(bestU, milp.TimeLimFeas, milp.TimeLimInfeas)
	}

	return pick(bestU, milp.AbortFeas, milp.AbortInfeas)
}

func pick(bestU float64, feas, infeas milp.Status) milp.Status {
	if math.IsInf(bestU, 1) {
		return infeas
	}

	return feas
}

// percentGap is 100·(u − lb)/|u|, guarded against u = 0.
func percentGap(u, lb float64) float64 {
	if math.IsInf(u, 1) {
		return math.Inf(1)
	}

	return 100 * (u - lb) / (1e-10 + math.Abs(u))
}

func (r *run) result(status milp.Status, lb float64) Result {
	out := Result{
		Status:     status,
		Objective:  r.bestU,
		Bound:      math.Min(lb, r.bestU),
		Gap:        percentGap(r.bestU, lb),
		Iterations: r.iterations,
		W:          r.bestW,
		X:          r.bestX,
		Elapsed:    time.Since(r.start),
		Heuristic:  r.s.opts.Heuristic,
	}
	if out.Gap < 0 {
		out.Gap = 0
	}
	r.s.opts.Metrics.ObserveSolve("lshaped", out.Elapsed.Seconds())
	r.log.Info("decomposition finished",
		zap.Stringer("status", out.Status),
		zap.Float64("objective", out.Objective),
		zap.Float64("bound", out.Bound),
		zap.Float64("gap", out.Gap),
		zap.Int("iterations", out.Iterations),
		zap.Duration("elapsed", out.Elapsed))

	return out
}

// wCost is cw·w.
func (r *run) wCost(w []bool) float64 {
	cw := r.s.k.Model().CW()
	c := 0.0
	for j, v := range w {
		if v && j < len(cw) {
			c += cw[j]
		}
	}

	return c
}

// evaluate solves the K-adaptability problem at w and returns the cuts it
// yields. The inner search is cut off once it cannot beat the incumbent.
func (r *run) evaluate(ctx context.Context, w []bool) ([]linprog.Row, error) {
	s := r.s
	if r.inert && r.evaluated {
		r.reuse(w)
		return nil, nil
	}
	r.iterations++
	s.opts.Metrics.OuterIteration()

	if err := s.k.SetW(w); err != nil {
		return nil, err
	}
	cost := r.wCost(w)
	s.k.SetBestU(r.bestU - cost)
	res, err := s.k.SolveKAdaptability(ctx, r.K, false)
	if err != nil {
		return nil, fmt.Errorf("lshaped: evaluate w: %w", err)
	}
	r.log.Debug("w evaluated",
		zap.Int("iteration", r.iterations),
		zap.Stringer("status", res.Status),
		zap.Float64("objective", res.Objective),
		zap.Int("nodes", res.Nodes))

	var rows []linprog.Row
	if len(res.Scenarios) > 0 && !r.detObjOnly && s.opts.SubgradientCut {
		row, ok, err := r.subgradient(w, res.Scenarios)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
			s.opts.Metrics.Cut(metrics.CutSubgradient, 1)
		}
	}

	switch res.Status {
	case milp.Optimal, milp.OptimalTol, milp.TimeLimFeas, milp.MemLimFeas, milp.AbortFeas:
		if u := cost + res.Objective; u < r.bestU {
			r.bestU = u
			r.bestW = append([]bool(nil), w...)
			r.bestX = res.X
		}
		phi := res.Objective
		if res.Status != milp.Optimal && res.Status != milp.OptimalTol {
			phi = res.BestBound
		}
		rows = append(rows, optimalityCut(w, phi, r.L))
		s.opts.Metrics.Cut(metrics.CutOptimality, 1)
		if r.inert {
			r.evaluated, r.inner = true, res.Objective
			rows = append(rows, flatCut(phi))
		}
		if r.information {
			rows = append(rows, informationCut(w, phi, r.L))
			s.opts.Metrics.Cut(metrics.CutInformation, 1)
		}
	case milp.Infeasible, milp.InfOrUnbd:
		if r.inert {
			rows = append(rows, closingCut())
			s.opts.Metrics.Cut(metrics.CutFeasibility, 1)
			break
		}
		if r.strongFeas {
			row := feasibilityCut(w)
			rows = append(rows, row)
			r.store(row)
			s.opts.Metrics.Cut(metrics.CutFeasibility, 1)
			break
		}
		rows = append(rows, noGoodCut(w))
		s.opts.Metrics.Cut(metrics.CutNoGood, 1)
	case milp.TimeLimInfeas, milp.MemLimInfeas, milp.AbortInfeas:
		rows = append(rows, noGoodCut(w))
		s.opts.Metrics.Cut(metrics.CutNoGood, 1)
	default:
		return nil, &kadapt.CodeError{Code: int(res.Status), Op: "lshaped", Err: milp.ErrUnexpectedStatus}
	}

	return rows, nil
}

// reuse prices w from the value of the inert inner problem: the stored
// solution is kept with its w columns replaced.
func (r *run) reuse(w []bool) {
	u := r.wCost(w) + r.inner
	if u >= r.bestU || r.bestX == nil {
		return
	}
	x := append([]float64(nil), r.bestX...)
	for j, v := range w {
		x[r.ms.begin+j] = 0
		if v {
			x[r.ms.begin+j] = 1
		}
	}
	r.bestU, r.bestW, r.bestX = u, append([]bool(nil), w...), x
}

// subgradient builds the subgradient cut from the scenario LP at w. The LP
// value also lowers L when it falls below it.
func (r *run) subgradient(w []bool, scenarios [][]float64) (linprog.Row, bool, error) {
	s := r.s
	lp, err := s.k.ScenarioLP(scenarios)
	if err != nil {
		return linprog.Row{}, false, err
	}
	lpOpts := s.opts.MILP.LP
	lpOpts.Duals = true
	sol, err := lp.Solve(lpOpts)
	if err != nil {
		return linprog.Row{}, false, fmt.Errorf("lshaped: scenario LP: %w", err)
	}
	if sol.Status != linprog.Optimal {
		return linprog.Row{}, false, nil
	}
	if sol.Objective < r.L {
		r.L = sol.Objective
	}
	row, err := subgradientCut(lp, sol, w, r.ms.begin, s.k.Options().InfeasTol)
	if err != nil {
		return linprog.Row{}, false, err
	}
	r.store(row)

	return row, true, nil
}

func (r *run) store(row linprog.Row) {
	if r.s.opts.Heuristic {
		r.s.stored = append(r.s.stored, row.Clone())
	}
}

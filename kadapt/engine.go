package kadapt

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/milp"
)

// KResult is the outcome of a K-adaptability solve. X is the best known
// K-adaptable solution (nil when none) and Objective its value (+Inf when
// none). Scenarios are the deduplicated labels of the final incumbent.
type KResult struct {
	Status     milp.Status
	X          []float64
	Objective  float64
	BestBound  float64
	Gap        float64
	Nodes      int
	DummyNodes int
	Elapsed    time.Duration
	Scenarios  [][]float64
	Heuristic  bool
}

// engine is the per-solve state shared by the callbacks.
type engine struct {
	s         *Solver
	K         int
	heuristic bool
	dd        bool

	// samples maps a label to its scenario; label 0 is the nominal scenario.
	samples     [][]float64
	finalLabels [][]int

	dummyNodes int
	log        *zap.Logger
}

// SolveKAdaptability searches for the best K-adaptable solution.
//
// In heuristic mode with K > 1, policies 1..K−1 are fixed to the policies of
// the stored (K−1)-policy solution and only policy 0 is optimized; every
// policy is in use from the root on.
//
// A stored solution with fewer policies is padded with copies of its last
// policy and serves as the starting incumbent value.
func (s *Solver) SolveKAdaptability(ctx context.Context, K int, heuristic bool) (KResult, error) {
	start := time.Now()
	if err := s.resize(K); err != nil {
		return KResult{}, err
	}
	heuristic = heuristic && K > 1

	var xfix []float64
	if s.xsol != nil {
		cur, err := s.NumPolicies(s.xsol)
		if err != nil {
			return KResult{}, err
		}
		if heuristic && cur == K-1 {
			xfix = append([]float64(nil), s.xsol...)
		}
		if cur != K {
			if s.xsol, err = s.ResizeX(s.xsol, K); err != nil {
				return KResult{}, err
			}
		}
	}
	if heuristic && xfix == nil {
		return KResult{}, ErrNoWarmStart
	}

	e := &engine{
		s:         s,
		K:         K,
		heuristic: heuristic,
		dd:        s.decisionDependent(),
		samples:   [][]float64{s.m.Nominal()},
		log:       s.log.With(zap.Int("k", K)),
	}
	mdl, err := e.rootModel(xfix)
	if err != nil {
		return KResult{}, err
	}

	opts := s.opts.MILP
	opts.TimeLimit = s.opts.TimeLimit
	opts.LazyCuts = false
	if opts.Logger == nil {
		opts.Logger = e.log
	}
	opts.Callbacks = milp.Callbacks{
		NodeSelect: e.nodeSelect,
		Cut:        e.cut,
		Incumbent:  e.incumbent,
		Branch:     e.branch,
		NodeDelete: e.nodeDelete,
	}
	if heuristic {
		opts.Callbacks.Heuristic = e.heuristicPoint
	}

	res, err := milp.Solve(ctx, mdl, opts)
	if err != nil {
		return KResult{}, fmt.Errorf("kadapt: K=%d: %w", K, err)
	}
	switch res.Status {
	case milp.Optimal, milp.OptimalTol, milp.Infeasible, milp.InfOrUnbd,
		milp.TimeLimFeas, milp.TimeLimInfeas, milp.MemLimFeas, milp.MemLimInfeas,
		milp.AbortFeas, milp.AbortInfeas:
	default:
		return KResult{}, &CodeError{Code: int(res.Status), Op: "k-adaptability", Err: milp.ErrUnexpectedStatus}
	}

	out := KResult{
		Status:     res.Status,
		Objective:  math.Inf(1),
		BestBound:  res.BestBound,
		Gap:        res.Gap,
		Nodes:      res.Nodes,
		DummyNodes: e.dummyNodes,
		Elapsed:    time.Since(start),
		Scenarios:  e.scenarios(),
		Heuristic:  heuristic,
	}
	if s.xsol != nil {
		out.X = s.Solution()
		out.Objective = s.xsol[0]
	}
	s.opts.Metrics.ObserveSolve("kadapt", out.Elapsed.Seconds())
	e.log.Info("k-adaptability solved",
		zap.Stringer("status", out.Status),
		zap.Float64("objective", out.Objective),
		zap.Float64("bound", out.BestBound),
		zap.Int("nodes", out.Nodes),
		zap.Int("dummy_nodes", out.DummyNodes),
		zap.Duration("elapsed", out.Elapsed))

	return out, nil
}

// rootModel enforces the nominal scenario on policy 0. xfix, when set,
// fixes policies 1..K−1 to its policies 0..K−2.
func (e *engine) rootModel(xfix []float64) (*milp.Model, error) {
	s := e.s
	mdl, err := s.newModel(e.K, false)
	if err != nil {
		return nil, err
	}
	for _, r := range s.scenarioRows(0, e.samples[0], -1) {
		if _, err = mdl.AddRow(r); err != nil {
			return nil, err
		}
	}
	if xfix != nil {
		n1, n2 := s.m.NumFirstStage(), s.m.NumSecondStage()
		for k := 1; k < e.K; k++ {
			for i := 0; i < n2; i++ {
				mdl.Fix(n1+k*n2+i, xfix[n1+(k-1)*n2+i])
			}
		}
	}

	return mdl, nil
}

// info returns the handle of n, creating the root's on first use.
func (e *engine) info(n *milp.Node) *nodeInfo {
	if ni, ok := n.Handle().(*nodeInfo); ok && ni != nil {
		return ni
	}
	active := 1
	if e.heuristic {
		active = e.K
	}
	ni := newRootInfo(e.K, active)
	n.SetHandle(ni)

	return ni
}

func (e *engine) addSample(q []float64) int {
	c := append([]float64(nil), q...)
	c[0] = 0
	e.samples = append(e.samples, c)

	return len(e.samples) - 1
}

// violation looks for a scenario x does not cover: first among the
// collected samples, then exactly. A new scenario becomes a new label.
func (e *engine) violation(x []float64) (bool, Violation, error) {
	s := e.s
	if s.opts.SeparateFromSamples {
		if ok, v, err := s.FeasibleXQSamples(x, e.samples); err != nil || !ok {
			return false, v, err
		}
		if ok, v, err := s.FeasibleYQSamples(x, e.K, e.samples, false); err != nil || !ok {
			return false, v, err
		}
	}
	ok, v, err := s.FeasibleXQ(x)
	if err != nil {
		return false, v, err
	}
	if ok {
		if ok, v, err = s.FeasibleYQ(x, e.K); err != nil {
			return false, v, err
		}
	}
	if ok {
		return true, v, nil
	}
	v.Label = e.addSample(v.Q)

	return false, v, nil
}

func (e *engine) nodeSelect(n *milp.Node) {
	e.s.opts.Metrics.Node()
}

func (e *engine) nodeDelete(h any) {
	if ni, ok := h.(*nodeInfo); ok {
		ni.release()
	}
}

func (e *engine) incumbent(n *milp.Node, x []float64, _ float64) (bool, error) {
	s := e.s
	if !math.IsInf(s.bestU, 1) && n.BestBound() >= s.bestU {
		e.log.Debug("bound reached cutoff", zap.Float64("bound", n.BestBound()), zap.Float64("cutoff", s.bestU))
		n.Abort()
		return false, nil
	}
	ni := e.info(n)
	if ni.kind == nodeDummy {
		return false, nil
	}

	ok, v, err := e.violation(x)
	if err != nil {
		return false, err
	}
	if ok {
		if s.offer(x) {
			e.finalLabels = ni.clone().labels
			s.opts.Metrics.Incumbent()
			e.log.Debug("incumbent", zap.Float64("objective", x[0]), zap.Int("node", n.ID()))
		}
		return true, nil
	}
	ni.kind = nodeRejected
	ni.label = v.Label
	ni.x = x

	return false, nil
}

// cut keeps the policies of a node feasible for their labels: robust in the
// decision-dependent case, row by row otherwise.
func (e *engine) cut(n *milp.Node, x []float64) ([]milp.Cut, error) {
	s := e.s
	if !e.dd && (s.m.Info().ObjectiveUnc || s.opts.BranchAllConstraints) {
		return nil, nil
	}
	ni := e.info(n)
	tol := s.opts.InfeasTol
	var cuts []milp.Cut
	for k, labels := range ni.labels {
		for _, l := range labels {
			if e.dd {
				val, q, row, err := s.robustViolation(x, k, e.samples[l], tol)
				if err != nil {
					return nil, err
				}
				if val > tol {
					cuts = append(cuts, milp.Cut{Row: s.m.CXYQ(k)[row].Deterministic(q), Local: true})
				}
				continue
			}
			if val, row := s.m.CXYQ(k).MaxViolation(x, e.samples[l]); val > tol {
				cuts = append(cuts, milp.Cut{Row: s.m.CXYQ(k)[row].Deterministic(e.samples[l]), Local: true})
			}
		}
	}
	s.opts.Metrics.Cut(metrics.CutLocal, len(cuts))

	return cuts, nil
}

// heuristicPoint lifts the epigraph value of an integral node to its true
// worst case, which makes the point K-adaptable feasible.
func (e *engine) heuristicPoint(n *milp.Node, x []float64) ([]float64, bool, error) {
	s := e.s
	if !n.Integral() {
		return nil, false, nil
	}
	if ok, _, err := s.FeasibleXQ(x); err != nil || !ok {
		return nil, false, err
	}
	worst, err := s.WorstCase(x, e.K)
	if err != nil || math.IsInf(worst, 1) {
		return nil, false, err
	}
	if worst >= n.BestInteger()-s.opts.HeurTol {
		return nil, false, nil
	}
	xh := append([]float64(nil), x...)
	xh[0] = worst + s.opts.InfeasTol
	if s.offer(xh) {
		e.finalLabels = e.info(n).clone().labels
	}

	return xh, true, nil
}

// scenarios returns up to MaxScenarios distinct labels of the final
// incumbent, taken from the policies in turn.
func (e *engine) scenarios() [][]float64 {
	limit := e.s.opts.MaxScenarios
	var out [][]float64
	for i := 0; len(out) < limit; i++ {
		more := false
		for _, labels := range e.finalLabels {
			if i >= len(labels) || len(out) >= limit {
				continue
			}
			more = true
			q := e.samples[labels[i]]
			dup := false
			for _, p := range out {
				if floats.EqualApprox(p[1:], q[1:], e.s.opts.ScenarioTol) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, append([]float64(nil), q...))
			}
		}
		if !more {
			break
		}
	}

	return out
}

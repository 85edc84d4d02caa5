package kadapt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
)

var (
	// ErrMinMaxMin is returned by SolveMinMaxMin for models outside its scope:
	// objective-only uncertainty, no first stage besides O, one uncertain row.
	ErrMinMaxMin = errors.New("kadapt: min-max-min needs objective uncertainty without first stage")

	// ErrCombination is returned when no convex combination of the collected
	// policies attains the worst-case bound.
	ErrCombination = errors.New("kadapt: policies admit no combination at the worst-case bound")
)

// SolveMinMaxMin approximates the K-adaptable problem by the min-max-min
// scheme for objective uncertainty: collect the scenario-optimal policies
// until the best answer at the worst scenario of their hull reaches that
// scenario's value z*, weigh them by a convex combination worth z*, and keep
// the K heaviest. BestBound is z*. The result is exact once K is at least the
// number of collected policies.
func (s *Solver) SolveMinMaxMin(ctx context.Context, K int) (KResult, error) {
	start := time.Now()
	if K < 1 {
		return KResult{}, ErrPolicies
	}
	info := s.m.Info()
	if !info.ObjectiveUnc || info.ExistsFirstStage || len(s.m.CXYQ(0)) != 1 {
		return KResult{}, ErrMinMaxMin
	}
	log := s.log.With(zap.Int("k", K), zap.String("mode", "min-max-min"))

	sro, err := s.SolveSRODuality(ctx)
	if err != nil {
		return KResult{}, err
	}
	if !sro.Status.HasSolution() {
		if sro.Status == milp.Infeasible || sro.Status == milp.InfOrUnbd {
			return KResult{Status: sro.Status, Objective: math.Inf(1), BestBound: math.Inf(1), Elapsed: time.Since(start)}, nil
		}
		return KResult{}, statusError("min-max-min static bound", sro.Status)
	}

	n1, n2 := s.m.NumFirstStage(), s.m.NumSecondStage()
	stack := func(pols [][]float64) []float64 {
		x := make([]float64, n1, n1+len(pols)*n2)
		x[0] = sro.Objective
		for _, y := range pols {
			x = append(x, y...)
		}
		return x
	}

	var pols [][]float64
	var scen [][]float64
	q := s.m.Nominal()
	zstar := math.Inf(1)
	for {
		if err = ctx.Err(); err != nil {
			return KResult{}, err
		}
		if len(pols) > 0 {
			if err = s.resize(len(pols)); err != nil {
				return KResult{}, err
			}
			if zstar, q, err = s.worstObjective(stack(pols), len(pols)); err != nil {
				return KResult{}, err
			}
			scen = append(scen, append([]float64(nil), q...))
		}
		det, err := s.SolveDET(ctx, q)
		if err != nil {
			return KResult{}, err
		}
		if !det.Status.HasSolution() {
			return KResult{}, statusError("min-max-min scenario", det.Status)
		}
		pols = append(pols, append([]float64(nil), det.X[n1:n1+n2]...))
		log.Debug("policy collected",
			zap.Int("policies", len(pols)),
			zap.Float64("scenario_value", det.Objective),
			zap.Float64("zstar", zstar))
		if det.Objective >= zstar-s.opts.InfeasTol {
			break
		}
	}

	lambda, err := s.combination(pols, zstar)
	if err != nil {
		return KResult{}, err
	}
	order := make([]int, len(pols))
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool { return lambda[order[a]] > lambda[order[b]] })
	keep := make([][]float64, 0, K)
	for _, j := range order[:min(K, len(pols))] {
		keep = append(keep, pols[j])
	}
	x := stack(keep)
	if len(keep) < K {
		if x, err = s.ResizeX(x, K); err != nil {
			return KResult{}, err
		}
	}
	if err = s.resize(K); err != nil {
		return KResult{}, err
	}
	if x[0], _, err = s.worstObjective(x, K); err != nil {
		return KResult{}, err
	}
	s.offer(x)

	out := KResult{
		Status:    milp.Optimal,
		X:         x,
		Objective: x[0],
		BestBound: zstar,
		Elapsed:   time.Since(start),
		Scenarios: scen,
		Heuristic: len(pols) > K,
	}
	if out.Heuristic {
		out.Status = milp.OptimalTol
		out.Gap = relGap(out.Objective, zstar)
	}
	s.opts.Metrics.ObserveSolve("minmaxmin", out.Elapsed.Seconds())
	log.Info("min-max-min solved",
		zap.Stringer("status", out.Status),
		zap.Int("policies", len(pols)),
		zap.Float64("objective", out.Objective),
		zap.Float64("bound", out.BestBound))

	return out, nil
}

// combination returns weights lambda ≥ 0 summing to one such that the
// combined second stage Σ lambda_j·pols[j] has worst-case objective zstar.
func (s *Solver) combination(pols [][]float64, zstar float64) ([]float64, error) {
	n2 := s.m.NumSecondStage()
	mdl := milp.NewModel()
	if _, err := mdl.AddVar(milp.Continuous, zstar, zstar+s.opts.InfeasTol, 0, "zstar"); err != nil {
		return nil, err
	}
	for _, c := range s.m.Y().Columns() {
		if _, err := mdl.AddVar(milp.Continuous, math.Inf(-1), math.Inf(1), 0, "xstar_"+c.Name); err != nil {
			return nil, err
		}
	}
	first := mdl.NumVars()
	convex := linprog.Row{Name: "convex", Sense: linprog.Equal, RHS: 1}
	for j := range pols {
		l, err := mdl.AddVar(milp.Continuous, 0, math.Inf(1), 0, fmt.Sprintf("lambda_%d", j))
		if err != nil {
			return nil, err
		}
		convex.Terms = append(convex.Terms, linprog.Term{Index: l, Coef: 1})
	}
	if _, err := mdl.AddRow(convex); err != nil {
		return nil, err
	}
	for n := 0; n < n2; n++ {
		def := linprog.Row{Name: fmt.Sprintf("xdef_%d", n), Sense: linprog.Equal}
		for j, y := range pols {
			if y[n] != 0 {
				def.Terms = append(def.Terms, linprog.Term{Index: first + j, Coef: y[n]})
			}
		}
		if len(def.Terms) == 0 {
			mdl.Fix(1+n, 0)
			continue
		}
		def.Terms = append(def.Terms, linprog.Term{Index: 1 + n, Coef: -1})
		if _, err := mdl.AddRow(def); err != nil {
			return nil, err
		}
	}
	set, err := s.m.UncSet().LP()
	if err != nil {
		return nil, err
	}
	if err = robustCounterpart(mdl, s.m.CXYQ(0)[0], set); err != nil {
		return nil, err
	}

	sol, err := mdl.Relaxation().Solve(s.opts.MILP.LP)
	if err != nil {
		return nil, err
	}
	if sol.Status != linprog.Optimal {
		return nil, fmt.Errorf("%w: %v", ErrCombination, sol.Status)
	}

	return sol.X[first : first+len(pols)], nil
}

// relGap matches the relative gap reported by milp.
func relGap(inc, bound float64) float64 {
	return math.Abs(inc-bound) / (1e-10 + math.Abs(inc))
}

package kadapt

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/milp"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// Violation describes the worst scenario found by a check.
//   - Value: largest violation; at most the tolerance when the check passed.
//   - Q: the scenario in the coordinates of U, with Q[0] = Value.
//   - Policy, Row: the policy and row attaining Value (−1 when not known).
//   - Label: index of the sample the violation was found at (−1 for exact
//     separation).
type Violation struct {
	Value  float64
	Q      []float64
	Policy int
	Row    int
	Label  int
}

func noViolation() Violation {
	return Violation{Value: math.Inf(-1), Policy: -1, Row: -1, Label: -1}
}

// FeasibleYQ checks the uncertain second stage rows of x exactly: for every
// scenario some policy must satisfy all of its rows. On failure the returned
// Violation holds the most violated scenario found.
func (s *Solver) FeasibleYQ(x []float64, K int) (bool, Violation, error) {
	if err := s.resize(K); err != nil {
		return false, Violation{}, err
	}
	if err := s.checkX(x, K); err != nil {
		return false, Violation{}, err
	}
	s.opts.Metrics.Separation(metrics.SepExact)

	q, err := s.separate(x, K)
	if err != nil {
		return false, Violation{}, err
	}
	v := noViolation()
	v.Value = q[0]
	v.Q = q[:s.m.UncSet().Dim()]

	return v.Value <= s.opts.InfeasTol, v, nil
}

// sepSet returns the set FeasibleYQ optimizes over for K policies.
func (s *Solver) sepSet(K int) *uncertainty.Set {
	if s.lifted(K) {
		return s.m.UncSetK()
	}

	return s.m.UncSet()
}

// policyRows returns C_XYQ[k], moved to the replica of policy k when lifted.
func (s *Solver) policyRows(k int, lifted bool) expr.List {
	rows := s.m.CXYQ(k)
	if !lifted {
		return rows
	}
	out := make(expr.List, len(rows))
	for j, c := range rows {
		out[j] = c.MapParams(func(p int) int { return s.m.MapParam(k, p) })
	}

	return out
}

// separate returns argmax_q min_k max_j viol_jk(x, q) with q[0] set to the value.
func (s *Solver) separate(x []float64, K int) ([]float64, error) {
	lifted := s.lifted(K)
	set := s.sepSet(K)
	rows := make([]expr.List, K)
	for k := range rows {
		rows[k] = s.policyRows(k, lifted)
		if len(rows[k]) == 0 {
			// a policy without uncertain rows covers every scenario
			q := set.Nominal()
			q[0] = math.Inf(-1)
			return q, nil
		}
	}

	if s.m.Info().ObjectiveUnc {
		cons := make([]expr.Constraint, K)
		for k := range rows {
			cons[k] = rows[k][0]
		}
		return set.EvaluateKAdaptable(cons, x)
	}
	if K == 1 {
		return worstRow(set, rows[0], x, s.opts.InfeasTol, s.opts.GetMaxViolation)
	}

	switch s.opts.Separation {
	case SeparationBigM, SeparationIndicator:
		q, err := s.separateMILP(set, rows, x, s.opts.Separation == SeparationIndicator)
		if !errors.Is(err, errNoBigM) {
			return q, err
		}
		s.log.Debug("separation falls back to enumeration")
	}

	return s.separateEnumerate(set, rows, x)
}

// worstRow maximizes the violation of each row over set and keeps the worst.
func worstRow(set *uncertainty.Set, rows expr.List, x []float64, tol float64, getMax bool) ([]float64, error) {
	var best []float64
	for _, c := range rows {
		q, err := set.MaxViolation(c, x)
		if err != nil {
			return nil, err
		}
		if best == nil || q[0] > best[0] {
			best = q
		}
		if !getMax && best[0] > tol {
			break
		}
	}

	return best, nil
}

// separateEnumerate solves one max-min LP per choice of one row per policy.
func (s *Solver) separateEnumerate(set *uncertainty.Set, rows []expr.List, x []float64) ([]float64, error) {
	K := len(rows)
	idx := make([]int, K)
	cons := make([]expr.Constraint, K)
	var best []float64
	for {
		for k := range cons {
			cons[k] = rows[k][idx[k]]
		}
		q, err := set.EvaluateKAdaptable(cons, x)
		if err != nil {
			return nil, err
		}
		if best == nil || q[0] > best[0] {
			best = q
		}
		if !s.opts.GetMaxViolation && best[0] > s.opts.InfeasTol {
			return best, nil
		}

		k := 0
		for ; k < K; k++ {
			idx[k]++
			if idx[k] < len(rows[k]) {
				break
			}
			idx[k] = 0
		}
		if k == K {
			return best, nil
		}
	}
}

// errNoBigM signals that a MILP formulation needs bounds the set lacks.
var errNoBigM = errors.New("kadapt: separation model has unbounded activities")

// separateMILP maximizes tau subject to tau ≤ viol_jk(q) for the row j chosen
// by the binaries z_jk, one per policy. The choice is enforced by indicator
// rows or by a single big-M over every row.
func (s *Solver) separateMILP(set *uncertainty.Set, rows []expr.List, x []float64, indicator bool) ([]float64, error) {
	affs := make([][]expr.Affine, len(rows))
	lows := make([][]float64, len(rows))
	lo, hi := math.Inf(1), math.Inf(-1)
	for k, list := range rows {
		for _, c := range list {
			a, err := c.ViolationAffine(x)
			if err != nil {
				return nil, err
			}
			l, h, err := set.Range(a)
			if err != nil {
				return nil, err
			}
			affs[k] = append(affs[k], a)
			lows[k] = append(lows[k], l)
			lo, hi = math.Min(lo, l), math.Max(hi, h)
		}
	}
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, errNoBigM
	}

	mdl, err := set.Model()
	if err != nil {
		return nil, err
	}
	mdl.SetBounds(0, lo, hi)
	mdl.SetObj(0, 1)
	mdl.SetMaximize(true)
	for k := range affs {
		pick := linprog.Row{Name: fmt.Sprintf("pick%d", k), Sense: linprog.Equal, RHS: 1}
		for j, a := range affs[k] {
			z, err := mdl.AddVar(milp.Binary, 0, 1, 0, fmt.Sprintf("z%d_%d", j, k))
			if err != nil {
				return nil, err
			}
			pick.Terms = append(pick.Terms, linprog.Term{Index: z, Coef: 1})
			// tau − a'q ≤ a0
			r := linprog.Row{Name: fmt.Sprintf("sel%d_%d", j, k), Sense: linprog.LessEqual, RHS: a.Const}
			r.Terms = append(r.Terms, linprog.Term{Index: 0, Coef: 1})
			for _, t := range a.Terms {
				r.Terms = append(r.Terms, linprog.Term{Index: t.Index, Coef: -t.Coef})
			}
			if indicator {
				err = mdl.AddIndicator(milp.Indicator{Binary: z, Active: true, Row: r})
				if errors.Is(err, milp.ErrIndicatorUnbounded) {
					return nil, errNoBigM
				}
			} else {
				M := hi - lows[k][j]
				r.Terms = append(r.Terms, linprog.Term{Index: z, Coef: M})
				r.RHS += M
				_, err = mdl.AddRow(r)
			}
			if err != nil {
				return nil, err
			}
		}
		if _, err := mdl.AddRow(pick); err != nil {
			return nil, err
		}
	}

	res, err := milp.Solve(context.Background(), mdl, s.subOptions())
	if err != nil {
		return nil, err
	}
	if res.Status != milp.Optimal && res.Status != milp.OptimalTol {
		return nil, statusError("separation", res.Status)
	}
	q := res.X[:set.Dim()]
	q[0] = res.Objective

	return q, nil
}

// subOptions returns the MILP options of auxiliary problems: the solver's
// tolerances without callbacks or limits.
func (s *Solver) subOptions() milp.Options {
	o := s.opts.MILP
	o.Callbacks = milp.Callbacks{}
	o.TimeLimit = 0
	o.LazyCuts = false
	o.Logger = nil

	return o
}

func statusError(op string, st milp.Status) error {
	return &CodeError{
		Code: int(st),
		Op:   op,
		Err:  fmt.Errorf("%w: %w: %v", ErrSeparation, milp.ErrUnexpectedStatus, st),
	}
}

// robustViolation maximizes the violation of every row of policy k at x over
// U, with the observed components fixed to those of sample when sample is
// not nil. It returns the worst value, its scenario and row.
func (s *Solver) robustViolation(x []float64, k int, sample []float64, tol float64) (float64, []float64, int, error) {
	u := s.m.UncSet()
	if sample != nil {
		if err := u.SetXiBar(sample); err != nil {
			return 0, nil, -1, err
		}
		defer u.ResetXiBar()
	}
	best, bestQ, row := math.Inf(-1), []float64(nil), -1
	for j, c := range s.m.CXYQ(k) {
		q, err := u.MaxViolation(c, x)
		if err != nil {
			return 0, nil, -1, err
		}
		if q[0] > best {
			best, bestQ, row = q[0], q, j
		}
		if !s.opts.GetMaxViolation && best > tol {
			break
		}
	}

	return best, bestQ, row, nil
}

// FeasibleRobustYQ checks policy k of x against every scenario that shares
// the observed components of one of samples. Without observations each
// sample stands for the whole of U.
func (s *Solver) FeasibleRobustYQ(x []float64, k int, samples [][]float64, heur bool) (bool, Violation, error) {
	K, err := s.NumPolicies(x)
	if err != nil {
		return false, Violation{}, err
	}
	if k < 0 || k >= K {
		return false, Violation{}, fmt.Errorf("%w: %d with K=%d", ErrPolicyIndex, k, K)
	}
	if err = s.resize(K); err != nil {
		return false, Violation{}, err
	}
	s.opts.Metrics.Separation(metrics.SepRobust)

	tol := s.tol(heur)
	dd := s.decisionDependent()
	v := noViolation()
	v.Policy = k
	for l, sample := range samples {
		var fix []float64
		if dd {
			fix = sample
		}
		val, q, row, err := s.robustViolation(x, k, fix, tol)
		if err != nil {
			return false, Violation{}, err
		}
		if val > v.Value {
			v.Value, v.Q, v.Row, v.Label = val, q, row, l
		}
		if !dd || (!s.opts.GetMaxViolation && v.Value > tol) {
			break
		}
	}

	return v.Value <= tol, v, nil
}

// FeasibleYQSamples checks x against a scenario library: every sample must
// be covered by some policy. With observations in effect a policy covers a
// sample when it is robust against every scenario sharing its observed
// components.
func (s *Solver) FeasibleYQSamples(x []float64, K int, samples [][]float64, heur bool) (bool, Violation, error) {
	if err := s.resize(K); err != nil {
		return false, Violation{}, err
	}
	if err := s.checkX(x, K); err != nil {
		return false, Violation{}, err
	}
	if err := s.checkSamples(samples); err != nil {
		return false, Violation{}, err
	}
	s.opts.Metrics.Separation(metrics.SepSamples)

	tol := s.tol(heur)
	dd := s.decisionDependent()
	worst := noViolation()
	for l, sample := range samples {
		best := noViolation()
		best.Value = math.Inf(1)
		for k := 0; k < K; k++ {
			var (
				val float64
				q   []float64
				row int
			)
			if dd {
				var err error
				if val, q, row, err = s.robustViolation(x, k, sample, tol); err != nil {
					return false, Violation{}, err
				}
			} else {
				val, row = s.m.CXYQ(k).MaxViolation(x, sample)
				q = append([]float64(nil), sample...)
			}
			if val < best.Value {
				best = Violation{Value: val, Q: q, Policy: k, Row: row, Label: l}
			}
			if best.Value <= tol {
				break
			}
		}
		if best.Value > worst.Value {
			worst = best
		}
		if !s.opts.GetMaxViolation && worst.Value > tol {
			break
		}
	}
	if worst.Q != nil {
		worst.Q[0] = worst.Value
	}

	return worst.Value <= tol, worst, nil
}

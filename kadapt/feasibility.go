package kadapt

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// detViolated reports whether some deterministic row of l is violated at x.
func detViolated(l expr.List, x []float64, tol float64) bool {
	for _, c := range l {
		if c.ViolationX(x) > tol {
			return true
		}
	}

	return false
}

// FeasibleDETK checks the deterministic rows. The first stage rows C_X and
// B_X must hold; policies violating C_XY[k] or B_Y[k] are dropped. It
// returns the remaining vector and its policy count; ok is false when the
// first stage fails or no policy is left.
func (s *Solver) FeasibleDETK(x []float64, K int) (ok bool, xr []float64, Kr int, err error) {
	if err = s.resize(K); err != nil {
		return false, nil, 0, err
	}
	if err = s.checkX(x, K); err != nil {
		return false, nil, 0, err
	}
	tol := s.opts.InfeasTol
	if detViolated(s.m.CX(), x, tol) || detViolated(s.m.BX(), x, tol) {
		return false, nil, 0, nil
	}
	var drop []int
	for k := 0; k < K; k++ {
		if detViolated(s.m.CXY(k), x, tol) || detViolated(s.m.BY(k), x, tol) {
			drop = append(drop, k)
		}
	}
	if len(drop) == K {
		return false, nil, 0, nil
	}
	xr = append([]float64(nil), x...)
	sort.Sort(sort.Reverse(sort.IntSlice(drop)))
	for _, k := range drop {
		if xr, err = s.RemoveXPolicy(xr, k); err != nil {
			return false, nil, 0, err
		}
	}

	return true, xr, K - len(drop), nil
}

// FeasibleXQ checks the first stage uncertain rows C_XQ against all of U.
func (s *Solver) FeasibleXQ(x []float64) (bool, Violation, error) {
	if len(x) < s.m.NumFirstStage() {
		return false, Violation{}, fmt.Errorf("%w: %d entries, first stage has %d", ErrDimension, len(x), s.m.NumFirstStage())
	}
	v := noViolation()
	u := s.m.UncSet()
	for j, c := range s.m.CXQ() {
		q, err := u.MaxViolation(c, x)
		if err != nil {
			return false, Violation{}, err
		}
		if q[0] > v.Value {
			v.Value, v.Q, v.Row = q[0], q, j
		}
		if !s.opts.GetMaxViolation && v.Value > s.opts.InfeasTol {
			break
		}
	}

	return v.Value <= s.opts.InfeasTol, v, nil
}

// FeasibleXQSamples checks C_XQ at every sample.
func (s *Solver) FeasibleXQSamples(x []float64, samples [][]float64) (bool, Violation, error) {
	if err := s.checkSamples(samples); err != nil {
		return false, Violation{}, err
	}
	v := noViolation()
	for l, q := range samples {
		val, j := s.m.CXQ().MaxViolation(x, q)
		if val > v.Value {
			v = Violation{Value: val, Q: append([]float64(nil), q...), Policy: -1, Row: j, Label: l}
			v.Q[0] = val
		}
	}

	return v.Value <= s.opts.InfeasTol, v, nil
}

func (s *Solver) checkSamples(samples [][]float64) error {
	dim := s.m.UncSet().Dim()
	for _, q := range samples {
		if len(q) != dim {
			return fmt.Errorf("%w: sample has %d entries, want %d", uncertainty.ErrDimension, len(q), dim)
		}
	}

	return nil
}

// FeasibleDET checks x at the single scenario q: the first stage rows must
// hold and some policy must satisfy all of its rows.
func (s *Solver) FeasibleDET(x, q []float64) (bool, error) {
	K, err := s.NumPolicies(x)
	if err != nil {
		return false, err
	}
	if err = s.checkSamples([][]float64{q}); err != nil {
		return false, err
	}
	if err = s.resize(K); err != nil {
		return false, err
	}
	tol := s.opts.InfeasTol
	if detViolated(s.m.CX(), x, tol) || detViolated(s.m.BX(), x, tol) {
		return false, nil
	}
	if v, _ := s.m.CXQ().MaxViolation(x, q); v > tol {
		return false, nil
	}
	for k := 0; k < K; k++ {
		if detViolated(s.m.CXY(k), x, tol) || detViolated(s.m.BY(k), x, tol) {
			continue
		}
		if v, _ := s.m.CXYQ(k).MaxViolation(x, q); v <= tol {
			return true, nil
		}
	}

	return false, nil
}

// FeasibleSRO checks a one-policy x for static robust feasibility.
func (s *Solver) FeasibleSRO(x []float64) (bool, error) {
	ok, _, _, err := s.FeasibleDETK(x, 1)
	if err != nil || !ok {
		return false, err
	}
	if ok, _, err = s.FeasibleXQ(x); err != nil || !ok {
		return false, err
	}
	v, _, _, err := s.robustViolation(x, 0, nil, s.opts.InfeasTol)
	if err != nil {
		return false, err
	}

	return v <= s.opts.InfeasTol, nil
}

// FeasibleSROSamples checks a one-policy x at every sample.
func (s *Solver) FeasibleSROSamples(x []float64, samples [][]float64) (bool, error) {
	if err := s.checkX(x, 1); err != nil {
		return false, err
	}
	for _, q := range samples {
		ok, err := s.FeasibleDET(x, q)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// FeasibleKAdaptability checks x exactly. Policies that fail their
// deterministic rows are dropped before the uncertain rows are checked.
func (s *Solver) FeasibleKAdaptability(x []float64, K int) (bool, error) {
	ok, xr, Kr, err := s.FeasibleDETK(x, K)
	if err != nil || !ok {
		return false, err
	}
	if ok, _, err = s.FeasibleXQ(xr); err != nil || !ok {
		return false, err
	}
	ok, _, err = s.FeasibleYQ(xr, Kr)

	return ok, err
}

// FeasibleKAdaptabilitySamples checks x against a scenario library only.
func (s *Solver) FeasibleKAdaptabilitySamples(x []float64, K int, samples [][]float64) (bool, error) {
	ok, xr, Kr, err := s.FeasibleDETK(x, K)
	if err != nil || !ok {
		return false, err
	}
	if ok, _, err = s.FeasibleXQSamples(xr, samples); err != nil || !ok {
		return false, err
	}
	ok, _, err = s.FeasibleYQSamples(xr, Kr, samples, false)

	return ok, err
}

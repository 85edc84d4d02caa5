package kadapt

import (
	"math"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/problem"
)

// Solver owns a private copy of a model together with the best K-adaptable
// solution found so far. A Solver is not safe for concurrent use.
type Solver struct {
	m    *problem.Model
	opts Options
	log  *zap.Logger

	xsol  []float64
	bestU float64

	// fixed pins first-stage columns 1.. to its entries; NaN leaves one free.
	fixed []float64
}

// New clones m and validates opts.
func New(m *problem.Model, opts Options) (*Solver, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	s := &Solver{opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.Reset(m)

	return s, nil
}

// Reset replaces the model and forgets every stored solution.
func (s *Solver) Reset(m *problem.Model) {
	s.m = m.Clone()
	s.m.SetLPOptions(s.opts.MILP.LP)
	s.xsol = nil
	s.fixed = nil
	s.bestU = math.Inf(1)
}

// Model returns the solver's model. Callers must not resize it.
func (s *Solver) Model() *problem.Model { return s.m }

// Options returns the solver options.
func (s *Solver) Options() Options { return s.opts }

// SetW fixes the observation variables. An empty w restores the declared
// bounds. The stored solution is dropped since it belongs to another w.
func (s *Solver) SetW(w []bool) error {
	s.xsol = nil
	if len(w) == 0 {
		return s.m.ResetW()
	}

	return s.m.SetW(w)
}

// SetBestU sets the cutoff: a K-adaptability solve aborts once its bound
// reaches u.
func (s *Solver) SetBestU(u float64) { s.bestU = u }

// BestU returns the cutoff.
func (s *Solver) BestU() float64 { return s.bestU }

// SetX stores x as the current solution when it is K-adaptable feasible and
// better than the stored one. It reports whether x was kept.
func (s *Solver) SetX(x []float64, K int) (bool, error) {
	if err := s.checkX(x, K); err != nil {
		return false, err
	}
	ok, err := s.FeasibleKAdaptability(x, K)
	if err != nil || !ok {
		return false, err
	}

	return s.offer(x), nil
}

// Solution returns a copy of the stored solution (nil when none).
func (s *Solver) Solution() []float64 { return append([]float64(nil), s.xsol...) }

// offer keeps x when its objective beats the stored solution.
func (s *Solver) offer(x []float64) bool {
	if s.xsol != nil && x[0] >= s.xsol[0] {
		return false
	}
	s.xsol = append(s.xsol[:0], x...)

	return true
}

// resize brings the model to K policies.
func (s *Solver) resize(K int) error {
	if K < 1 {
		return ErrPolicies
	}
	if s.m.NumPolicies() == K {
		return nil
	}

	return s.m.Resize(K)
}

// decisionDependent reports whether observations are in effect.
func (s *Solver) decisionDependent() bool {
	return s.opts.DecisionDependent && len(s.m.W()) > 0
}

// lifted reports whether separation for K policies runs over the lifted set.
func (s *Solver) lifted(K int) bool {
	return s.decisionDependent() && s.m.UncSet().IsLifted(K)
}

func (s *Solver) tol(heur bool) float64 {
	if heur {
		return s.opts.HeurTol
	}

	return s.opts.InfeasTol
}

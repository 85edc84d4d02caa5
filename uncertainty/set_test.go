package uncertainty_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/uncertainty"
)

type SetSuite struct {
	suite.Suite
	u *uncertainty.Set
}

// toy set: q1 ∈ [−1, 1], q2 ∈ [−0.5, 0.5], 0.5·q1 + 2·q2 ≤ 1; q1, q2 observed by w0, w1.
func (s *SetSuite) SetupTest() {
	s.u = uncertainty.New()
	p1, err := s.u.AddParam(1, -1, 1)
	s.Require().NoError(err)
	p2, err := s.u.AddParam(-0.5, -0.5, 0.5)
	s.Require().NoError(err)
	s.Require().NoError(s.u.AddFacet([]linprog.Term{{Index: p1, Coef: 0.5}, {Index: p2, Coef: 2}}, linprog.LessEqual, 1))
	s.Require().NoError(s.u.SetObsVar(p1, 0))
	s.Require().NoError(s.u.SetObsVar(p2, 1))
}

func coverRow() expr.Constraint {
	c := expr.New("cover", linprog.GreaterEqual, 0.5)
	c.AddTermX(1, 1).AddTermX(2, 2).AddTermQ(1, -0.5).AddTermQ(2, 0.5)
	return c
}

func (s *SetSuite) TestNominalAndDim() {
	require.Equal(s.T(), 2, s.u.NumParams())
	require.Equal(s.T(), 3, s.u.Dim())
	require.Equal(s.T(), []float64{0, 1, -0.5}, s.u.Nominal())
	require.True(s.T(), s.u.Contains(s.u.Nominal(), 1e-9))
	require.False(s.T(), s.u.Contains([]float64{0, 1, 0.5}, 1e-9))
}

func (s *SetSuite) TestMaxViolation() {
	q, err := s.u.MaxViolation(coverRow(), []float64{0, 0, 0})
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 1.25, q[0], 1e-7)
	require.InDelta(s.T(), 1, q[1], 1e-7)
	require.InDelta(s.T(), -0.5, q[2], 1e-7)
	require.InDelta(s.T(), q[0], coverRow().Violation([]float64{0, 0, 0}, q), 1e-7)
}

func (s *SetSuite) TestXiBarFixesObserved() {
	require.NoError(s.T(), s.u.SetW([]float64{1, 0}))
	require.Equal(s.T(), []bool{true, false}, s.u.W())
	require.Equal(s.T(), 1, s.u.NumObserved())

	require.NoError(s.T(), s.u.SetXiBar([]float64{0, -1, 0}))
	q, err := s.u.MaxViolation(coverRow(), []float64{0, 0, 0})
	require.NoError(s.T(), err)
	require.InDelta(s.T(), -1, q[1], 1e-9)
	require.InDelta(s.T(), 0.25, q[0], 1e-7)

	s.u.ResetXiBar()
	require.False(s.T(), s.u.HasXiBar())
	q, err = s.u.MaxViolation(coverRow(), []float64{0, 0, 0})
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 1.25, q[0], 1e-7)

	require.ErrorIs(s.T(), s.u.SetXiBar([]float64{0}), uncertainty.ErrDimension)
}

func (s *SetSuite) TestContainsWithXiBar() {
	require.NoError(s.T(), s.u.SetW([]float64{1, 0}))
	require.NoError(s.T(), s.u.SetXiBar([]float64{0, -1, 0}))

	require.True(s.T(), s.u.Contains([]float64{0, -1, 0.5}, 1e-9))
	require.False(s.T(), s.u.Contains([]float64{0, 1, -0.5}, 1e-9), "q1 is pinned by xiBar")
	require.True(s.T(), s.u.Contains([]float64{0, -1 + 1e-10, 0}, 1e-9))

	// Unobserved parameters ignore xiBar.
	require.NoError(s.T(), s.u.SetW([]float64{0, 1}))
	require.True(s.T(), s.u.Contains([]float64{0, 1, 0}, 1e-9))
	require.False(s.T(), s.u.Contains([]float64{0, 1, 0.25}, 1e-9))
}

func (s *SetSuite) TestLPOptionsPropagate() {
	opts := linprog.DefaultOptions()
	opts.MaxIter = 1
	s.u.SetLPOptions(opts)
	require.NoError(s.T(), s.u.SetW([]float64{1, 0}))
	require.Equal(s.T(), 1, s.u.Clone().LPOptions().MaxIter)
	require.Equal(s.T(), 1, s.u.Lift(2).LPOptions().MaxIter)

	_, err := s.u.MaxViolation(coverRow(), []float64{0, 0, 0})
	require.ErrorIs(s.T(), err, linprog.ErrNumerical)

	s.u.SetLPOptions(linprog.DefaultOptions())
	_, err = s.u.MaxViolation(coverRow(), []float64{0, 0, 0})
	require.NoError(s.T(), err)
}

func (s *SetSuite) TestLift() {
	// no observation vector: plain copy
	plain := s.u.Lift(3)
	require.Equal(s.T(), 2, plain.NumParams())

	require.NoError(s.T(), s.u.SetW([]float64{1, 0}))
	require.Equal(s.T(), 2, s.u.Lift(1).NumParams())

	lifted := s.u.Lift(2)
	require.True(s.T(), s.u.IsLifted(2))
	require.Equal(s.T(), 6, lifted.NumParams())
	// 3 replicas of one facet + 2 links for the observed q1
	require.Len(s.T(), lifted.Facets(), 5)

	same := []float64{0, 1, -0.5, 1, 0.25, 1, 0}
	require.True(s.T(), lifted.Contains(same, 1e-9))
	broken := []float64{0, 1, -0.5, 0, 0.25, 1, 0}
	require.False(s.T(), lifted.Contains(broken, 1e-9), "replica 1 disagrees on the observed q1")
}

func (s *SetSuite) TestEvaluateKAdaptable() {
	up := expr.New("up", linprog.LessEqual, 0)
	up.AddTermQ(1, 1)
	down := expr.New("down", linprog.LessEqual, 0)
	down.AddTermQ(1, -1)

	q, err := s.u.EvaluateKAdaptable([]expr.Constraint{up, down}, nil)
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 0, q[0], 1e-7)
	require.InDelta(s.T(), 0, q[1], 1e-7)

	q, err = s.u.EvaluateKAdaptable([]expr.Constraint{up}, nil)
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 1, q[0], 1e-7)
}

func (s *SetSuite) TestRange() {
	a, err := coverRow().ViolationAffine([]float64{0, 0, 0})
	require.NoError(s.T(), err)
	lo, hi, err := s.u.Range(a)
	require.NoError(s.T(), err)
	require.InDelta(s.T(), -0.25, lo, 1e-12)
	require.InDelta(s.T(), 1.25, hi, 1e-12)
}

func (s *SetSuite) TestValidation() {
	_, err := s.u.AddParam(5, 0, 1)
	require.ErrorIs(s.T(), err, uncertainty.ErrBounds)
	require.ErrorIs(s.T(), s.u.AddFacet([]linprog.Term{{Index: 9, Coef: 1}}, linprog.LessEqual, 0), uncertainty.ErrParamIndex)
	require.ErrorIs(s.T(), s.u.SetObsVar(0, 1), uncertainty.ErrParamIndex)
	require.ErrorIs(s.T(), s.u.SetW([]float64{1}), uncertainty.ErrDimension)
	require.ErrorIs(s.T(), s.u.SetObserved([]bool{true}), uncertainty.ErrDimension)
}

func (s *SetSuite) TestCloneAndClear() {
	c := s.u.Clone()
	s.u.Clear()
	require.Equal(s.T(), 0, s.u.NumParams())
	require.Equal(s.T(), 2, c.NumParams())
	require.True(s.T(), c.HasObservation())
}

func TestSetSuite(t *testing.T) {
	suite.Run(t, new(SetSuite))
}

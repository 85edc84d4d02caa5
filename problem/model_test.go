package problem_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
	"github.com/katalvlaran/kadapt/problem"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// toy: X = [O, w1, w2] (w0 undefined), Y = [y0, y1], two parameters observed by w1, w2.
type toy struct {
	noParams bool
	wrongDet bool
}

func (t toy) Info() problem.Info {
	return problem.Info{
		HasInteger:       true,
		ObjectiveUnc:     !t.noParams,
		ExistsFirstStage: true,
		WDetObjOnly:      !t.wrongDet,
		NumFirstStage:    3,
		NumSecondStage:   2,
		SolFileName:      "toy",
	}
}

func (t toy) MakeUncSet(u *uncertainty.Set) error {
	if t.noParams {
		return nil
	}
	p1, err := u.AddParam(0, -1, 1)
	if err != nil {
		return err
	}
	p2, err := u.AddParam(0, -1, 1)
	if err != nil {
		return err
	}
	if err := u.SetObsVar(p1, 0); err != nil {
		return err
	}

	return u.SetObsVar(p2, 1)
}

func (toy) MakeVars(x, y *problem.VarSet) error {
	if err := x.Add("O", milp.Continuous, math.Inf(-1), math.Inf(1)); err != nil {
		return err
	}
	if err := x.SetObj(1, "O"); err != nil {
		return err
	}
	if err := x.Add("w", milp.Binary, 0, 1, 3); err != nil {
		return err
	}
	if err := x.SetUndefined("w", 0); err != nil {
		return err
	}

	return y.Add("y", milp.Binary, 0, 1, 2)
}

func (toy) MakeConsX(m *problem.Model) (problem.FirstStage, error) {
	var fs problem.FirstStage
	for i := 1; i <= 2; i++ {
		c := expr.New("w_ub", linprog.LessEqual, 1)
		c.AddTermX(m.VarIndex1("w", i), 1)
		fs.BX = append(fs.BX, c)
	}
	fs.CW = []float64{0.5, 0.5}

	return fs, nil
}

func (t toy) MakeConsY(m *problem.Model, k int) (problem.Policy, error) {
	var p problem.Policy
	cover := expr.New("cover", linprog.GreaterEqual, 1)
	cover.AddTermX(m.VarIndex2(k, "y", 0), 1).AddTermX(m.VarIndex2(k, "y", 1), 1)
	p.CXY = append(p.CXY, cover)
	if t.noParams {
		return p, nil
	}
	obj := expr.New("obj", linprog.GreaterEqual, 0)
	obj.AddTermX(m.VarIndex1("O"), 1).
		AddTermProduct(m.VarIndex2(k, "y", 0), 1, -1).
		AddTermProduct(m.VarIndex2(k, "y", 1), 2, -1)
	p.CXYQ = append(p.CXYQ, obj)

	return p, nil
}

func build(t *testing.T, s problem.Spec) *problem.Model {
	t.Helper()
	m, err := problem.Build(s)
	require.NoError(t, err)

	return m
}

func TestBuildLayout(t *testing.T) {
	m := build(t, toy{})
	require.Equal(t, 3, m.NumFirstStage())
	require.Equal(t, 2, m.NumSecondStage())
	require.Equal(t, 1, m.NumPolicies())
	require.Equal(t, 5, m.NumVars(1))
	require.Equal(t, 9, m.NumVars(3))
	require.Equal(t, 1, m.VarIndex1("w", 1))
	require.Equal(t, 4, m.VarIndex2(0, "y", 1))
	require.Equal(t, 6, m.VarIndex2(1, "y", 1))
	begin, end := m.WRange()
	require.Equal(t, 1, begin)
	require.Equal(t, 3, end)
	require.Equal(t, "toy", m.SolFileName())
	require.True(t, m.IsConsistentWithDesign())
	require.Panics(t, func() { m.VarIndex1("w", 0) }, "w0 is undefined")
}

func TestResizeRoundTrip(t *testing.T) {
	m := build(t, toy{})
	before := m.Clone()

	require.NoError(t, m.Resize(3))
	require.Equal(t, 3, m.NumPolicies())
	require.Equal(t, 8, m.CXYQ(2)[0].XQ[1].Var)

	require.NoError(t, m.Resize(1))
	require.Equal(t, 1, m.NumPolicies())
	require.Empty(t, cmp.Diff(before.CXY(0), m.CXY(0)))
	require.Empty(t, cmp.Diff(before.CXYQ(0), m.CXYQ(0)))
	require.Empty(t, cmp.Diff(before.BX(), m.BX()))

	require.ErrorIs(t, m.Resize(0), problem.ErrPolicies)
}

func TestConsistencyIdempotent(t *testing.T) {
	m := build(t, toy{})
	require.NoError(t, m.CheckConsistency())
	require.NoError(t, m.CheckConsistency())
	require.NoError(t, m.Resize(2))
	require.NoError(t, m.CheckConsistency())
}

func TestInconsistentSpec(t *testing.T) {
	_, err := problem.Build(toy{wrongDet: true})
	require.ErrorIs(t, err, problem.ErrInconsistent)
}

func TestZeroParams(t *testing.T) {
	m := build(t, toy{noParams: true})
	require.Equal(t, 0, m.NumParams())
	require.Empty(t, m.CXYQ(0))
	require.Equal(t, []float64{0}, m.Nominal())
	out, err := m.MapParamK(1, []int{0})
	require.NoError(t, err)
	require.Equal(t, []int{0}, out)
}

func TestMapK(t *testing.T) {
	m := build(t, toy{})
	require.NoError(t, m.Resize(3))
	idx := []int{0, 2, 3, 4}

	same, err := m.MapK(0, idx)
	require.NoError(t, err)
	require.Equal(t, idx, same)

	once, err := m.MapK(1, idx)
	require.NoError(t, err)
	require.Equal(t, []int{0, 2, 5, 6}, once)

	twice, err := m.MapK(1, once)
	require.NoError(t, err)
	require.Equal(t, []int{0, 2, 7, 8}, twice, "mapping twice offsets twice")

	_, err = m.MapK(1, []int{9})
	require.ErrorIs(t, err, problem.ErrVarIndex)

	ps, err := m.MapParamK(1, []int{0, 1, 2})
	require.NoError(t, err)
	require.Equal(t, []int{0, 5, 6}, ps)
	_, err = m.MapParamK(0, []int{3})
	require.ErrorIs(t, err, problem.ErrParamIndex)
}

func TestSetW(t *testing.T) {
	m := build(t, toy{})
	require.NoError(t, m.Resize(2))
	require.NoError(t, m.SetW([]bool{true, false}))

	cols := m.X().Columns()
	require.Equal(t, 1.0, cols[1].LB)
	require.Equal(t, 1.0, cols[1].UB)
	require.Equal(t, 0.0, cols[2].UB)
	require.Equal(t, []bool{true, false}, m.W())
	require.True(t, m.UncSet().IsLifted(2))
	require.Equal(t, 6, m.UncSetK().NumParams())

	require.ErrorIs(t, m.SetW([]bool{true}), problem.ErrDimension)

	require.NoError(t, m.ResetW())
	cols = m.X().Columns()
	require.Equal(t, 0.0, cols[1].LB)
	require.Equal(t, 1.0, cols[1].UB)
	require.Nil(t, m.W())
	require.Equal(t, 2, m.UncSetK().NumParams())
}

func TestCloneIndependent(t *testing.T) {
	m := build(t, toy{})
	c := m.Clone()
	require.NoError(t, m.Resize(2))
	require.NoError(t, m.SetW([]bool{true, true}))
	require.Equal(t, 1, c.NumPolicies())
	require.Nil(t, c.W())
	require.Equal(t, 0.0, c.X().Columns()[1].LB)
}

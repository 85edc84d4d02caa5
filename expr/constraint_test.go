package expr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
)

// objective row of the toy instance: O − 2q1 + 3y0 − 2y0q1 − y1q2 ≥ 0
func toyObjective() expr.Constraint {
	c := expr.New("obj", linprog.GreaterEqual, 0)
	c.AddTermX(0, 1).AddTermQ(1, -2).AddTermX(1, 3).AddTermProduct(1, 1, -2).AddTermProduct(2, 2, -1)
	return c
}

func TestViolationAndSlices(t *testing.T) {
	c := toyObjective()
	x := []float64{0, 1, 1}
	q := []float64{0, 1, -0.5}

	// lhs = 0 − 2 + 3 − 2 + 0.5 = −0.5
	require.InDelta(t, -0.5, c.LHS(x, q), 1e-12)
	require.InDelta(t, 0.5, c.Violation(x, q), 1e-12)

	det := c.Deterministic(q)
	require.Equal(t, linprog.GreaterEqual, det.Sense)
	require.InDelta(t, 2, det.RHS, 1e-12)
	require.InDelta(t, c.Violation(x, q), det.Violation(x), 1e-12)

	sto := c.Stochastic(x)
	require.InDelta(t, c.Violation(x, q), sto.Violation(q), 1e-12)

	aff, err := c.ViolationAffine(x)
	require.NoError(t, err)
	require.InDelta(t, 0.5, aff.Eval(q), 1e-12)
	require.InDelta(t, c.Violation(x, []float64{0, -1, 0.5}), aff.Eval([]float64{0, -1, 0.5}), 1e-12)
}

func TestLessEqualAffine(t *testing.T) {
	c := expr.New("cap", linprog.LessEqual, 4)
	c.AddTermX(1, 2).AddTermQ(1, 1).AddConst(1)
	aff, err := c.ViolationAffine([]float64{0, 1})
	require.NoError(t, err)
	// 2 + q1 + 1 − 4
	require.InDelta(t, 2.0, aff.Eval([]float64{0, 3}), 1e-12)

	eq := expr.New("eq", linprog.Equal, 0)
	eq.AddTermQ(1, 1)
	_, err = eq.ViolationAffine(nil)
	require.ErrorIs(t, err, expr.ErrEqualityUncertain)
}

func TestClassification(t *testing.T) {
	c := toyObjective()
	require.False(t, c.IsEmpty())
	require.True(t, c.HasBilinear())
	require.True(t, c.HasConstQ())
	require.False(t, c.IsDeterministic())
	require.Equal(t, []int{0, 1, 2}, c.VarIndices())
	require.Equal(t, []int{1, 2}, c.ParamIndices())
	require.True(t, expr.New("e", linprog.LessEqual, 0).IsEmpty())
}

func TestWDetObjOnly(t *testing.T) {
	// w occupies [3, 5)
	obj := expr.New("obj", linprog.GreaterEqual, 0)
	obj.AddTermX(0, 1).AddTermX(3, 2)
	require.True(t, obj.WDetObjOnly(3, 5))

	budget := expr.New("budget", linprog.LessEqual, 1)
	budget.AddTermX(3, 1).AddTermX(6, 1)
	require.False(t, budget.WDetObjOnly(3, 5))

	unrelated := expr.New("u", linprog.LessEqual, 1)
	unrelated.AddTermX(6, 1)
	require.True(t, unrelated.WDetObjOnly(3, 5))

	bil := expr.New("b", linprog.GreaterEqual, 0)
	bil.AddTermX(0, 1).AddTermProduct(4, 1, 1)
	require.False(t, bil.WDetObjOnly(3, 5))
}

func TestMapAndReverse(t *testing.T) {
	c := toyObjective()
	shifted := c.MapVars(func(i int) int {
		if i == 0 {
			return 0
		}
		return i + 2
	})
	require.Equal(t, []int{0, 3, 4}, shifted.VarIndices())
	require.Equal(t, []int{0, 1, 2}, c.VarIndices(), "original untouched")

	lifted := c.MapParams(func(p int) int { return p + 2 })
	require.Equal(t, []int{3, 4}, lifted.ParamIndices())

	rev := c.Reversed(1e-4)
	require.Equal(t, linprog.LessEqual, rev.Sense)
	require.InDelta(t, -1e-4, rev.RHS, 1e-15)

	opt := cmpopts.EquateApprox(0, 1e-12)
	require.True(t, cmp.Equal(c, c.Clone(), opt))
	require.Empty(t, cmp.Diff(expr.List{c}, expr.List{c}.Clone(), opt))
}

func TestListMaxViolation(t *testing.T) {
	a := expr.New("a", linprog.LessEqual, 1)
	a.AddTermX(0, 1)
	b := expr.New("b", linprog.LessEqual, 0)
	b.AddTermX(0, 1)
	v, idx := expr.List{a, b}.MaxViolation([]float64{2}, nil)
	require.Equal(t, 1, idx)
	require.InDelta(t, 2, v, 1e-12)

	_, idx = expr.List{}.MaxViolation(nil, nil)
	require.Equal(t, -1, idx)
}

package problem_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/milp"
	"github.com/katalvlaran/kadapt/problem"
)

func TestVarSetLayout(t *testing.T) {
	v := problem.NewVarSet()
	require.NoError(t, v.Add("O", milp.Continuous, 0, 1))
	require.NoError(t, v.Add("z", milp.Binary, 0, 1, 2, 3))
	require.NoError(t, v.SetUndefined("z", 0, 1))

	require.Equal(t, 6, v.Size())
	require.Equal(t, 5, v.TypeSize("z"))
	require.Equal(t, 0, v.FirstDefined("z"))

	i, err := v.Index("z", 0, 2)
	require.NoError(t, err)
	require.Equal(t, 2, i)
	i, err = v.Index("z", 1, 0)
	require.NoError(t, err)
	require.Equal(t, 3, i)

	_, err = v.Index("z", 0, 1)
	require.ErrorIs(t, err, problem.ErrVarIndex)
	_, err = v.Index("z", 2, 0)
	require.ErrorIs(t, err, problem.ErrVarIndex)
	_, err = v.Index("z", 0)
	require.ErrorIs(t, err, problem.ErrVarIndex)
	_, err = v.Index("nope")
	require.ErrorIs(t, err, problem.ErrVarType)

	begin, end := v.Range("z")
	require.Equal(t, 1, begin)
	require.Equal(t, 6, end)

	cols := v.Columns()
	require.Equal(t, "z_1_2", cols[5].Name)
	require.True(t, v.HasInteger())
}

func TestVarSetValidation(t *testing.T) {
	v := problem.NewVarSet()
	require.NoError(t, v.Add("a", milp.Continuous, 0, 1))
	require.ErrorIs(t, v.Add("a", milp.Continuous, 0, 1), problem.ErrVarType)
	require.ErrorIs(t, v.Add("b", milp.VarType('X'), 0, 1), problem.ErrVarType)
	require.ErrorIs(t, v.Add("c", milp.Continuous, 0, 1, 1, 1, 1, 1, 1, 1), problem.ErrVarType)
	require.ErrorIs(t, v.Add("d", milp.Continuous, 0, 1, 0), problem.ErrVarType)
	require.False(t, v.HasInteger())

	c := v.Clone()
	require.NoError(t, v.SetBounds(2, 3, "a"))
	require.Equal(t, 1.0, c.Columns()[0].UB)
}

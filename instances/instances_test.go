// SPDX-License-Identifier: MIT

package instances_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/instances"
	"github.com/katalvlaran/kadapt/problem"
)

func TestTest1Model(t *testing.T) {
	m, err := problem.Build(instances.Test1{})
	require.NoError(t, err)
	require.Equal(t, 1, m.NumFirstStage())
	require.Equal(t, 2, m.NumSecondStage())
	require.Equal(t, 2, m.NumParams())
	require.Len(t, m.CXYQ(0), 2)
	require.Equal(t, []float64{0, 1, -0.5}, m.Nominal())

	require.NoError(t, m.Resize(2))
	require.Equal(t, 3, m.CXYQ(1)[0].X[1].Var, "y0 of policy 1")
}

func TestKnapsackModel(t *testing.T) {
	d, err := instances.GenerateKnapsack(6, 3)
	require.NoError(t, err)
	k, err := instances.NewKnapsack(d)
	require.NoError(t, err)

	m, err := problem.Build(k)
	require.NoError(t, err)
	require.Equal(t, 8, m.NumFirstStage())
	require.Equal(t, 6, m.NumSecondStage())
	require.Equal(t, 4+6, m.NumParams())
	require.False(t, m.Info().WDetObjOnly)
	begin, end := m.WRange()
	require.Equal(t, 2, begin)
	require.Equal(t, 8, end)

	require.True(t, m.UncSet().Contains(m.Nominal(), 1e-9))
	for _, q := range k.Sample(20, 7) {
		require.True(t, m.UncSet().Contains(q, 1e-9))
	}

	w := []bool{true, false, false, true, false, false}
	require.NoError(t, m.SetW(w))
	require.True(t, m.UncSet().IsObserved(5))
	require.False(t, m.UncSet().IsObserved(6))
	require.True(t, m.UncSet().IsObserved(8))

	require.NoError(t, m.Resize(3))
	require.Equal(t, 4*(4+6), m.UncSetK().NumParams())
}

func TestBestBoxModel(t *testing.T) {
	d, err := instances.GenerateBestBox(6, 1)
	require.NoError(t, err)
	require.Equal(t, 3, d.Factors())
	b, err := instances.NewBestBox(d)
	require.NoError(t, err)

	m, err := problem.Build(b)
	require.NoError(t, err)
	require.Equal(t, 1+6+2, m.NumFirstStage())
	require.Len(t, m.CXQ(), 1)
	require.Len(t, m.CW(), 6)
	require.Equal(t, 3+2*6+2, m.NumParams())
	require.True(t, m.UncSet().Contains(m.Nominal(), 1e-9))

	d, err = instances.GenerateBestBox(6, 1, instances.WithPairs(0.15))
	require.NoError(t, err)
	b, err = instances.NewBestBox(d)
	require.NoError(t, err)
	m, err = problem.Build(b)
	require.NoError(t, err)
	require.Equal(t, 1+6+12, m.NumFirstStage())
	require.Equal(t, 3+2*6+2+2*5, m.NumParams())
	require.True(t, m.UncSet().Contains(m.Nominal(), 1e-9))
}

func TestNP1Model(t *testing.T) {
	m, err := problem.Build(instances.NP1{})
	require.NoError(t, err)
	require.Equal(t, 5, m.NumFirstStage())
	require.Equal(t, 2, m.NumSecondStage())
	require.Equal(t, 2, m.NumParams())
	require.True(t, m.Info().WDetObjOnly)
	require.Len(t, m.CXYQ(0), 1)
	require.Len(t, m.CW(), 2)
	require.True(t, m.UncSet().Contains(m.Nominal(), 1e-9))
	require.False(t, m.UncSet().Contains([]float64{0, 1, 0}, 1e-9), "0.436 > 0.275")

	require.NoError(t, m.SetW([]bool{false, true}))
	require.False(t, m.UncSet().IsObserved(1))
	require.True(t, m.UncSet().IsObserved(2))
}

func TestElicitationModel(t *testing.T) {
	d, err := instances.GenerateElicitation(6, 4)
	require.NoError(t, err)
	require.Equal(t, 3, d.Factors())
	require.Equal(t, 2, d.Queries)
	e, err := instances.NewElicitation(d)
	require.NoError(t, err)

	m, err := problem.Build(e)
	require.NoError(t, err)
	require.Equal(t, 2+2*6, m.NumFirstStage())
	require.Equal(t, 6, m.NumSecondStage())
	require.Equal(t, 3+6+1+6, m.NumParams())
	require.True(t, m.Info().ObjectiveUnc)
	require.False(t, m.Info().WDetObjOnly)
	require.Len(t, m.CX(), 1)
	require.True(t, m.UncSet().Contains(m.Nominal(), 1e-9))
	begin, end := m.WRange()
	require.Equal(t, 8, begin)
	require.Equal(t, 14, end)

	d, err = instances.GenerateElicitation(6, 4, instances.WithNoise(0.2), instances.WithQueries(3))
	require.NoError(t, err)
	e, err = instances.NewElicitation(d)
	require.NoError(t, err)
	m, err = problem.Build(e)
	require.NoError(t, err)
	require.Equal(t, 3+3*6+1+6, m.NumParams())
	require.True(t, m.UncSet().Contains(m.Nominal(), 1e-9))

	_, err = instances.GenerateElicitation(5, 1, instances.WithQueries(6))
	require.ErrorIs(t, err, instances.ErrData)
	d.Features[0][0] = -1
	_, err = instances.NewElicitation(d)
	require.ErrorIs(t, err, instances.ErrData)
}

func TestGenerateDeterministic(t *testing.T) {
	a, err := instances.GenerateKnapsack(7, 11, instances.WithTheta(0.5))
	require.NoError(t, err)
	b, err := instances.GenerateKnapsack(7, 11, instances.WithTheta(0.5))
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(a, b))
	require.Equal(t, "cpb-n7-s11-t.opt", a.SolFile)
	for i := range a.Ksi {
		sum := 0.0
		for _, v := range a.Ksi[i] {
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		require.InDelta(t, 1, sum, 1e-12)
	}

	c, err := instances.GenerateKnapsack(7, 12)
	require.NoError(t, err)
	require.NotEqual(t, a.Cost, c.Cost)

	_, err = instances.GenerateKnapsack(3, 1)
	require.ErrorIs(t, err, instances.ErrData)
}

func TestYAMLRoundTrip(t *testing.T) {
	kd, err := instances.GenerateKnapsack(5, 2)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, instances.SaveKnapsack(&buf, kd))
	back, err := instances.LoadKnapsack(&buf)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(kd, back, cmpopts.EquateApprox(0, 1e-12)))

	bd, err := instances.GenerateBestBox(5, 2, instances.WithDROSize(0.5))
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, instances.SaveBestBox(&buf, bd))
	bback, err := instances.LoadBestBox(&buf)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(bd, bback, cmpopts.EquateApprox(0, 1e-12)))

	ed, err := instances.GenerateElicitation(5, 2, instances.WithNoise(0.1))
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, instances.SaveElicitation(&buf, ed))
	eback, err := instances.LoadElicitation(&buf)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(ed, eback, cmpopts.EquateApprox(0, 1e-12)))

	_, err = instances.LoadKnapsack(bytes.NewBufferString("n: 2\ncost: [1]\n"))
	require.ErrorIs(t, err, instances.ErrData)
}

func TestGenerateKinds(t *testing.T) {
	for _, kind := range instances.Kinds() {
		s, err := instances.Generate(kind, 5, 1)
		require.NoError(t, err, kind)
		_, err = problem.Build(s)
		require.NoError(t, err, kind)
	}
	_, err := instances.Generate("nope", 5, 1)
	require.ErrorIs(t, err, instances.ErrKind)
}

func TestOptionPanics(t *testing.T) {
	require.Panics(t, func() { instances.WithFactors(0) })
	require.Panics(t, func() { instances.WithBudgetRatio(0) })
	require.Panics(t, func() { instances.WithTheta(2) })
	require.Panics(t, func() { instances.WithPsiWeight(-1) })
	require.Panics(t, func() { instances.WithDROSize(-1) })
	require.Panics(t, func() { instances.WithPairs(-1) })
	require.Panics(t, func() { instances.WithQueries(-1) })
	require.Panics(t, func() { instances.WithNoise(-0.1) })
}

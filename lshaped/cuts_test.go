package lshaped

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// point builds a master vector [θ | w].
func point(theta float64, w ...bool) []float64 {
	x := []float64{theta}
	for _, v := range w {
		if v {
			x = append(x, 1)
		} else {
			x = append(x, 0)
		}
	}

	return x
}

func TestOptimalityCut(t *testing.T) {
	w := []bool{true, false, true}
	r := optimalityCut(w, 5, 1)

	require.LessOrEqual(t, r.Violation(point(5, w...)), 1e-12)
	require.Greater(t, r.Violation(point(4.9, w...)), 0.0)
	// one flip relaxes the row to θ ≥ L
	require.LessOrEqual(t, r.Violation(point(1, true, true, true)), 1e-12)
	require.LessOrEqual(t, r.Violation(point(1, false, false, true)), 1e-12)
}

func TestInformationCut(t *testing.T) {
	w := []bool{true, false, true}
	r := informationCut(w, 5, 1)

	require.Greater(t, r.Violation(point(4, true, false, false)), 0.0, "subset of ŵ")
	require.Greater(t, r.Violation(point(4, w...)), 0.0)
	require.LessOrEqual(t, r.Violation(point(1, true, true, true)), 1e-12, "superset of ŵ")
}

func TestFeasibilityAndNoGoodCuts(t *testing.T) {
	w := []bool{true, false, true}
	feas := feasibilityCut(w)
	require.Greater(t, feas.Violation(point(0, w...)), 0.0)
	require.Greater(t, feas.Violation(point(0, true, true, true)), 0.0, "superset")
	require.LessOrEqual(t, feas.Violation(point(0, true, false, false)), 0.0)

	ng := noGoodCut(w)
	require.Greater(t, ng.Violation(point(0, w...)), 0.0)
	require.LessOrEqual(t, ng.Violation(point(0, true, true, true)), 0.0)
	require.LessOrEqual(t, ng.Violation(point(0, false, false, true)), 0.0)

	empty := feasibilityCut([]bool{false, false})
	require.Equal(t, noGoodCut([]bool{false, false}), empty)
	require.Greater(t, empty.Violation(point(0, false, false)), 0.0)
	require.LessOrEqual(t, empty.Violation(point(0, false, true)), 0.0)
}

func TestWCache(t *testing.T) {
	c := newWCache(10)
	a := []bool{true, false, false, false, false, false, false, false, false, true}
	b := []bool{true, false, false, false, false, false, false, false, false, false}

	require.True(t, c.add(a))
	require.False(t, c.add(a))
	require.True(t, c.has(a))
	require.False(t, c.has(b))
	require.True(t, c.add(b))
	require.Equal(t, 2, c.len())

	empty := newWCache(0)
	require.True(t, empty.add(nil))
	require.False(t, empty.add([]bool{}))
}

func TestPercentGap(t *testing.T) {
	require.InDelta(t, 10, percentGap(10, 9), 1e-6)
	require.InDelta(t, 0, percentGap(0, 0), 1e-12)
	require.True(t, math.IsInf(percentGap(math.Inf(1), 1), 1))
}

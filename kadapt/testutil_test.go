package kadapt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/instances"
	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/problem"
)

const tol = 1e-6

// test1 optima: nominal 0.5 with y = (1, 1), static robust 1.25 with
// y = (1, 1), two policies (1, 1) and (1, 0) reach 1.0.
const (
	test1Nominal = 0.5
	test1Static  = 1.25
	test1TwoPol  = 1.0
)

func newTest1(t *testing.T, mutate ...func(*kadapt.Options)) *kadapt.Solver {
	t.Helper()
	m, err := problem.Build(instances.Test1{})
	require.NoError(t, err)
	opts := kadapt.DefaultOptions()
	for _, f := range mutate {
		f(&opts)
	}
	s, err := kadapt.New(m, opts)
	require.NoError(t, err)

	return s
}

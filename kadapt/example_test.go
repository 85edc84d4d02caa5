package kadapt_test

import (
	"context"
	"fmt"

	"github.com/katalvlaran/kadapt/instances"
	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/problem"
)

// ExampleSolver_SolveKAdaptability compares one and two policies on the
// two-variable test problem.
func ExampleSolver_SolveKAdaptability() {
	m, err := problem.Build(instances.Test1{})
	if err != nil {
		panic(err)
	}
	s, err := kadapt.New(m, kadapt.DefaultOptions())
	if err != nil {
		panic(err)
	}
	for K := 1; K <= 2; K++ {
		res, err := s.SolveKAdaptability(context.Background(), K, false)
		if err != nil {
			panic(err)
		}
		fmt.Printf("K=%d %.2f\n", K, res.Objective)
	}
	// Output:
	// K=1 1.25
	// K=2 1.00
}

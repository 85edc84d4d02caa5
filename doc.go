// Package kadapt is the root of a solver for two-stage robust optimization
// problems under the K-adaptability approximation: the first-stage decision
// is fixed before the uncertain parameters are revealed, and the second stage
// may pick the best of K policies chosen up front.
//
// 🚀 What is inside?
//
//	linprog/       bounded-variable LP solver with dual values
//	milp/          branch-and-bound MILP engine with node callbacks
//	expr/          affine constraint expressions over variables and parameters
//	uncertainty/   polyhedral uncertainty sets, lifting and observation links
//	problem/       problem model built from a Spec, resize to K policies
//	kadapt/        K-adaptability branch-and-bound, separation, static solves
//	lshaped/       L-shaped decomposition over the observation decisions w
//	instances/     Test1, covering knapsack and best-box generators
//	config/, logging/, metrics/, report/   run settings and outputs
//	cmd/kadapt     command-line driver
//
// Quick example:
//
//	m, _ := problem.Build(instances.Test1{})
//	s, _ := kadapt.New(m, kadapt.DefaultOptions())
//	res, _ := s.SolveKAdaptability(ctx, 2, false)
//	// res.Objective == 1, two policies (1,1) and (1,0)
//
//	go install github.com/katalvlaran/kadapt/cmd/kadapt@latest
package kadapt

// SPDX-License-Identifier: MIT

// Package instances provides concrete problem kinds for the K-adaptability
// solver: each kind is a value type implementing problem.Spec.
//
//	Test1     toy model with two parameters and two binary recourse columns
//	Knapsack  decision-dependent investment: early investment w_i reveals the
//	          profit of project i, late investment y_i earns a fraction theta
//	BestBox   box opening: opening box i reveals its profit and cost, the
//	          opening budget is uncertain, one box may be taken at the end
//	NP1       two-item instance of the hardness reduction, free observations
//	Elicitation  preference elicitation: rating item i (w_i) reveals its
//	          disutility, one item is recommended at the end
//
// Parameter layout. With F risk factors and N items the parameters of U are
//
//	Knapsack  q[1..F] factors, q[F+i] profit of project i (i = 1..N)
//	BestBox   q[1..F] factors, q[F+1+i] profit, q[F+1+N+i] cost of box i
//	          (i = 0..N−1), q[F+1+2N], q[F+2+2N] ambiguity deviations, then the
//	          optional pairwise deviations
//	Elicitation  q[1..F] factors, q[F+1+i] disutility of item i, optional
//	          noise and absolute noise blocks of N each, then the total and
//	          the N single deviations
//
// Data is generated deterministically from a seed (GenerateKnapsack,
// GenerateBestBox, GenerateElicitation, tuned with functional Options) or
// read from YAML.
package instances

// Package kadapt solves K-adaptability problems of two-stage robust models
// by branch-and-bound over the scenario-to-policy assignment.
//
// A candidate x for K policies is laid out as in package problem: the first
// stage block followed by K copies of the second stage block. x is
// K-adaptable feasible when the deterministic rows hold for every policy,
// the first stage uncertain rows C_XQ hold for every scenario of U, and for
// every scenario some policy satisfies all of its rows C_XYQ[k].
//
// Search. The root LP enforces the nominal scenario on policy 0. Whenever an
// integral point is not K-adaptable feasible, the separation oracle returns
// a violating scenario (a label) and the node is split into one child per
// policy that may take the label: policies already in use plus the first
// unused one. The underlying milp engine only creates two children per node,
// so a K-ary split is emulated by a chain of dummy nodes, each holding the
// pending label and the number of policies still to try.
//
// Decision dependence. When the model observes parameters through w, a
// policy is chosen after the observed components are revealed. The
// separation then runs over the lifted set in which every policy sees its
// own replica of the unobserved components, and policies assigned to a
// label are kept robust against every scenario sharing its observations.
//
// Separation strategies: enumeration of row tuples, a big-M MILP, and an
// indicator MILP (the default). Objective uncertainty (one uncertain row per
// policy) is always handled by a single max-min LP.
//
// Why branch over assignments?
//
//   - The K-adaptable problem is a min-max-min whose inner min picks a policy
//     per scenario; fixing that choice on a finite scenario set turns it into
//     one MILP over K copies of the second stage.
//   - Only scenarios that actually separate an incumbent enter the tree, so
//     the number of labels stays small in practice even when U is not.
//   - Symmetry between unused policies is broken by allowing a label to open
//     one new policy only.
//
// Other schemes on the same model:
//
//	SolveDET, SolveScSRO   one policy against a fixed finite scenario set
//	SolveSRO               static robust by lazy cutting planes over U
//	SolveSRODuality        static robust as one MILP with every uncertain row
//	                       replaced by its LP dual over U
//	SolveMinMaxMin         objective uncertainty only: collect scenario-optimal
//	                       policies until their hull reaches the worst-case
//	                       value, keep the K heaviest of a convex combination
//	SolveFixed, Sweep      re-solve the second stage for a given first stage,
//	                       or over a grid of values of one column family
//
// Complexity. Let P be the number of parameters, m the rows per policy and L
// the number of labels collected on a root-to-leaf path.
//
//	node LP                  O(K·|Y| + |X|) columns, O(K·m + L·m) rows
//	separation, enumerate    up to m^K LPs over U, each O(P) columns
//	separation, indicator    one MILP with O(K·m) binaries over U
//	tree size                at most K^L leaves before fathoming
//	WorstCase (general)      2^K MILPs, one per subset of feasible policies
//	SolveMinMaxMin           one DET MILP and one max-min LP per collected
//	                         policy, one combination LP
//
// Errors:
//
//	ErrDimension    vector length does not match the policy layout
//	ErrPolicyIndex  policy index outside 0..K−1
//	ErrPolicies     policy count below one
//	ErrSeparation   an auxiliary MILP ended without an optimum (wrapped in CodeError)
//	ErrNoWarmStart  heuristic mode without a K−1 policy solution
//	ErrMinMaxMin    min-max-min requested outside objective-only uncertainty
//	ErrCombination  no convex combination of the collected policies reaches z*
package kadapt

// SPDX-License-Identifier: MIT

// Package milp is a small, deterministic mixed-integer branch-and-bound solver
// with a callback API, built on the LP layer in package linprog.
//
// The solver only ever branches two ways. Callers that need richer branching
// (K-ary splits) stage it as a cascade of binary splits through the Branch
// callback and the opaque per-node handle.
//
// Search:
//   - Best-bound node selection; ties go to the deeper node, then the older one.
//   - Native branching on the most fractional integer variable.
//   - A node is fathomed when its LP bound is within Options.RelGap/AbsGap of
//     the incumbent.
//   - Time limit, open-node limit and context cancellation are checked once
//     per processed node.
//
// Callbacks (all optional, see Callbacks):
//
//	NodeSelect  node taken from the queue, before its LP is solved
//	Cut         after each LP solve; returned rows are added and the LP re-solved
//	Heuristic   after the cut loop; proposes a full integral solution
//	Incumbent   on an integral LP solution; may reject it
//	Branch      on a fractional or rejected node; may replace the native children
//	NodeDelete  whenever a node leaves the tree
//
// Indicator constraints are linearized with big-M values derived from the
// variable bounds (Model.AddIndicator), so every variable in an indicator row
// must be bounded.
//
// Why an in-house solver?
//
//   - The K-adaptability search needs to own node selection, branching and
//     the per-node handle; general MILP libraries in Go expose none of these.
//   - Determinism: with equal inputs the tree, the incumbents and the order
//     of callbacks are identical from run to run.
//
// Statuses follow the usual solver conventions: Optimal and OptimalTol (gap
// closed within tolerance), Infeasible, InfOrUnbd, and for every stop reason
// (time, memory or node limit, abort) a Feas and an Infeas variant telling
// whether an incumbent exists.
//
// Complexity. Each processed node costs one bounded-simplex LP solve (see
// package linprog) plus one re-solve per cut round. The queue is a binary
// heap: O(log N) per push and pop for N open nodes. Node LPs are rebuilt
// from the model and the node bounds, O(rows·cols) per node.
package milp

// Package lshaped optimizes the observation decisions w of a
// decision-dependent K-adaptability problem by an L-shaped decomposition.
//
// The master problem holds an epigraph variable θ for the recourse value
// φ(w) together with the binary w columns and their deterministic costs:
//
//	min θ + Σ cw_j·w_j
//	s.t. θ ≥ L, w ∈ {0,1}^n, accumulated cuts
//
// L is the nominal optimum with w free, a lower bound on φ(w) for every w.
// Rows of the first stage that only involve w are projected into the master:
// uncertain rows are robustified lazily against U, deterministic rows are
// tightened by optimizing their remaining part.
//
// Each candidate w is evaluated once by a K-adaptability solve. Depending on
// the outcome one or more cuts go back to the master:
//
//   - optimality: θ ≥ φ(ŵ) whenever w = ŵ, relaxed by (φ(ŵ) − L) per
//     flipped entry;
//   - information: θ ≥ φ(ŵ) for every w observing at most what ŵ observes,
//     valid when w only enters deterministic objective terms;
//   - subgradient: a linearization of the scenario LP relaxation around ŵ,
//     built from its row duals;
//   - feasibility: excludes every w observing at least what an infeasible ŵ
//     observes;
//   - no-good: excludes exactly ŵ when its evaluation was cut off.
//
// Solve alternates master and subproblem solves until the relative gap
// closes. SolveBranchAndCut runs a single master search and evaluates every
// new integral w from a lazy cut callback.
//
// When no w column observes a parameter and w enters no uncertain or policy
// row, φ does not depend on w. The first evaluation then adds the flat cut
// θ ≥ φ and every later pattern is priced from the cached value without a
// subproblem solve, so the loop ends after one evaluation.
//
// Statuses. Only an infeasible master closes the loop with the incumbent as
// proven optimum. A master or subproblem stopped by the time limit maps to
// TimeLimFeas or TimeLimInfeas, a cancelled context to AbortFeas or
// AbortInfeas (TimeLim when the context deadline passed), depending on
// whether an incumbent exists. The reported bound is the best one proven.
//
// Why decompose over w?
//
//   - φ(w) needs a full K-adaptability solve, far too expensive to embed in
//     one MILP; the master only sees it through cuts.
//   - Patterns are evaluated at most once: a cache keyed by the bit pattern
//     answers repeated proposals.
//   - Information cuts cover every pattern observing less, which prunes
//     exponentially many patterns per evaluation when they are valid.
//
// Complexity. With n observation columns the loop runs at most 2^n
// iterations (one per pattern, cached afterwards); each costs one master
// MILP over n binaries plus the accumulated cuts, and one K-adaptability
// solve. Cut generation is O(n) per cut, the subgradient cut adds one
// scenario LP solve.
package lshaped

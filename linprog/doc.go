// SPDX-License-Identifier: MIT

// Package linprog is the linear-programming layer of kadapt.
//
// It models an LP in the natural "modelling" form
//
//	min/max  cᵀx
//	s.t.     aᵢᵀx {≤,≥,=} bᵢ      for every row i
//	         l ≤ x ≤ u            (bounds may be ±Inf)
//
// and solves it with a dense bounded-variable primal simplex built on
// gonum's mat and floats packages.
//
// Every row i gets a logical column sᵢ = aᵢᵀx carrying the row bounds, so
//   - the constraint matrix [A | −I] always has full row rank, which keeps
//     duplicate rows, empty rows and fixed columns harmless;
//   - variable bounds never become rows and free variables are never split.
//
// Phase one starts from the slack basis with one artificial per violated
// row. The ratio test is the two-pass Harris test with bound flips; after a
// run of degenerate pivots the solver switches to Bland's rule until it makes
// progress again. The basis is refactorized with gonum's LU every
// Options.Refactor pivots.
//
// Solution.Duals[i] is the derivative of the optimal objective with respect
// to bᵢ, read off the reduced cost of the logical column of row i.
//
// Complexity:
//   - Memory: two dense m × (n + 2m) matrices.
//   - Each pivot costs O(m·(n + 2m)); a reinversion costs O(m³ + m²·n).
package linprog

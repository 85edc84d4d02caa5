// Package expr holds the constraint expressions of two-stage robust models.
//
// A Constraint reads
//
//	Const + Σ aᵢ·x[i] + Σ bₚ·q[p] + Σ cᵢₚ·x[i]·q[p]   (≤ | ≥ | =)   RHS
//
// where x is a candidate solution and q a scenario. q[0] is reserved for the
// epigraph slot, so parameter indices start at 1.
//
// For a fixed q the constraint is linear in x (Deterministic); for a fixed x
// it is affine in q (Stochastic, ViolationAffine). Violation is positive when
// the row is violated: rhs − lhs for ≥ rows, lhs − rhs for ≤ rows and
// |lhs − rhs| for equalities.
package expr

// Package problem describes two-stage robust optimization models for the
// K-adaptability solver.
//
// A Model owns
//   - the first-stage variable block X (the epigraph variable O is always
//     X's first column) and the second-stage block Y, replicated once per
//     policy;
//   - the constraint families C_X, C_XQ, B_X (first stage) and, per policy k,
//     C_XY[k], C_XYQ[k], B_Y[k];
//   - the deterministic costs C_W of the observation variables w;
//   - the uncertainty set U and its lifted version Uk.
//
// Concrete problem kinds implement Spec; Build assembles a 1-policy Model
// and Resize grows or shrinks the per-policy families.
//
// Linear layout of a candidate x for K policies:
//
//	[ X (NumFirstStage) | Y policy 0 | Y policy 1 | ... | Y policy K−1 ]
//
// MapK translates policy-0 indices to policy k and MapParamK translates
// parameter indices into the replica of the lifted set seen by policy k.
//
// Consistency. CheckConsistency verifies the structural rules every Model must
// satisfy (family sizes, term kinds per family, integrality flag, the
// WDetObjOnly flag against a scan over the w index range). A violation is a
// bug in the Spec; Build and Resize panic on it.
package problem

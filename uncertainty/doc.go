// Package uncertainty implements polyhedral uncertainty sets for two-stage
// robust models, including the decision-dependent lifting used when several
// policies observe different realizations of the same scenario.
//
// Scenarios are dense vectors q of length 1+NumParams. q[0] is the epigraph
// slot and is not a parameter; parameter p lives at q[p] for p = 1..NumParams.
//
// Observation. SetObsVar links parameter p to an observation variable w_j.
// SetW takes the values of the w variables and marks p as observed iff
// w_j == 1. The per-parameter observation vector is either empty (no decision
// dependence) or has exactly NumParams entries.
//
// Lifting. Lift(K) with K ≥ 2 and a non-empty observation vector returns a set
// over (K+1)·NumParams parameters: replica 0 is the true scenario and replica
// l = 1..K is what policy l−1 sees. Every replica carries the original bounds
// and facets, and replica l is tied to replica 0 by ξ0ᵢ − ξlᵢ = 0 for every
// observed i. Otherwise Lift returns a plain copy.
//
// XiBar. SetXiBar fixes the observed components of the set to those of a
// given scenario; every optimization then only ranges over the unobserved
// components. Callers must ResetXiBar before handing the set back.
package uncertainty

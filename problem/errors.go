package problem

import "errors"

var (
	// ErrVarType is returned for an unknown or duplicate variable type name.
	ErrVarType = errors.New("problem: unknown or duplicate variable type")

	// ErrVarIndex is returned when a variable index is out of range or undefined.
	ErrVarIndex = errors.New("problem: variable index out of range")

	// ErrParamIndex is returned when a parameter index exceeds the parameter count.
	ErrParamIndex = errors.New("problem: parameter index out of range")

	// ErrPolicies is returned for a policy count below one.
	ErrPolicies = errors.New("problem: policy count must be at least one")

	// ErrDimension is returned when an input vector has the wrong length.
	ErrDimension = errors.New("problem: dimension mismatch")

	// ErrInconsistent is wrapped by CheckConsistency.
	ErrInconsistent = errors.New("problem: model inconsistent with design")
)

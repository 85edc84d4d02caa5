package kadapt

import (
	"errors"
	"fmt"
)

var (
	// ErrDimension is returned when a solution vector does not match the
	// layout of the requested number of policies.
	ErrDimension = errors.New("kadapt: solution vector has wrong length")

	// ErrPolicyIndex is returned for a policy index outside [0, K).
	ErrPolicyIndex = errors.New("kadapt: policy index out of range")

	// ErrPolicies is returned for a policy count below one.
	ErrPolicies = errors.New("kadapt: policy count must be at least one")

	// ErrSeparation is returned when a separation problem ends with a status
	// other than optimal.
	ErrSeparation = errors.New("kadapt: separation failed")

	// ErrNoWarmStart is returned by heuristic mode when no (K−1)-policy
	// solution is available.
	ErrNoWarmStart = errors.New("kadapt: heuristic mode needs a K−1 policy solution")
)

// CodeError carries the numeric code of a solver failure, printed by the
// driver as "error number N". It unwraps to Err.
type CodeError struct {
	Code int
	Op   string
	Err  error
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("kadapt: %s: error number %d: %v", e.Op, e.Code, e.Err)
}

func (e *CodeError) Unwrap() error { return e.Err }

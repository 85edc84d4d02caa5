// SPDX-License-Identifier: MIT

package milp

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/linprog"
)

var (
	// ErrVarType is returned for a variable type other than C, B or I.
	ErrVarType = errors.New("milp: invalid variable type")

	// ErrNotBinary is returned when an indicator references a non-binary variable.
	ErrNotBinary = errors.New("milp: indicator variable is not binary")

	// ErrIndicatorUnbounded is returned when a big-M value cannot be derived
	// because a variable of the indicator row has an infinite bound.
	ErrIndicatorUnbounded = errors.New("milp: indicator row has unbounded activity")

	// ErrCallback wraps an error returned by a user callback.
	ErrCallback = errors.New("milp: callback failed")

	// ErrTooManyChildren is returned when Branch proposes more than two children.
	ErrTooManyChildren = errors.New("milp: branch callback returned more than two children")

	// ErrUnexpectedStatus is returned by callers that receive a Status they do not handle.
	ErrUnexpectedStatus = errors.New("milp: unexpected solver status")
)

// VarType is the column type.
type VarType byte

const (
	Continuous VarType = 'C'
	Binary     VarType = 'B'
	Integer    VarType = 'I'
)

// Status is the termination state of Solve.
type Status int

const (
	Optimal Status = iota + 1
	OptimalTol
	Infeasible
	InfOrUnbd
	TimeLimFeas
	TimeLimInfeas
	MemLimFeas
	MemLimInfeas
	AbortFeas
	AbortInfeas
)

var statusNames = map[Status]string{
	Optimal:       "Optimal",
	OptimalTol:    "OptimalTol",
	Infeasible:    "Infeasible",
	InfOrUnbd:     "InfOrUnbd",
	TimeLimFeas:   "TimeLimFeas",
	TimeLimInfeas: "TimeLimInfeas",
	MemLimFeas:    "MemLimFeas",
	MemLimInfeas:  "MemLimInfeas",
	AbortFeas:     "AbortFeas",
	AbortInfeas:   "AbortInfeas",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// HasSolution reports whether the status comes with an incumbent.
func (s Status) HasSolution() bool {
	switch s {
	case Optimal, OptimalTol, TimeLimFeas, MemLimFeas, AbortFeas:
		return true
	}

	return false
}

// Result is the outcome of Solve. X is nil when no incumbent exists.
type Result struct {
	Status    Status
	X         []float64
	Objective float64
	BestBound float64
	Gap       float64
	Nodes     int
	Elapsed   time.Duration
}

// BoundKind selects which bound a BoundChange sets.
type BoundKind byte

const (
	Lower BoundKind = 'L'
	Upper BoundKind = 'U'
	Both  BoundKind = 'B'
)

// BoundChange tightens one variable bound in a child node.
type BoundChange struct {
	Var   int
	Kind  BoundKind
	Value float64
}

// Child describes one node created by a branch. Rows are local to the
// child's subtree.
type Child struct {
	Bounds []BoundChange
	Rows   []linprog.Row
	Handle any
}

// Cut is a row returned by the Cut callback. Local cuts apply to the
// current node's subtree only; the rest join the global pool.
type Cut struct {
	Row   linprog.Row
	Local bool
}

// Callbacks groups the optional user hooks. A non-nil error from any hook
// stops the search and is returned wrapped in ErrCallback.
type Callbacks struct {
	NodeSelect func(n *Node)
	Cut        func(n *Node, x []float64) ([]Cut, error)
	Heuristic  func(n *Node, x []float64) ([]float64, bool, error)
	Incumbent  func(n *Node, x []float64, obj float64) (bool, error)
	// Branch receives the native proposal (empty for a rejected integral
	// node). handled == false keeps the native children.
	Branch     func(n *Node, native []Child) (children []Child, handled bool, err error)
	NodeDelete func(handle any)
}

// Options configures Solve.
//   - TimeLimit: wall-clock budget, 0 means none.
//   - MaxOpenNodes: open-node cap, reported as MemLim*, 0 means none.
//   - RelGap, AbsGap: fathoming tolerances against the incumbent.
//   - IntTol: integrality tolerance.
//   - FeasTol: row tolerance for heuristic solutions and cut checks.
//   - MaxCutRounds: cut-loop cap on fractional LP solutions.
//   - LazyCuts: call Cut only on integral LP solutions.
type Options struct {
	TimeLimit    time.Duration
	MaxOpenNodes int
	RelGap       float64
	AbsGap       float64
	IntTol       float64
	FeasTol      float64
	MaxCutRounds int
	LazyCuts     bool
	LP           linprog.Options
	Callbacks    Callbacks
	Logger       *zap.Logger
}

// DefaultOptions returns the defaults used throughout kadapt.
func DefaultOptions() Options {
	return Options{
		RelGap:       1e-4,
		AbsGap:       1e-6,
		IntTol:       1e-5,
		FeasTol:      1e-6,
		MaxCutRounds: 20,
		LP:           linprog.DefaultOptions(),
	}
}

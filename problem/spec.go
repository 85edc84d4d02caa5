package problem

import (
	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// Info carries the design flags and sizes a Spec declares about itself.
// CheckConsistency holds the built Model to them.
type Info struct {
	// HasInteger is set when any column is binary or integer.
	HasInteger bool
	// ObjectiveUnc is set when uncertainty enters the objective row only:
	// C_XQ is empty and every C_XYQ[k] holds exactly one row.
	ObjectiveUnc bool
	// ExistsFirstStage is set when X has columns besides O.
	ExistsFirstStage bool
	// WDetObjOnly is set when the w variables appear only as deterministic
	// objective terms.
	WDetObjOnly bool

	NumFirstStage  int
	NumSecondStage int

	// SolFileName names the solution file of a run.
	SolFileName string
}

// FirstStage holds the policy-independent families built by MakeConsX.
type FirstStage struct {
	BX  expr.List
	CX  expr.List
	CXQ expr.List
	// CW holds the deterministic cost of each defined w column (may be empty).
	CW []float64
}

// Policy holds the families of one policy built by MakeConsY.
type Policy struct {
	BY   expr.List
	CXY  expr.List
	CXYQ expr.List
}

// Spec builds one problem kind. Build calls MakeUncSet, MakeVars, MakeConsX
// and MakeConsY(0) in that order; Resize calls MakeConsY for new policies.
//
// MakeConsX and MakeConsY receive the partially built Model so they can use
// VarIndex1, VarIndex2 and the parameter count. Implementations are expected
// to be value types holding immutable instance data.
type Spec interface {
	Info() Info
	MakeUncSet(u *uncertainty.Set) error
	MakeVars(x, y *VarSet) error
	MakeConsX(m *Model) (FirstStage, error)
	MakeConsY(m *Model, k int) (Policy, error)
}

package problem

import (
	"fmt"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// Model is a built two-stage robust problem with K policies.
type Model struct {
	spec Spec
	info Info

	u  *uncertainty.Set
	uk *uncertainty.Set

	x, y *VarSet
	// wOrig holds the w columns as declared, for ResetW.
	wOrig []Column

	bx, cx, cxq expr.List
	cw          []float64

	by, cxy, cxyq []expr.List
}

// Build assembles a 1-policy model from spec and checks it.
func Build(spec Spec) (*Model, error) {
	m := &Model{
		spec: spec,
		info: spec.Info(),
		u:    uncertainty.New(),
		x:    NewVarSet(),
		y:    NewVarSet(),
	}
	if err := spec.MakeUncSet(m.u); err != nil {
		return nil, fmt.Errorf("problem: uncertainty set: %w", err)
	}
	if err := spec.MakeVars(m.x, m.y); err != nil {
		return nil, fmt.Errorf("problem: variables: %w", err)
	}
	begin, end := m.x.Range("w")
	m.wOrig = append(m.wOrig, m.x.Columns()[begin:end]...)
	fs, err := spec.MakeConsX(m)
	if err != nil {
		return nil, fmt.Errorf("problem: first-stage constraints: %w", err)
	}
	if len(fs.CW) != 0 && len(fs.CW) != m.x.TypeSize("w") {
		return nil, fmt.Errorf("%w: %d w costs for %d w columns", ErrDimension, len(fs.CW), m.x.TypeSize("w"))
	}
	m.bx, m.cx, m.cxq, m.cw = fs.BX, fs.CX, fs.CXQ, fs.CW
	if err := m.grow(1); err != nil {
		return nil, err
	}
	m.uk = m.u.Lift(1)
	if err := m.CheckConsistency(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Model) grow(K int) error {
	for k := len(m.cxy); k < K; k++ {
		p, err := m.spec.MakeConsY(m, k)
		if err != nil {
			return fmt.Errorf("problem: policy %d constraints: %w", k, err)
		}
		m.by = append(m.by, p.BY)
		m.cxy = append(m.cxy, p.CXY)
		m.cxyq = append(m.cxyq, p.CXYQ)
	}

	return nil
}

// Resize sets the number of policies to K, building or dropping per-policy
// families, and re-derives the lifted set. It panics if the resized model
// breaks a design rule, since that is a bug in the Spec.
func (m *Model) Resize(K int) error {
	if K < 1 {
		return ErrPolicies
	}
	m.mustConsistent()
	if K > len(m.cxy) {
		if err := m.grow(K); err != nil {
			return err
		}
	} else {
		m.by, m.cxy, m.cxyq = m.by[:K], m.cxy[:K], m.cxyq[:K]
	}
	m.MakeUncSetK(K)
	m.mustConsistent()

	return nil
}

// SetLPOptions sets the LP options of U and Uk; lifted sets inherit them.
func (m *Model) SetLPOptions(o linprog.Options) {
	m.u.SetLPOptions(o)
	m.uk.SetLPOptions(o)
}

// MakeUncSetK replaces Uk with the lifted set for K policies.
func (m *Model) MakeUncSetK(K int) { m.uk = m.u.Lift(K) }

// SetW fixes the w columns to w and installs the matching observation vector
// in U, then re-derives Uk. When the model declares no w columns only U is
// updated.
func (m *Model) SetW(w []bool) error {
	wf := make([]float64, len(w))
	for i, b := range w {
		if b {
			wf[i] = 1
		}
	}
	if n := m.x.TypeSize("w"); n > 0 {
		if len(w) != n {
			return fmt.Errorf("%w: w has %d entries, want %d", ErrDimension, len(w), n)
		}
		start := m.x.FirstDefined("w")
		for i, v := range wf {
			if err := m.x.SetBounds(v, v, "w", i+start); err != nil {
				return err
			}
		}
	}
	if err := m.u.SetW(wf); err != nil {
		return err
	}
	m.MakeUncSetK(m.NumPolicies())

	return nil
}

// ResetW restores the declared bounds of the w columns and clears the
// observation vector.
func (m *Model) ResetW() error {
	start := m.x.FirstDefined("w")
	for i, c := range m.wOrig {
		if err := m.x.SetBounds(c.LB, c.UB, "w", i+start); err != nil {
			return fmt.Errorf("problem: reset w[%d]: %w", i, err)
		}
	}
	if err := m.u.SetW(nil); err != nil {
		return err
	}
	m.MakeUncSetK(m.NumPolicies())

	return nil
}

// W returns the current observation vector of U.
func (m *Model) W() []bool { return m.u.W() }

// WRange returns the linear range [begin, end) of the defined w columns.
func (m *Model) WRange() (int, int) { return m.x.Range("w") }

// VarIndex1 returns the index of a first-stage column. It panics on a bad
// name or index.
func (m *Model) VarIndex1(name string, idx ...int) int { return m.x.MustIndex(name, idx...) }

// VarIndex2 returns the index of a second-stage column of policy k. It panics
// on a bad name or index.
func (m *Model) VarIndex2(k int, name string, idx ...int) int {
	return m.NumFirstStage() + k*m.NumSecondStage() + m.y.MustIndex(name, idx...)
}

// Info returns the declared design flags.
func (m *Model) Info() Info { return m.info }

// SolFileName returns the solution file name.
func (m *Model) SolFileName() string { return m.info.SolFileName }

// NumFirstStage returns the number of first-stage columns, O included.
func (m *Model) NumFirstStage() int { return m.x.Size() }

// NumSecondStage returns the number of second-stage columns of one policy.
func (m *Model) NumSecondStage() int { return m.y.Size() }

// NumPolicies returns K.
func (m *Model) NumPolicies() int { return len(m.cxy) }

// NumVars returns the length of x for K policies.
func (m *Model) NumVars(K int) int { return m.NumFirstStage() + K*m.NumSecondStage() }

// NumParams returns the number of parameters of U.
func (m *Model) NumParams() int { return m.u.NumParams() }

// X returns the first-stage registry.
func (m *Model) X() *VarSet { return m.x }

// Y returns the second-stage registry.
func (m *Model) Y() *VarSet { return m.y }

// UncSet returns U.
func (m *Model) UncSet() *uncertainty.Set { return m.u }

// UncSetK returns the lifted set for the current K.
func (m *Model) UncSetK() *uncertainty.Set { return m.uk }

// Nominal returns the nominal scenario of U.
func (m *Model) Nominal() []float64 { return m.u.Nominal() }

// CX returns C_X.
func (m *Model) CX() expr.List { return m.cx }

// CXQ returns C_XQ.
func (m *Model) CXQ() expr.List { return m.cxq }

// BX returns B_X.
func (m *Model) BX() expr.List { return m.bx }

// CW returns the w costs (nil when the Spec declared none).
func (m *Model) CW() []float64 { return m.cw }

// CXY returns C_XY[k].
func (m *Model) CXY(k int) expr.List { return m.cxy[k] }

// CXYQ returns C_XYQ[k].
func (m *Model) CXYQ(k int) expr.List { return m.cxyq[k] }

// BY returns B_Y[k].
func (m *Model) BY(k int) expr.List { return m.by[k] }

// Clone returns a deep copy sharing only the Spec.
func (m *Model) Clone() *Model {
	out := &Model{
		spec:  m.spec,
		info:  m.info,
		u:     m.u.Clone(),
		uk:    m.uk.Clone(),
		x:     m.x.Clone(),
		y:     m.y.Clone(),
		wOrig: append([]Column(nil), m.wOrig...),
		bx:    m.bx.Clone(),
		cx:    m.cx.Clone(),
		cxq:   m.cxq.Clone(),
		cw:    append([]float64(nil), m.cw...),
	}
	for k := range m.cxy {
		out.by = append(out.by, m.by[k].Clone())
		out.cxy = append(out.cxy, m.cxy[k].Clone())
		out.cxyq = append(out.cxyq, m.cxyq[k].Clone())
	}

	return out
}

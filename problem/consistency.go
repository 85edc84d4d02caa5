package problem

import (
	"fmt"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
)

// IsConsistentWithDesign reports whether CheckConsistency passes.
func (m *Model) IsConsistentWithDesign() bool { return m.CheckConsistency() == nil }

func (m *Model) mustConsistent() {
	if err := m.CheckConsistency(); err != nil {
		panic(err)
	}
}

func inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...)
}

// CheckConsistency verifies the design rules of the model and returns the
// first violation found.
func (m *Model) CheckConsistency() error {
	K := len(m.cxy)
	if K < 1 {
		return inconsistent("no policies")
	}
	if len(m.cxyq) != K || len(m.by) != K {
		return inconsistent("policy families have sizes %d/%d/%d", len(m.cxy), len(m.cxyq), len(m.by))
	}
	if m.x.Size() == 0 || m.x.Size() != m.info.NumFirstStage {
		return inconsistent("X has %d columns, declared %d", m.x.Size(), m.info.NumFirstStage)
	}
	if m.y.Size() != m.info.NumSecondStage {
		return inconsistent("Y has %d columns, declared %d", m.y.Size(), m.info.NumSecondStage)
	}
	if m.info.ExistsFirstStage && m.x.Size() < 2 {
		return inconsistent("first stage declared but X holds only O")
	}

	if m.u.NumParams() == 0 {
		if len(m.cxq) > 0 {
			return inconsistent("C_XQ is non-empty without parameters")
		}
		for k := range m.cxyq {
			if len(m.cxyq[k]) > 0 {
				return inconsistent("C_XYQ[%d] is non-empty without parameters", k)
			}
		}
	}
	if m.info.ObjectiveUnc {
		if len(m.cxq) > 0 {
			return inconsistent("objective uncertainty with non-empty C_XQ")
		}
		for k := range m.cxyq {
			if len(m.cxyq[k]) != 1 {
				return inconsistent("objective uncertainty with %d rows in C_XYQ[%d]", len(m.cxyq[k]), k)
			}
		}
	}
	if m.x.HasInteger() || m.y.HasInteger() {
		if !m.info.HasInteger {
			return inconsistent("integer columns but HasInteger is unset")
		}
	} else if m.info.HasInteger {
		return inconsistent("HasInteger is set without integer columns")
	}

	if err := checkCertain("C_X", m.cx); err != nil {
		return err
	}
	if err := checkUncertain("C_XQ", m.cxq); err != nil {
		return err
	}
	for k := 0; k < K; k++ {
		if err := checkCertain(fmt.Sprintf("C_XY[%d]", k), m.cxy[k]); err != nil {
			return err
		}
		if err := checkUncertain(fmt.Sprintf("C_XYQ[%d]", k), m.cxyq[k]); err != nil {
			return err
		}
		if err := checkBounds(fmt.Sprintf("B_Y[%d]", k), m.by[k]); err != nil {
			return err
		}
	}
	if err := checkBounds("B_X", m.bx); err != nil {
		return err
	}

	begin, end := m.WRange()
	wCheck := true
	scan := func(l expr.List) {
		for _, c := range l {
			wCheck = wCheck && c.WDetObjOnly(begin, end)
		}
	}
	scan(m.cx)
	scan(m.cxq)
	for k := 0; k < K; k++ {
		scan(m.cxy[k])
		scan(m.cxyq[k])
	}
	if wCheck != m.info.WDetObjOnly {
		return inconsistent("WDetObjOnly declared %v, rows give %v", m.info.WDetObjOnly, wCheck)
	}

	if n := len(m.u.W()); n != 0 && n != m.u.NumParams() {
		return inconsistent("observation vector has %d entries for %d parameters", n, m.u.NumParams())
	}

	return nil
}

func checkCertain(family string, l expr.List) error {
	for i, c := range l {
		if c.IsEmpty() || c.HasBilinear() || c.HasConstQ() {
			return inconsistent("%s row %d (%s) must be non-empty and deterministic", family, i, c.Name)
		}
	}

	return nil
}

func checkUncertain(family string, l expr.List) error {
	for i, c := range l {
		if c.IsEmpty() || !(c.HasBilinear() || c.HasConstQ()) {
			return inconsistent("%s row %d (%s) must depend on q", family, i, c.Name)
		}
		if c.Sense == linprog.Equal {
			return inconsistent("%s row %d (%s) is an uncertain equality", family, i, c.Name)
		}
	}

	return nil
}

func checkBounds(family string, l expr.List) error {
	for i, c := range l {
		if c.IsEmpty() || !c.IsDeterministic() {
			return inconsistent("%s row %d (%s) must be a deterministic bound", family, i, c.Name)
		}
	}

	return nil
}

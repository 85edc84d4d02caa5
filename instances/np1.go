// SPDX-License-Identifier: MIT

package instances

import (
	"fmt"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
	"github.com/katalvlaran/kadapt/problem"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// np1 data: two risk factors in [0, 1] cut by two mirrored facets, and the
// mean used to center every term of the objective row.
var (
	np1Facet = [2]float64{0.436, 0.026}
	np1RHS   = 0.275
	np1Mean  = 0.315
)

// NP1 is the two-item instance from the hardness reduction:
//
//	min O  s.t.  O + Σ_i [ (2y_i − psi_i − 1)(q_i − μ) ] ≥ 0
//	0.436q1 + 0.026q2 ≤ 0.275,  0.026q1 + 0.436q2 ≤ 0.275,  q ∈ [0, 1]²
//
// with y binary, psi_i ∈ [−3, 3] and μ = 0.315. Column w_i observes q_i at no
// cost.
type NP1 struct{}

func (NP1) Info() problem.Info {
	return problem.Info{
		HasInteger:       true,
		ExistsFirstStage: true,
		WDetObjOnly:      true,
		NumFirstStage:    5,
		NumSecondStage:   2,
		SolFileName:      "np-hard1",
	}
}

func (NP1) MakeUncSet(u *uncertainty.Set) error {
	for i := 0; i < 2; i++ {
		p, err := u.AddParam(0, 0, 1)
		if err != nil {
			return err
		}
		if err = u.SetObsVar(p, i); err != nil {
			return err
		}
	}
	if err := u.AddFacet([]linprog.Term{{Index: 1, Coef: np1Facet[0]}, {Index: 2, Coef: np1Facet[1]}}, linprog.LessEqual, np1RHS); err != nil {
		return err
	}

	return u.AddFacet([]linprog.Term{{Index: 2, Coef: np1Facet[0]}, {Index: 1, Coef: np1Facet[1]}}, linprog.LessEqual, np1RHS)
}

func (NP1) MakeVars(x, y *problem.VarSet) error {
	if err := addObjective(x); err != nil {
		return err
	}
	if err := x.Add("w", milp.Binary, 0, 1, 2); err != nil {
		return err
	}
	if err := x.Add("psi", milp.Continuous, -3, 3, 2); err != nil {
		return err
	}

	return y.Add("y", milp.Binary, 0, 1, 2)
}

func (NP1) MakeConsX(*problem.Model) (problem.FirstStage, error) {
	return problem.FirstStage{CW: []float64{0, 0}}, nil
}

func (NP1) MakeConsY(m *problem.Model, k int) (problem.Policy, error) {
	var p problem.Policy
	obj := expr.New(fmt.Sprintf("OBJ(%d)", k), linprog.GreaterEqual, 0)
	obj.AddTermX(m.VarIndex1("O"), 1)
	for i := 0; i < 2; i++ {
		y, psi := m.VarIndex2(k, "y", i), m.VarIndex1("psi", i)
		p.BY = append(p.BY, bounds(fmt.Sprintf("y(%d,%d)", i, k), y, 0, 1)...)
		obj.AddTermProduct(y, i+1, 2).
			AddTermProduct(psi, i+1, -1).
			AddTermX(y, -2*np1Mean).
			AddTermX(psi, np1Mean).
			AddTermQ(i+1, -1).
			AddConst(np1Mean)
	}
	p.CXYQ = expr.List{obj}

	return p, nil
}

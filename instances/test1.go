// SPDX-License-Identifier: MIT

package instances

import (
	"fmt"
	"math"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
	"github.com/katalvlaran/kadapt/problem"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// Test1 is a toy model with no first stage besides O:
//
//	min O  s.t.  O − 2q1 + 3y0 − 2y0·q1 − y1·q2 ≥ 0
//	             y0 + 2y1 − 0.5q1 + 0.5q2 ≥ 0.5
//	q1 ∈ [−1, 1], q2 ∈ [−0.5, 0.5], 0.5q1 + 2q2 ≤ 1, y binary.
type Test1 struct{}

func (Test1) Info() problem.Info {
	return problem.Info{
		HasInteger:     true,
		WDetObjOnly:    true,
		NumFirstStage:  1,
		NumSecondStage: 2,
		SolFileName:    "test1-n1-s0-t.opt",
	}
}

func (Test1) MakeUncSet(u *uncertainty.Set) error {
	q1, err := u.AddParam(1, -1, 1)
	if err != nil {
		return err
	}
	q2, err := u.AddParam(-0.5, -0.5, 0.5)
	if err != nil {
		return err
	}
	if err = u.SetObsVar(q1, 0); err != nil {
		return err
	}
	if err = u.SetObsVar(q2, 1); err != nil {
		return err
	}

	return u.AddFacet([]linprog.Term{{Index: q1, Coef: 0.5}, {Index: q2, Coef: 2}}, linprog.LessEqual, 1)
}

func (Test1) MakeVars(x, y *problem.VarSet) error {
	if err := addObjective(x); err != nil {
		return err
	}

	return y.Add("y", milp.Binary, 0, 1, 2)
}

func (Test1) MakeConsX(*problem.Model) (problem.FirstStage, error) {
	return problem.FirstStage{}, nil
}

func (Test1) MakeConsY(m *problem.Model, k int) (problem.Policy, error) {
	y0, y1 := m.VarIndex2(k, "y", 0), m.VarIndex2(k, "y", 1)

	obj := expr.New(fmt.Sprintf("OBJ(%d)", k), linprog.GreaterEqual, 0)
	obj.AddTermX(m.VarIndex1("O"), 1).
		AddTermQ(1, -2).
		AddTermX(y0, 3).
		AddTermProduct(y0, 1, -2).
		AddTermProduct(y1, 2, -1)

	c := expr.New(fmt.Sprintf("CONSTRAINT(%d)", k), linprog.GreaterEqual, 0.5)
	c.AddTermX(y0, 1).AddTermX(y1, 2).AddTermQ(1, -0.5).AddTermQ(2, 0.5)

	return problem.Policy{CXYQ: expr.List{obj, c}}, nil
}

// addObjective declares the epigraph column O, always the first X column.
func addObjective(x *problem.VarSet) error {
	if err := x.Add("O", milp.Continuous, math.Inf(-1), math.Inf(1)); err != nil {
		return err
	}

	return x.SetObj(1, "O")
}

// bounds returns the rows lb ≤ x[i] ≤ ub named after the column.
func bounds(name string, i int, lb, ub float64) expr.List {
	lo := expr.New("LB_"+name, linprog.GreaterEqual, lb)
	lo.AddTermX(i, 1)
	hi := expr.New("UB_"+name, linprog.LessEqual, ub)
	hi.AddTermX(i, 1)

	return expr.List{lo, hi}
}

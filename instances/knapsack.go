// SPDX-License-Identifier: MIT

package instances

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
	"github.com/katalvlaran/kadapt/problem"
	"github.com/katalvlaran/kadapt/uncertainty"
)

// ErrData is returned for instance data with inconsistent sizes or values.
var ErrData = errors.New("instances: invalid instance data")

// KnapsackData is one knapsack instance. Slices are indexed by item 0..N−1;
// Ksi[i] holds the profit loadings of item i on the F risk factors.
type KnapsackData struct {
	N         int         `yaml:"n"`
	Cost      []float64   `yaml:"cost"`
	Profit    []float64   `yaml:"profit"`
	Budget    float64     `yaml:"budget"`
	Theta     float64     `yaml:"theta"`
	PsiWeight float64     `yaml:"psi_weight"`
	Phi       [][]float64 `yaml:"phi"`
	Ksi       [][]float64 `yaml:"ksi"`
	SolFile   string      `yaml:"sol_file"`
}

// Factors returns F.
func (d KnapsackData) Factors() int {
	if len(d.Ksi) == 0 {
		return 0
	}

	return len(d.Ksi[0])
}

// Validate checks sizes and signs.
func (d KnapsackData) Validate() error {
	if d.N < 1 || len(d.Cost) != d.N || len(d.Profit) != d.N || len(d.Phi) != d.N || len(d.Ksi) != d.N {
		return fmt.Errorf("%w: knapsack with %d items has %d costs, %d profits, %d/%d loadings",
			ErrData, d.N, len(d.Cost), len(d.Profit), len(d.Phi), len(d.Ksi))
	}
	F := d.Factors()
	for i := 0; i < d.N; i++ {
		if d.Profit[i] <= 0 || d.Cost[i] < 0 {
			return fmt.Errorf("%w: item %d has profit %g, cost %g", ErrData, i, d.Profit[i], d.Cost[i])
		}
		if len(d.Ksi[i]) != F || len(d.Phi[i]) != F {
			return fmt.Errorf("%w: item %d loadings have %d/%d factors, want %d", ErrData, i, len(d.Ksi[i]), len(d.Phi[i]), F)
		}
		if floats.Norm(d.Ksi[i], 1) > 2+1e-9 {
			return fmt.Errorf("%w: item %d profit loadings exceed 2 in absolute sum", ErrData, i)
		}
	}
	if d.Theta < 0 || d.Theta > 1 || d.PsiWeight < 0 {
		return fmt.Errorf("%w: theta %g, psi weight %g", ErrData, d.Theta, d.PsiWeight)
	}

	return nil
}

// GenerateKnapsack draws an instance with n items (at least 5) from seed.
// Costs are uniform on [0, 10], profits are a fifth of the costs, the budget is
// a fraction of the total cost, and factor loadings are simplex weights.
func GenerateKnapsack(n int, seed int64, opts ...Option) (KnapsackData, error) {
	if n < minItems {
		return KnapsackData{}, fmt.Errorf("%w: %d items, need at least %d", ErrData, n, minItems)
	}
	c := newKnapsackConfig(opts)
	if c.factors < 2 {
		return KnapsackData{}, fmt.Errorf("%w: knapsack needs at least 2 factors", ErrData)
	}
	r := rngFromSeed(seed)
	d := KnapsackData{
		N:         n,
		Cost:      make([]float64, n),
		Profit:    make([]float64, n),
		Theta:     c.theta,
		PsiWeight: c.psiWeight,
		Phi:       make([][]float64, n),
		Ksi:       make([][]float64, n),
		SolFile:   fmt.Sprintf("cpb-n%d-s%d-t.opt", n, seed),
	}
	total := 0.0
	for i := range d.Cost {
		d.Cost[i] = uniform(r, 0, 10)
		total += d.Cost[i]
	}
	d.Budget = total * c.budgetRatio
	for i := range d.Profit {
		d.Profit[i] = d.Cost[i] / 5
	}
	for i := 0; i < n; i++ {
		d.Phi[i] = simplexWeights(r, c.factors)
		d.Ksi[i] = simplexWeights(r, c.factors)
		g := shuffleRNG()
		shuffleFloats(d.Phi[i], g)
		shuffleFloats(d.Ksi[i], g)
	}

	return d, nil
}

// Knapsack is the decision-dependent investment problem:
//
//	min O  s.t.  O + Σ_i [ w_i·ξ_i − p_i·w_i + θ·y_i·ξ_i − ρ(2i−1)·psi·ξ_i ] + psi·Σ_i p_i ≥ 0
//	             w_i + y_i ≤ 1,  Σ_i c_i (w_i + y_i) ≤ B
//
// where ξ_i is the uncertain profit of project i, revealed by w_i = 1, and ρ
// is the ambiguity weight.
type Knapsack struct {
	Data KnapsackData
}

// NewKnapsack validates data.
func NewKnapsack(data KnapsackData) (Knapsack, error) {
	if err := data.Validate(); err != nil {
		return Knapsack{}, err
	}

	return Knapsack{Data: data}, nil
}

func (k Knapsack) Info() problem.Info {
	return problem.Info{
		HasInteger:       true,
		ObjectiveUnc:     true,
		ExistsFirstStage: true,
		NumFirstStage:    2 + k.Data.N,
		NumSecondStage:   k.Data.N,
		SolFileName:      k.Data.SolFile,
	}
}

// profitParam returns the parameter index of project i (1..N).
func (k Knapsack) profitParam(i int) int { return k.Data.Factors() + i }

func (k Knapsack) MakeUncSet(u *uncertainty.Set) error {
	F := k.Data.Factors()
	for f := 0; f < F; f++ {
		if _, err := u.AddParam(0, -1, 1); err != nil {
			return err
		}
	}
	var facets [][]linprog.Term
	for i := 1; i <= k.Data.N; i++ {
		p := k.Data.Profit[i-1]
		high := p
		var row []linprog.Term
		for f, l := range k.Data.Ksi[i-1] {
			coef := l * p * 0.5
			high += math.Abs(coef)
			if coef != 0 {
				row = append(row, linprog.Term{Index: f + 1, Coef: coef})
			}
		}
		idx, err := u.AddParam(p, 0, high)
		if err != nil {
			return err
		}
		if err = u.SetObsVar(idx, i-1); err != nil {
			return err
		}
		facets = append(facets, append(row, linprog.Term{Index: idx, Coef: -1}))
	}
	for i, row := range facets {
		if err := u.AddFacet(row, linprog.Equal, -k.Data.Profit[i]); err != nil {
			return err
		}
	}

	return nil
}

func (k Knapsack) MakeVars(x, y *problem.VarSet) error {
	if err := addObjective(x); err != nil {
		return err
	}
	if err := x.Add("psi", milp.Continuous, 0, 100); err != nil {
		return err
	}
	if err := x.Add("w", milp.Binary, 0, 1, k.Data.N+1); err != nil {
		return err
	}
	if err := x.SetUndefined("w", 0); err != nil {
		return err
	}
	if err := y.Add("y", milp.Binary, 0, 1, k.Data.N+1); err != nil {
		return err
	}

	return y.SetUndefined("y", 0)
}

func (k Knapsack) MakeConsX(m *problem.Model) (problem.FirstStage, error) {
	var fs problem.FirstStage
	for i := 1; i <= k.Data.N; i++ {
		fs.BX = append(fs.BX, bounds(fmt.Sprintf("w(%d)", i), m.VarIndex1("w", i), 0, 1)...)
	}

	return fs, nil
}

func (k Knapsack) MakeConsY(m *problem.Model, l int) (problem.Policy, error) {
	var p problem.Policy
	for i := 1; i <= k.Data.N; i++ {
		p.BY = append(p.BY, bounds(fmt.Sprintf("y(%d,%d)", i, l), m.VarIndex2(l, "y", i), 0, 1)...)
	}

	for i := 1; i <= k.Data.N; i++ {
		c := expr.New(fmt.Sprintf("EITHER(%d,%d)", i, l), linprog.LessEqual, 1)
		c.AddTermX(m.VarIndex1("w", i), 1).AddTermX(m.VarIndex2(l, "y", i), 1)
		p.CXY = append(p.CXY, c)
	}
	budget := expr.New(fmt.Sprintf("BUDGET(%d)", l), linprog.LessEqual, k.Data.Budget)
	for i := 1; i <= k.Data.N; i++ {
		budget.AddTermX(m.VarIndex1("w", i), k.Data.Cost[i-1]).
			AddTermX(m.VarIndex2(l, "y", i), k.Data.Cost[i-1])
	}
	p.CXY = append(p.CXY, budget)

	obj := expr.New(fmt.Sprintf("OBJ(%d)", l), linprog.GreaterEqual, 0)
	obj.AddTermX(m.VarIndex1("O"), 1)
	psi := m.VarIndex1("psi")
	nominal := 0.0
	for i := 1; i <= k.Data.N; i++ {
		q := k.profitParam(i)
		w, y := m.VarIndex1("w", i), m.VarIndex2(l, "y", i)
		obj.AddTermProduct(w, q, 1).
			AddTermX(w, -k.Data.Profit[i-1]).
			AddTermProduct(y, q, k.Data.Theta)
		if k.Data.PsiWeight > 0 {
			obj.AddTermProduct(psi, q, -float64(2*i-1)*k.Data.PsiWeight)
		}
		nominal += k.Data.Profit[i-1]
	}
	if k.Data.PsiWeight > 0 {
		obj.AddTermX(psi, nominal)
	}
	p.CXYQ = expr.List{obj}

	return p, nil
}

// Sample draws n scenarios of U: factors uniform on [−1, 1], profits from the
// factor equations. Every sample lies in U.
func (k Knapsack) Sample(n int, seed int64) [][]float64 {
	r := deriveRNG(seed, 1)
	F := k.Data.Factors()
	out := make([][]float64, n)
	for s := range out {
		q := make([]float64, 1+F+k.Data.N)
		for f := 1; f <= F; f++ {
			q[f] = uniform(r, -1, 1)
		}
		for i := 1; i <= k.Data.N; i++ {
			p := k.Data.Profit[i-1]
			v := p
			for f, l := range k.Data.Ksi[i-1] {
				v += l * p * 0.5 * q[f+1]
			}
			q[k.profitParam(i)] = v
		}
		out[s] = q
	}

	return out
}

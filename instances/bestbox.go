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

// BestBoxData is one best-box instance. Slices are indexed by box 0..N−1;
// Ksi[i] and Phi[i] hold the profit and cost loadings of box i.
type BestBoxData struct {
	N          int         `yaml:"n"`
	Cost       []float64   `yaml:"cost"`
	Profit     []float64   `yaml:"profit"`
	Budget     float64     `yaml:"budget"`
	DROSize    float64     `yaml:"dro_size"`
	Pairs      bool        `yaml:"pairs"`
	PairRadius float64     `yaml:"pair_radius"`
	Phi        [][]float64 `yaml:"phi"`
	Ksi        [][]float64 `yaml:"ksi"`
	SolFile    string      `yaml:"sol_file"`
}

// Factors returns F.
func (d BestBoxData) Factors() int {
	if len(d.Ksi) == 0 {
		return 0
	}

	return len(d.Ksi[0])
}

// Validate checks sizes and signs.
func (d BestBoxData) Validate() error {
	if d.N < 2 || len(d.Cost) != d.N || len(d.Profit) != d.N || len(d.Phi) != d.N || len(d.Ksi) != d.N {
		return fmt.Errorf("%w: best box with %d boxes has %d costs, %d profits, %d/%d loadings",
			ErrData, d.N, len(d.Cost), len(d.Profit), len(d.Phi), len(d.Ksi))
	}
	F := d.Factors()
	for i := 0; i < d.N; i++ {
		if d.Profit[i] <= 0 || d.Cost[i] <= 0 {
			return fmt.Errorf("%w: box %d has profit %g, cost %g", ErrData, i, d.Profit[i], d.Cost[i])
		}
		if len(d.Ksi[i]) != F || len(d.Phi[i]) != F {
			return fmt.Errorf("%w: box %d loadings have %d/%d factors, want %d", ErrData, i, len(d.Ksi[i]), len(d.Phi[i]), F)
		}
	}
	if d.DROSize < 0 || d.PairRadius < 0 {
		return fmt.Errorf("%w: dro size %g, pair radius %g", ErrData, d.DROSize, d.PairRadius)
	}

	return nil
}

// GenerateBestBox draws an instance with n boxes (at least 5) from seed.
// Costs are uniform on [0, 10], profits a fifth of the costs; loadings are
// uniform on [−4/F, 4/F], redrawn until their absolute sum is at most 2.
func GenerateBestBox(n int, seed int64, opts ...Option) (BestBoxData, error) {
	if n < minItems {
		return BestBoxData{}, fmt.Errorf("%w: %d boxes, need at least %d", ErrData, n, minItems)
	}
	c := newBestBoxConfig(n, opts)
	r := rngFromSeed(seed)
	d := BestBoxData{
		N:          n,
		Cost:       make([]float64, n),
		Profit:     make([]float64, n),
		DROSize:    c.droSize,
		Pairs:      c.pairs,
		PairRadius: c.pairRadius,
		Phi:        make([][]float64, n),
		Ksi:        make([][]float64, n),
		SolFile:    fmt.Sprintf("bb-n%d-s%d-t.opt", n, seed),
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
	a := 4 / float64(c.factors)
	for i := range d.Ksi {
		d.Ksi[i] = boundedWeights(r, c.factors, a, 2)
	}
	for i := range d.Phi {
		d.Phi[i] = boundedWeights(r, c.factors, a, 2)
	}

	return d, nil
}

// BestBox is the box-opening problem:
//
//	min O  s.t.  O + Σ_i y_i·ξ^p_i + Σ_a psi_a (ξ^a − r_a) ≥ 0
//	             Σ_i w_i·ξ^c_i ≤ B               (opening budget, uncertain)
//	             y_i ≤ w_i,  Σ_i y_i ≤ 1
//
// Opening box i (w_i = 1) reveals its profit ξ^p_i and cost ξ^c_i. The
// ambiguity parameters ξ^a bound the total (and optionally pairwise) deviation
// from the nominal values and r_a are their radii.
type BestBox struct {
	Data BestBoxData
}

// NewBestBox validates data.
func NewBestBox(data BestBoxData) (BestBox, error) {
	if err := data.Validate(); err != nil {
		return BestBox{}, err
	}

	return BestBox{Data: data}, nil
}

// numAmbiguity returns the number of ambiguity parameters (and psi columns).
func (b BestBox) numAmbiguity() int {
	if b.Data.Pairs {
		return 2 * b.Data.N
	}

	return 2
}

func (b BestBox) Info() problem.Info {
	return problem.Info{
		HasInteger:       true,
		ExistsFirstStage: true,
		NumFirstStage:    1 + b.Data.N + b.numAmbiguity(),
		NumSecondStage:   b.Data.N,
		SolFileName:      b.Data.SolFile,
	}
}

func (b BestBox) profitParam(i int) int { return b.Data.Factors() + 1 + i }

func (b BestBox) costParam(i int) int { return b.Data.Factors() + 1 + b.Data.N + i }

func (b BestBox) droProfitParam() int { return b.Data.Factors() + 1 + 2*b.Data.N }

func (b BestBox) droCostParam() int { return b.droProfitParam() + 1 }

func (b BestBox) pairProfitParam(i int) int { return b.droCostParam() + 1 + i }

func (b BestBox) pairCostParam(i int) int { return b.pairProfitParam(b.Data.N - 1 + i) }

// factorParams adds the parameter nominal + Σ_f 0.5·l_f·nominal·q_f for every
// item, observed by w_i, and returns the deviation totals and the facets.
func factorParams(u *uncertainty.Set, nominal []float64, loadings [][]float64) (float64, [][]linprog.Term, error) {
	dev := 0.0
	var facets [][]linprog.Term
	for i, v := range nominal {
		high, low := v, v
		var row []linprog.Term
		for f, l := range loadings[i] {
			coef := l * v * 0.5
			high += math.Abs(coef)
			low -= math.Abs(coef)
			if coef != 0 {
				row = append(row, linprog.Term{Index: f + 1, Coef: coef})
			}
		}
		dev += high - v
		idx, err := u.AddParam(v, low, high)
		if err != nil {
			return 0, nil, err
		}
		if err = u.SetObsVar(idx, i); err != nil {
			return 0, nil, err
		}
		facets = append(facets, append(row, linprog.Term{Index: idx, Coef: -1}))
	}

	return dev, facets, nil
}

// deviationFacets adds ξ^a ≥ |Σ_i ξ_{first+i} − Σ_i nominal_i|.
func deviationFacets(u *uncertainty.Set, a, first int, nominal []float64) error {
	pos := []linprog.Term{{Index: a, Coef: 1}}
	neg := []linprog.Term{{Index: a, Coef: 1}}
	total := 0.0
	for i, v := range nominal {
		total += v
		pos = append(pos, linprog.Term{Index: first + i, Coef: -1})
		neg = append(neg, linprog.Term{Index: first + i, Coef: 1})
	}
	if err := u.AddFacet(pos, linprog.GreaterEqual, -total); err != nil {
		return err
	}

	return u.AddFacet(neg, linprog.GreaterEqual, total)
}

func (b BestBox) MakeUncSet(u *uncertainty.Set) error {
	d := b.Data
	for f := 0; f < d.Factors(); f++ {
		if _, err := u.AddParam(0, -1, 1); err != nil {
			return err
		}
	}
	profitDev, profitRows, err := factorParams(u, d.Profit, d.Ksi)
	if err != nil {
		return err
	}
	costDev, costRows, err := factorParams(u, d.Cost, d.Phi)
	if err != nil {
		return err
	}
	if _, err = u.AddParam(0, 0, profitDev); err != nil {
		return err
	}
	if _, err = u.AddParam(0, 0, costDev); err != nil {
		return err
	}
	if d.Pairs {
		for i := 0; i < d.N-1; i++ {
			if _, err = u.AddParam(math.Abs(d.Profit[i]-d.Profit[i+1]), 0, d.Profit[i]+d.Profit[i+1]); err != nil {
				return err
			}
		}
		for i := 0; i < d.N-1; i++ {
			if _, err = u.AddParam(math.Abs(d.Cost[i]-d.Cost[i+1]), 0, d.Cost[i]+d.Cost[i+1]); err != nil {
				return err
			}
		}
	}

	for i, row := range profitRows {
		if err = u.AddFacet(row, linprog.Equal, -d.Profit[i]); err != nil {
			return err
		}
	}
	for i, row := range costRows {
		if err = u.AddFacet(row, linprog.Equal, -d.Cost[i]); err != nil {
			return err
		}
	}
	if err = deviationFacets(u, b.droProfitParam(), b.profitParam(0), d.Profit); err != nil {
		return err
	}
	if err = deviationFacets(u, b.droCostParam(), b.costParam(0), d.Cost); err != nil {
		return err
	}
	if !d.Pairs {
		return nil
	}
	// ξ^pair_i ≥ |ξ_i − ξ_{i+1}|
	pair := func(a, first, i int) error {
		if err := u.AddFacet([]linprog.Term{{Index: a, Coef: 1}, {Index: first + i, Coef: -1}, {Index: first + i + 1, Coef: 1}}, linprog.GreaterEqual, 0); err != nil {
			return err
		}
		return u.AddFacet([]linprog.Term{{Index: a, Coef: 1}, {Index: first + i, Coef: 1}, {Index: first + i + 1, Coef: -1}}, linprog.GreaterEqual, 0)
	}
	for i := 0; i < d.N-1; i++ {
		if err = pair(b.pairProfitParam(i), b.profitParam(0), i); err != nil {
			return err
		}
	}
	for i := 0; i < d.N-1; i++ {
		if err = pair(b.pairCostParam(i), b.costParam(0), i); err != nil {
			return err
		}
	}

	return nil
}

func (b BestBox) MakeVars(x, y *problem.VarSet) error {
	if err := addObjective(x); err != nil {
		return err
	}
	if err := x.Add("w", milp.Binary, 0, 1, b.Data.N); err != nil {
		return err
	}
	if err := x.Add("psi", milp.Continuous, 0, 100, b.numAmbiguity()); err != nil {
		return err
	}

	return y.Add("y", milp.Binary, 0, 1, b.Data.N)
}

func (b BestBox) MakeConsX(m *problem.Model) (problem.FirstStage, error) {
	fs := problem.FirstStage{CW: make([]float64, b.Data.N)}
	for i := 0; i < b.Data.N; i++ {
		fs.BX = append(fs.BX, bounds(fmt.Sprintf("w(%d)", i), m.VarIndex1("w", i), 0, 1)...)
	}
	budget := expr.New("BUDGET", linprog.LessEqual, b.Data.Budget)
	for i := 0; i < b.Data.N; i++ {
		budget.AddTermProduct(m.VarIndex1("w", i), b.costParam(i), 1)
	}
	fs.CXQ = expr.List{budget}

	return fs, nil
}

func (b BestBox) MakeConsY(m *problem.Model, k int) (problem.Policy, error) {
	d := b.Data
	var p problem.Policy
	for i := 0; i < d.N; i++ {
		p.BY = append(p.BY, bounds(fmt.Sprintf("y(%d,%d)", i, k), m.VarIndex2(k, "y", i), 0, 1)...)
	}

	one := expr.New(fmt.Sprintf("ONE(%d)", k), linprog.LessEqual, 1)
	for i := 0; i < d.N; i++ {
		take := expr.New(fmt.Sprintf("TAKE(%d,%d)", i, k), linprog.LessEqual, 0)
		take.AddTermX(m.VarIndex1("w", i), -1).AddTermX(m.VarIndex2(k, "y", i), 1)
		p.CXY = append(p.CXY, take)
		one.AddTermX(m.VarIndex2(k, "y", i), 1)
	}
	p.CXY = append(p.CXY, one)

	obj := expr.New(fmt.Sprintf("OBJ(%d)", k), linprog.GreaterEqual, 0)
	obj.AddTermX(m.VarIndex1("O"), 1)
	nomProfit, nomCost := 0.0, 0.0
	for i := 0; i < d.N; i++ {
		obj.AddTermProduct(m.VarIndex2(k, "y", i), b.profitParam(i), 1)
		nomProfit += d.Profit[i]
		nomCost += d.Cost[i]
	}
	scale := d.DROSize / math.Sqrt(float64(d.N))
	psi0, psi1 := m.VarIndex1("psi", 0), m.VarIndex1("psi", 1)
	obj.AddTermProduct(psi0, b.droProfitParam(), 1).AddTermX(psi0, -scale*nomProfit)
	obj.AddTermProduct(psi1, b.droCostParam(), 1).AddTermX(psi1, -scale*nomCost)
	if d.Pairs {
		half := d.PairRadius / 2
		for i := 0; i < d.N-1; i++ {
			ps := m.VarIndex1("psi", 2+i)
			obj.AddTermProduct(ps, b.pairProfitParam(i), 1).AddTermX(ps, -half*(d.Profit[i]+d.Profit[i+1]))
		}
		for i := 0; i < d.N-1; i++ {
			ps := m.VarIndex1("psi", 1+d.N+i)
			obj.AddTermProduct(ps, b.pairCostParam(i), 1).AddTermX(ps, -half*(d.Cost[i]+d.Cost[i+1]))
		}
	}
	p.CXYQ = expr.List{obj}

	return p, nil
}

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

// ElicitationData is one preference-elicitation instance. Features[i] holds
// the non-negative loadings of item i on the F preference factors.
type ElicitationData struct {
	N        int         `yaml:"n"`
	Queries  int         `yaml:"queries"`
	Noise    float64     `yaml:"noise"`
	Features [][]float64 `yaml:"features"`
	SolFile  string      `yaml:"sol_file"`
}

// Factors returns F.
func (d ElicitationData) Factors() int {
	if len(d.Features) == 0 {
		return 0
	}

	return len(d.Features[0])
}

// Validate checks sizes and signs.
func (d ElicitationData) Validate() error {
	if d.N < 2 || len(d.Features) != d.N {
		return fmt.Errorf("%w: elicitation with %d items has %d feature rows", ErrData, d.N, len(d.Features))
	}
	F := d.Factors()
	if F < 1 {
		return fmt.Errorf("%w: elicitation needs at least one factor", ErrData)
	}
	for i, row := range d.Features {
		if len(row) != F {
			return fmt.Errorf("%w: item %d has %d features, want %d", ErrData, i, len(row), F)
		}
		for _, v := range row {
			if v < 0 {
				return fmt.Errorf("%w: item %d has negative feature %g", ErrData, i, v)
			}
		}
	}
	if d.Queries < 0 || d.Queries > d.N || d.Noise < 0 {
		return fmt.Errorf("%w: %d queries over %d items, noise %g", ErrData, d.Queries, d.N, d.Noise)
	}

	return nil
}

// GenerateElicitation draws an instance with n items (at least 5) from seed.
// Feature rows are simplex weights; the query budget defaults to two.
func GenerateElicitation(n int, seed int64, opts ...Option) (ElicitationData, error) {
	if n < minItems {
		return ElicitationData{}, fmt.Errorf("%w: %d items, need at least %d", ErrData, n, minItems)
	}
	c := newElicitationConfig(opts)
	if c.queries > n {
		return ElicitationData{}, fmt.Errorf("%w: %d queries over %d items", ErrData, c.queries, n)
	}
	r := rngFromSeed(seed)
	d := ElicitationData{
		N:        n,
		Queries:  c.queries,
		Noise:    c.noise,
		Features: make([][]float64, n),
		SolFile:  fmt.Sprintf("pe-n%d-s%d-t.opt", n, seed),
	}
	for i := range d.Features {
		d.Features[i] = simplexWeights(r, c.factors)
	}

	return d, nil
}

// Elicitation recommends one of N items after asking the decision maker to
// rate Queries of them:
//
//	min O  s.t.  O + Σ_i y_i·u_i + psi_0 (t − ρ·N/2) + Σ_i psi_{i+1} (s_i − ρ/2) ≥ 0
//	             Σ_i w_i = Queries,  Σ_i y_i = 1
//
// The disutility u_i ∈ [0, 1] of item i is 1/2 shifted by its factor loadings
// (plus a bounded noise term when Noise > 0) and is revealed by w_i. The
// ambiguity parameters t ≥ |Σ_i u_i − N/2| and s_i ≥ |u_i − 1/2| are priced by
// psi with radius ρ = 0.15.
type Elicitation struct {
	Data ElicitationData
}

// NewElicitation validates data.
func NewElicitation(data ElicitationData) (Elicitation, error) {
	if err := data.Validate(); err != nil {
		return Elicitation{}, err
	}

	return Elicitation{Data: data}, nil
}

const elicitationRadius = 0.15

func (e Elicitation) Info() problem.Info {
	return problem.Info{
		HasInteger:       true,
		ObjectiveUnc:     true,
		ExistsFirstStage: true,
		NumFirstStage:    2 + 2*e.Data.N,
		NumSecondStage:   e.Data.N,
		SolFileName:      e.Data.SolFile,
	}
}

func (e Elicitation) noisy() bool { return e.Data.Noise > 0 }

func (e Elicitation) utilityParam(i int) int { return e.Data.Factors() + 1 + i }

func (e Elicitation) noiseParam(i int) int { return e.utilityParam(e.Data.N + i) }

func (e Elicitation) absNoiseParam(i int) int { return e.noiseParam(e.Data.N + i) }

func (e Elicitation) totalParam() int {
	if e.noisy() {
		return e.absNoiseParam(e.Data.N)
	}

	return e.utilityParam(e.Data.N)
}

func (e Elicitation) singleParam(i int) int { return e.totalParam() + 1 + i }

func (e Elicitation) MakeUncSet(u *uncertainty.Set) error {
	d := e.Data
	norm := 0.0
	for _, row := range d.Features {
		s := 0.0
		for _, v := range row {
			s += v
		}
		norm = math.Max(norm, s)
	}
	if norm == 0 {
		norm = 1
	}

	for f := 0; f < d.Factors(); f++ {
		if _, err := u.AddParam(0, 0, 1); err != nil {
			return err
		}
	}
	for i := 0; i < d.N; i++ {
		p, err := u.AddParam(0.5, 0, 1)
		if err != nil {
			return err
		}
		if err = u.SetObsVar(p, i); err != nil {
			return err
		}
	}
	if e.noisy() {
		for i := 0; i < d.N; i++ {
			if _, err := u.AddParam(0, -d.Noise, d.Noise); err != nil {
				return err
			}
		}
		for i := 0; i < d.N; i++ {
			if _, err := u.AddParam(0, 0, d.Noise); err != nil {
				return err
			}
		}
	}
	if _, err := u.AddParam(0, 0, float64(d.N)); err != nil {
		return err
	}
	for i := 0; i < d.N; i++ {
		if _, err := u.AddParam(0, 0, 1); err != nil {
			return err
		}
	}

	for i, row := range d.Features {
		var terms []linprog.Term
		for f, v := range row {
			if v != 0 {
				terms = append(terms, linprog.Term{Index: f + 1, Coef: v * 0.5 / norm})
			}
		}
		if e.noisy() {
			terms = append(terms, linprog.Term{Index: e.noiseParam(i), Coef: 1})
		}
		terms = append(terms, linprog.Term{Index: e.utilityParam(i), Coef: -1})
		if err := u.AddFacet(terms, linprog.Equal, -0.5); err != nil {
			return err
		}
	}
	if e.noisy() {
		var budget []linprog.Term
		for i := 0; i < d.N; i++ {
			a, n := e.absNoiseParam(i), e.noiseParam(i)
			if err := u.AddFacet([]linprog.Term{{Index: a, Coef: 1}, {Index: n, Coef: -1}}, linprog.GreaterEqual, 0); err != nil {
				return err
			}
			if err := u.AddFacet([]linprog.Term{{Index: a, Coef: 1}, {Index: n, Coef: 1}}, linprog.GreaterEqual, 0); err != nil {
				return err
			}
			budget = append(budget, linprog.Term{Index: a, Coef: 1})
		}
		if err := u.AddFacet(budget, linprog.LessEqual, d.Noise); err != nil {
			return err
		}
	}

	half := make([]float64, d.N)
	for i := range half {
		half[i] = 0.5
	}
	if err := deviationFacets(u, e.totalParam(), e.utilityParam(0), half); err != nil {
		return err
	}
	for i := 0; i < d.N; i++ {
		if err := deviationFacets(u, e.singleParam(i), e.utilityParam(i), half[:1]); err != nil {
			return err
		}
	}

	return nil
}

func (e Elicitation) MakeVars(x, y *problem.VarSet) error {
	if err := addObjective(x); err != nil {
		return err
	}
	if err := x.Add("psi", milp.Continuous, 0, 100, 1+e.Data.N); err != nil {
		return err
	}
	if err := x.Add("w", milp.Binary, 0, 1, e.Data.N); err != nil {
		return err
	}

	return y.Add("y", milp.Binary, 0, 1, e.Data.N)
}

func (e Elicitation) MakeConsX(m *problem.Model) (problem.FirstStage, error) {
	d := e.Data
	fs := problem.FirstStage{CW: make([]float64, d.N)}
	budget := expr.New("BUDGET", linprog.Equal, float64(d.Queries))
	for i := 0; i < d.N; i++ {
		w := m.VarIndex1("w", i)
		fs.BX = append(fs.BX, bounds(fmt.Sprintf("w(%d)", i), w, 0, 1)...)
		budget.AddTermX(w, 1)
	}
	fs.CX = expr.List{budget}

	return fs, nil
}

func (e Elicitation) MakeConsY(m *problem.Model, k int) (problem.Policy, error) {
	d := e.Data
	var p problem.Policy
	one := expr.New(fmt.Sprintf("RECOMMEND(%d)", k), linprog.Equal, 1)
	obj := expr.New(fmt.Sprintf("OBJ(%d)", k), linprog.GreaterEqual, 0)
	obj.AddTermX(m.VarIndex1("O"), 1)
	for i := 0; i < d.N; i++ {
		y := m.VarIndex2(k, "y", i)
		p.BY = append(p.BY, bounds(fmt.Sprintf("y(%d,%d)", i, k), y, 0, 1)...)
		one.AddTermX(y, 1)
		obj.AddTermProduct(y, e.utilityParam(i), 1)
	}
	p.CXY = expr.List{one}

	psi0 := m.VarIndex1("psi", 0)
	obj.AddTermProduct(psi0, e.totalParam(), 1).
		AddTermX(psi0, -elicitationRadius*0.5*float64(d.N)/math.Sqrt(float64(d.N)))
	for i := 0; i < d.N; i++ {
		ps := m.VarIndex1("psi", i+1)
		obj.AddTermProduct(ps, e.singleParam(i), 1).AddTermX(ps, -elicitationRadius*0.5)
	}
	p.CXYQ = expr.List{obj}

	return p, nil
}

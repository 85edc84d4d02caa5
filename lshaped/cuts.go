package lshaped

import (
	"math"

	"github.com/katalvlaran/kadapt/linprog"
)

// Master rows live over [θ | w_0 .. w_{n−1}].
const theta = 0

func wIndex(j int) int { return j + 1 }

func count(w []bool) int {
	n := 0
	for _, v := range w {
		if v {
			n++
		}
	}

	return n
}

// optimalityCut forces θ ≥ phi at w = ŵ. Every flipped entry relaxes the
// row by phi − L, so one flip already leaves θ ≥ L.
func optimalityCut(w []bool, phi, L float64) linprog.Row {
	coef := phi - L
	r := linprog.Row{Name: "opt", Sense: linprog.GreaterEqual}
	r.Terms = append(r.Terms, linprog.Term{Index: theta, Coef: 1})
	for j, v := range w {
		c := coef
		if v {
			c = -coef
		}
		r.Terms = append(r.Terms, linprog.Term{Index: wIndex(j), Coef: c})
	}
	r.RHS = L - coef*float64(count(w)-1)

	return r
}

// flatCut forces θ ≥ phi for every w.
func flatCut(phi float64) linprog.Row {
	return linprog.Row{Name: "flat", Sense: linprog.GreaterEqual, RHS: phi, Terms: []linprog.Term{{Index: theta, Coef: 1}}}
}

// closingCut is an empty row no master point satisfies.
func closingCut() linprog.Row {
	return linprog.Row{Name: "closing", Sense: linprog.GreaterEqual, RHS: 1}
}

// informationCut forces θ ≥ phi for every w that observes no more than ŵ.
func informationCut(w []bool, phi, L float64) linprog.Row {
	coef := phi - L
	r := linprog.Row{Name: "info", Sense: linprog.GreaterEqual, RHS: phi}
	r.Terms = append(r.Terms, linprog.Term{Index: theta, Coef: 1})
	for j, v := range w {
		if !v {
			r.Terms = append(r.Terms, linprog.Term{Index: wIndex(j), Coef: coef})
		}
	}

	return r
}

// feasibilityCut excludes every w that observes at least what ŵ observes.
// With nothing observed it degrades to the no-good cut.
func feasibilityCut(w []bool) linprog.Row {
	n := count(w)
	if n == 0 {
		return noGoodCut(w)
	}
	r := linprog.Row{Name: "feas", Sense: linprog.GreaterEqual, RHS: float64(1 - n)}
	for j, v := range w {
		if v {
			r.Terms = append(r.Terms, linprog.Term{Index: wIndex(j), Coef: -1})
		}
	}

	return r
}

// noGoodCut excludes exactly ŵ.
func noGoodCut(w []bool) linprog.Row {
	r := linprog.Row{Name: "nogood", Sense: linprog.GreaterEqual, RHS: float64(1 - count(w))}
	for j, v := range w {
		c := 1.0
		if v {
			c = -1
		}
		r.Terms = append(r.Terms, linprog.Term{Index: wIndex(j), Coef: c})
	}

	return r
}

// subgradientCut linearizes the scenario LP value around ŵ: with
// g_j = Σ_i a_ij·π_i over the rows of the LP,
//
//	θ + Σ g_j·w_j ≥ value + Σ g_j·ŵ_j.
//
// begin is the LP column of w_0.
func subgradientCut(lp *linprog.Problem, sol linprog.Solution, w []bool, begin int, zeroTol float64) (linprog.Row, error) {
	g := make([]float64, len(w))
	for i := 0; i < lp.NumRows(); i++ {
		row, err := lp.Row(i)
		if err != nil {
			return linprog.Row{}, err
		}
		pi := sol.Duals[i]
		if pi == 0 {
			continue
		}
		for _, t := range row.Terms {
			j := t.Index - begin
			if j < 0 || j >= len(w) || math.Abs(t.Coef) < zeroTol {
				continue
			}
			g[j] += t.Coef * pi
		}
	}

	r := linprog.Row{Name: "subgrad", Sense: linprog.GreaterEqual, RHS: sol.Objective}
	r.Terms = append(r.Terms, linprog.Term{Index: theta, Coef: 1})
	for j, v := range g {
		if math.Abs(v) < zeroTol {
			continue
		}
		r.Terms = append(r.Terms, linprog.Term{Index: wIndex(j), Coef: v})
		if w[j] {
			r.RHS += v
		}
	}

	return r, nil
}

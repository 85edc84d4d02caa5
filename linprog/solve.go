// SPDX-License-Identifier: MIT

package linprog

// Solve optimizes p. Infeasibility and unboundedness are reported through
// Solution.Status; the error is non-nil only for invalid input or a numerical
// breakdown inside the simplex (wrapped ErrNumerical).
func (p *Problem) Solve(opts Options) (Solution, error) {
	opts = opts.withDefaults(len(p.obj), len(p.rows))
	for j := range p.obj {
		if p.lb[j] != p.lb[j] || p.ub[j] != p.ub[j] || p.obj[j] != p.obj[j] {
			return Solution{}, ErrNaN
		}
		if p.lb[j] > p.ub[j] {
			return Solution{Status: Infeasible}, nil
		}
	}

	sign := 1.0
	if p.maximize {
		sign = -1
	}
	tb := newTableau(p, opts)
	status, err := tb.solve(p.obj, sign)
	if err != nil || status != Optimal {
		return Solution{Status: status}, err
	}

	x := append([]float64(nil), tb.x[:tb.n]...)
	for j := range x {
		// Harris steps may leave a basic column a hair outside its box.
		if x[j] < p.lb[j] {
			x[j] = p.lb[j]
		} else if x[j] > p.ub[j] {
			x[j] = p.ub[j]
		}
	}
	sol := Solution{Status: Optimal, X: x, Objective: p.ObjectiveValue(x)}
	if opts.Duals {
		sol.Duals = make([]float64, tb.m)
		for i := range sol.Duals {
			sol.Duals[i] = sign * tb.d[tb.n+i]
		}
	}

	return sol, nil
}

package lshaped

import (
	"context"
	"fmt"
	"math"

	"github.com/katalvlaran/kadapt/expr"
	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/milp"
)

// master is the w problem together with the first-stage rows projected
// onto w.
type master struct {
	mdl *milp.Model
	// begin is the first-stage index of w_0; n the number of w columns.
	begin, n int
	robust   expr.List
	pending  []linprog.Row
}

func (s *Solver) newMaster(ctx context.Context, L float64) (*master, error) {
	m := s.k.Model()
	begin, end := m.WRange()
	ms := &master{mdl: milp.NewModel(), begin: begin, n: end - begin}
	if _, err := ms.mdl.AddVar(milp.Continuous, L, linprog.Inf, 1, "theta"); err != nil {
		return nil, err
	}
	cols := m.X().Columns()
	cw := m.CW()
	for j := 0; j < ms.n; j++ {
		c := 0.0
		if j < len(cw) {
			c = cw[j]
		}
		if _, err := ms.mdl.AddVar(milp.Binary, 0, 1, c, cols[begin+j].Name); err != nil {
			return nil, err
		}
	}
	if ms.n == 0 {
		return ms, nil
	}

	for _, c := range m.CXQ() {
		if len(c.VarIndices()) > 0 && c.OnlyVarsIn(begin, end) {
			ms.robust = append(ms.robust, c)
		}
	}
	if s.opts.ProjectW {
		rows, err := s.projectW(ctx, begin, end)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if err = ms.add(r); err != nil {
				return nil, err
			}
		}
	}
	if s.opts.Heuristic {
		for _, r := range s.stored {
			if err := ms.add(r); err != nil {
				return nil, err
			}
		}
	}

	return ms, nil
}

func (ms *master) add(r linprog.Row) error {
	if _, err := ms.mdl.AddRow(r); err != nil {
		return fmt.Errorf("lshaped: master row %s: %w", r.Name, err)
	}

	return nil
}

// flush moves the robust cuts found during the last master solve into the model.
func (ms *master) flush() error {
	for _, r := range ms.pending {
		if err := ms.add(r); err != nil {
			return err
		}
	}
	ms.pending = ms.pending[:0]

	return nil
}

// first expands a master point to the first-stage vector read by the rows.
func (ms *master) first(x []float64, size int) []float64 {
	out := make([]float64, size)
	for j := 0; j < ms.n; j++ {
		out[ms.begin+j] = x[wIndex(j)]
	}

	return out
}

// toMaster rewrites a first-stage row over w into master indices.
func (ms *master) toMaster(r linprog.Row) linprog.Row {
	out := r.Clone()
	for i := range out.Terms {
		out.Terms[i].Index = out.Terms[i].Index - ms.begin + 1
	}

	return out
}

// w rounds the w part of a master point.
func (ms *master) w(x []float64) []bool {
	w := make([]bool, ms.n)
	for j := range w {
		w[j] = x[wIndex(j)] > 0.5
	}

	return w
}

// robustCuts returns, for every first-stage row over w alone, the worst
// scenario row when x violates it somewhere in U.
func (s *Solver) robustCuts(ms *master, x []float64) ([]milp.Cut, error) {
	if len(ms.robust) == 0 {
		return nil, nil
	}
	u := s.k.Model().UncSet()
	xf := ms.first(x, s.k.Model().NumFirstStage())
	tol := s.k.Options().InfeasTol
	var cuts []milp.Cut
	for _, c := range ms.robust {
		q, err := u.MaxViolation(c, xf)
		if err != nil {
			return nil, err
		}
		if q[0] > tol {
			r := ms.toMaster(c.Deterministic(q))
			cuts = append(cuts, milp.Cut{Row: r})
			ms.pending = append(ms.pending, r)
		}
	}
	s.opts.Metrics.Separation(metrics.SepRobust)
	s.opts.Metrics.Cut(metrics.CutLazy, len(cuts))

	return cuts, nil
}

// projectW tightens every deterministic first-stage or policy-0 row that
// mixes w with other columns: the other part is replaced by its best value
// over the rows that do not involve w. Rows whose other part is unbounded
// are skipped.
func (s *Solver) projectW(ctx context.Context, begin, end int) ([]linprog.Row, error) {
	m := s.k.Model()
	involves := func(c expr.Constraint) bool {
		for _, i := range c.VarIndices() {
			if i >= begin && i < end {
				return true
			}
		}
		return false
	}

	base := milp.NewModel()
	for _, c := range m.X().Columns() {
		if _, err := base.AddVar(c.Type, c.LB, c.UB, 0, c.Name); err != nil {
			return nil, err
		}
	}
	for _, c := range m.Y().Columns() {
		if _, err := base.AddVar(c.Type, c.LB, c.UB, 0, c.Name); err != nil {
			return nil, err
		}
	}

	var cands expr.List
	for _, l := range []expr.List{m.CX(), m.BX(), m.CXQ(), m.CXY(0), m.BY(0)} {
		for _, c := range l {
			if !c.IsDeterministic() || c.IsEmpty() {
				continue
			}
			if involves(c) {
				cands = append(cands, c)
				continue
			}
			if _, err := base.AddRow(c.Deterministic(nil)); err != nil {
				return nil, err
			}
		}
	}

	opts := milp.DefaultOptions()
	opts.LP = s.opts.MILP.LP
	var out []linprog.Row
	for _, c := range cands {
		row := c.Deterministic(nil)
		if c.OnlyVarsIn(begin, end) {
			out = append(out, projectedRow(row, begin, end, 0))
			continue
		}
		if row.Sense == linprog.Equal {
			continue
		}
		sub := base.Clone()
		for _, t := range row.Terms {
			if t.Index < begin || t.Index >= end {
				sub.SetObj(t.Index, t.Coef)
			}
		}
		sub.SetMaximize(row.Sense == linprog.GreaterEqual)
		res, err := milp.Solve(ctx, sub, opts)
		if err != nil {
			return nil, fmt.Errorf("lshaped: project %s: %w", c.Name, err)
		}
		if res.Status != milp.Optimal && res.Status != milp.OptimalTol || math.IsInf(res.BestBound, 0) {
			continue
		}
		// the bound, not the incumbent, keeps the projection valid under a gap
		out = append(out, projectedRow(row, begin, end, res.BestBound))
	}

	return out, nil
}

// projectedRow keeps the w terms of row and moves rest to the right-hand side.
func projectedRow(row linprog.Row, begin, end int, rest float64) linprog.Row {
	out := linprog.Row{Name: "proj_" + row.Name, Sense: row.Sense, RHS: row.RHS - rest}
	for _, t := range row.Terms {
		if t.Index >= begin && t.Index < end {
			out.Terms = append(out.Terms, linprog.Term{Index: t.Index - begin + 1, Coef: t.Coef})
		}
	}

	return out
}

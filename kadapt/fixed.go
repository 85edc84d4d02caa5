package kadapt

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/milp"
)

// wThreshold separates an open from a closed observation in a stored vector.
const wThreshold = 1e-5

// FixFirstStage pins the first-stage columns after O to x[1:] in every model
// the solver builds; NaN entries stay free. A nil x releases all columns.
func (s *Solver) FixFirstStage(x []float64) error {
	if x == nil {
		s.fixed = nil
		return nil
	}
	if n := s.m.NumFirstStage(); len(x) != n {
		return fmt.Errorf("%w: %d first-stage entries, want %d", ErrDimension, len(x), n)
	}
	s.fixed = append([]float64(nil), x...)
	s.xsol = nil

	return nil
}

// SolveFixed evaluates a given first stage: w is read from the w columns of
// x, the remaining columns after O are pinned, and the K-adaptable problem is
// solved over the second stage only. The pins are released on return; w
// stays set.
func (s *Solver) SolveFixed(ctx context.Context, K int, x []float64) (KResult, error) {
	if n := s.m.NumFirstStage(); len(x) < n {
		return KResult{}, fmt.Errorf("%w: %d entries, want at least %d", ErrDimension, len(x), n)
	}
	x = x[:s.m.NumFirstStage()]
	if begin, end := s.m.WRange(); end > begin {
		w := make([]bool, end-begin)
		for j := range w {
			w[j] = math.Abs(x[begin+j]) > wThreshold
		}
		if err := s.SetW(w); err != nil {
			return KResult{}, err
		}
	}
	if err := s.FixFirstStage(x); err != nil {
		return KResult{}, err
	}
	defer func() { s.fixed = nil }()

	return s.SolveKAdaptability(ctx, K, false)
}

// Axis is one coordinate of a sweep grid: Points values evenly spaced over
// [Lo, Hi], or Lo alone when Points is 1.
type Axis struct {
	Lo, Hi float64
	Points int
}

func (a Axis) value(i int) float64 {
	if a.Points <= 1 {
		return a.Lo
	}

	return a.Lo + (a.Hi-a.Lo)*float64(i)/float64(a.Points-1)
}

// SweepPoint is the result of one grid point of Sweep.
type SweepPoint struct {
	Values    []float64
	Status    milp.Status
	Objective float64
}

// Sweep evaluates the first stage x with the column family named family set
// to every point of the grid spanned by axes, axis a driving entry a of the
// family (a scalar family takes one axis). Points are visited in row-major
// order, the last axis fastest.
func (s *Solver) Sweep(ctx context.Context, K int, x []float64, family string, axes []Axis) ([]SweepPoint, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("%w: empty sweep grid", ErrDimension)
	}
	cols := make([]int, len(axes))
	total := 1
	for a, ax := range axes {
		if ax.Points < 1 || ax.Lo > ax.Hi {
			return nil, fmt.Errorf("%w: axis %d spans [%g, %g] with %d points", ErrDimension, a, ax.Lo, ax.Hi, ax.Points)
		}
		j, err := s.m.X().Index(family, a)
		if err != nil && len(axes) == 1 {
			// scalar family
			j, err = s.m.X().Index(family)
		}
		if err != nil {
			return nil, err
		}
		cols[a] = j
		total *= ax.Points
	}
	if n := s.m.NumFirstStage(); len(x) < n {
		return nil, fmt.Errorf("%w: %d entries, want at least %d", ErrDimension, len(x), n)
	}

	out := make([]SweepPoint, 0, total)
	idx := make([]int, len(axes))
	for p := 0; p < total; p++ {
		pt := append([]float64(nil), x[:s.m.NumFirstStage()]...)
		vals := make([]float64, len(axes))
		for a, ax := range axes {
			vals[a] = ax.value(idx[a])
			pt[cols[a]] = vals[a]
		}
		res, err := s.SolveFixed(ctx, K, pt)
		if err != nil {
			return nil, err
		}
		out = append(out, SweepPoint{Values: vals, Status: res.Status, Objective: res.Objective})
		s.log.Debug("sweep point",
			zap.Float64s("values", vals),
			zap.Stringer("status", res.Status),
			zap.Float64("objective", res.Objective))

		for a := len(axes) - 1; a >= 0; a-- {
			if idx[a]++; idx[a] < axes[a].Points {
				break
			}
			idx[a] = 0
		}
	}

	return out, nil
}

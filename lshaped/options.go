package lshaped

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/milp"
)

// ErrOptions is returned by New for invalid options.
var ErrOptions = errors.New("lshaped: invalid options")

// Options configures a Solver.
//   - TimeLimit: outer wall-clock budget, checked between evaluations.
//   - GapTol: relative gap in percent at which Solve stops.
//   - InformationCut: also add information cuts in SolveBranchAndCut. Solve
//     adds them whenever w only enters deterministic objective terms.
//   - StrongFeasibilityCut: cut every superset of an infeasible w in
//     SolveBranchAndCut instead of a no-good cut.
//   - SubgradientCut: add subgradient cuts when w affects more than the
//     deterministic objective.
//   - ProjectW: tighten the master with the first-stage rows that involve w.
//   - Heuristic: carry subgradient and feasibility cuts into the next Solve
//     and report results as heuristic.
//   - MILP: options of the master search. Callbacks are set by the solver.
type Options struct {
	TimeLimit            time.Duration
	GapTol               float64
	InformationCut       bool
	StrongFeasibilityCut bool
	SubgradientCut       bool
	ProjectW             bool
	Heuristic            bool
	MILP                 milp.Options
	Logger               *zap.Logger
	Metrics              *metrics.Recorder
}

// DefaultOptions returns a two hour budget and a 0.1% gap.
func DefaultOptions() Options {
	return Options{
		TimeLimit:            2 * time.Hour,
		GapTol:               0.1,
		InformationCut:       true,
		StrongFeasibilityCut: true,
		SubgradientCut:       true,
		ProjectW:             true,
		MILP:                 milp.DefaultOptions(),
	}
}

func (o Options) validate() error {
	if o.TimeLimit < 0 {
		return errors.Join(ErrOptions, errors.New("negative time limit"))
	}
	if o.GapTol < 0 {
		return errors.Join(ErrOptions, errors.New("negative gap tolerance"))
	}

	return nil
}

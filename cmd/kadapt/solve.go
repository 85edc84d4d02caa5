package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/kadapt"
)

type solveFlags struct {
	problem   string
	n         int
	seed      int64
	k         int
	heuristic bool
	mode      string
}

// Solve modes.
const (
	modeBranch    = "branch"
	modeMinMaxMin = "minmaxmin"
)

func newSolveCmd(a *app) *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve one instance with 1..K policies",
		Long: `Solves the generated instance for every policy count from 1 to --k and
writes one result row per count. With --heuristic, each count above one keeps
the policies of the previous solution and optimizes a single new one.
--mode minmaxmin replaces the branch-and-bound by the min-max-min scheme,
available for objective-only uncertainty without a first stage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.solve(cmd, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.problem, "problem", "knapsack", problemUsage())
	fs.IntVar(&f.n, "n", 10, "instance size")
	fs.Int64Var(&f.seed, "seed", 1, "instance seed")
	fs.IntVar(&f.k, "k", 2, "largest number of policies")
	fs.BoolVar(&f.heuristic, "heuristic", false, "warm-started heuristic for K > 1")
	fs.StringVar(&f.mode, "mode", modeBranch, "branch or minmaxmin")

	return cmd
}

func (a *app) solve(cmd *cobra.Command, f solveFlags) error {
	if f.k < 1 {
		return fmt.Errorf("--k must be at least 1, got %d", f.k)
	}
	if f.mode != modeBranch && f.mode != modeMinMaxMin {
		return fmt.Errorf("--mode must be %s or %s, got %q", modeBranch, modeMinMaxMin, f.mode)
	}
	s, err := a.instance(f.problem, f.n, f.seed)
	if err != nil {
		return err
	}

	var x []float64
	for K := 1; K <= f.k; K++ {
		var res kadapt.KResult
		if f.mode == modeMinMaxMin {
			res, err = s.SolveMinMaxMin(cmd.Context(), K)
		} else {
			res, err = s.SolveKAdaptability(cmd.Context(), K, f.heuristic)
		}
		if err != nil {
			return err
		}
		a.log.Info("solved",
			zap.Int("k", K),
			zap.Stringer("status", res.Status),
			zap.Float64("objective", res.Objective),
			zap.Int("nodes", res.Nodes),
			zap.Duration("elapsed", res.Elapsed))
		if err := a.emit(res.Row(f.seed)); err != nil {
			return err
		}
		if res.X != nil {
			x = res.X
		}
		if cmd.Context().Err() != nil {
			break
		}
	}

	return a.saveSolution(s, x)
}

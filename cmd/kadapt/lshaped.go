package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/kadapt/lshaped"
	"github.com/katalvlaran/kadapt/report"
)

const (
	modeIterative    = "iterative"
	modeBranchAndCut = "branch-and-cut"
)

type lshapedFlags struct {
	problem   string
	n         int
	seeds     []int64
	k         int
	mode      string
	jobs      int
	heuristic bool
}

func newLShapedCmd(a *app) *cobra.Command {
	var f lshapedFlags
	cmd := &cobra.Command{
		Use:   "lshaped",
		Short: "Optimize the observation decisions of several instances",
		Long: `Runs the L-shaped decomposition over the observation vector for every
seed and every policy count from 1 to --k. Seeds are solved concurrently; rows
are written in seed order once all seeds finish.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.lshaped(cmd.Context(), f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.problem, "problem", "knapsack", problemUsage())
	fs.IntVar(&f.n, "n", 10, "instance size")
	fs.Int64SliceVar(&f.seeds, "seeds", []int64{1}, "instance seeds")
	fs.IntVar(&f.k, "k", 2, "largest number of policies")
	fs.StringVar(&f.mode, "mode", modeIterative, "iterative or branch-and-cut")
	fs.IntVar(&f.jobs, "jobs", runtime.NumCPU(), "seeds solved at once")
	fs.BoolVar(&f.heuristic, "heuristic", false, "carry cuts between policy counts and report heuristic rows")

	return cmd
}

func (a *app) lshaped(ctx context.Context, f lshapedFlags) error {
	if f.mode != modeIterative && f.mode != modeBranchAndCut {
		return fmt.Errorf("unknown mode %q", f.mode)
	}
	if f.k < 1 {
		return fmt.Errorf("--k must be at least 1, got %d", f.k)
	}

	rows := make([][]report.Row, len(f.seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.jobs, 1))
	for i, seed := range f.seeds {
		g.Go(func() error {
			r, err := a.lshapedSeed(ctx, f, seed)
			rows[i] = r
			return err
		})
	}
	err := g.Wait()
	for _, rs := range rows {
		for _, r := range rs {
			if werr := a.emit(r); werr != nil && err == nil {
				err = werr
			}
		}
	}

	return err
}

func (a *app) lshapedSeed(ctx context.Context, f lshapedFlags, seed int64) ([]report.Row, error) {
	k, err := a.instance(f.problem, f.n, seed)
	if err != nil {
		return nil, err
	}
	log := a.log.With(zap.Int64("seed", seed), zap.String("mode", f.mode))
	opts := a.cfg.LShaped.Options(log, a.rec)
	opts.Heuristic = opts.Heuristic || f.heuristic
	ls, err := lshaped.New(k, opts)
	if err != nil {
		return nil, err
	}

	var (
		rows []report.Row
		best lshaped.Result
	)
	for K := 1; K <= f.k; K++ {
		var res lshaped.Result
		if f.mode == modeIterative {
			res, err = ls.Solve(ctx, K)
		} else {
			res, err = ls.SolveBranchAndCut(ctx, K)
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, res.Row(seed))
		if res.X != nil {
			best = res
		}
		if ctx.Err() != nil {
			break
		}
	}

	return rows, a.saveSolution(k, best.X)
}

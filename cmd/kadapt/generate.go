package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/kadapt/instances"
)

type generateFlags struct {
	problem string
	n       int
	seed    int64
	out     string
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a generated instance as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.generate(cmd.OutOrStdout(), f)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.problem, "problem", instances.KindKnapsack, "knapsack, bestbox or elicitation")
	fs.IntVar(&f.n, "n", 10, "instance size")
	fs.Int64Var(&f.seed, "seed", 1, "instance seed")
	fs.StringVar(&f.out, "out", "", "output file (stdout when empty)")

	return cmd
}

func (a *app) generate(stdout io.Writer, f generateFlags) (err error) {
	w := stdout
	if f.out != "" {
		var file *os.File
		if file, err = os.Create(f.out); err != nil {
			return err
		}
		defer func() {
			if cerr := file.Close(); err == nil {
				err = cerr
			}
		}()
		w = file
	}

	switch f.problem {
	case instances.KindKnapsack:
		d, err := instances.GenerateKnapsack(f.n, f.seed)
		if err != nil {
			return err
		}
		return instances.SaveKnapsack(w, d)
	case instances.KindBestBox:
		d, err := instances.GenerateBestBox(f.n, f.seed)
		if err != nil {
			return err
		}
		return instances.SaveBestBox(w, d)
	case instances.KindElicit:
		d, err := instances.GenerateElicitation(f.n, f.seed)
		if err != nil {
			return err
		}
		return instances.SaveElicitation(w, d)
	default:
		return fmt.Errorf("%w: %q has no data file", instances.ErrKind, f.problem)
	}
}

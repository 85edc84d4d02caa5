package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/config"
	"github.com/katalvlaran/kadapt/instances"
	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/logging"
	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/problem"
	"github.com/katalvlaran/kadapt/report"
)

// app is the state shared by the subcommands of one invocation.
type app struct {
	out     io.Writer
	cfgFile string

	cfg   config.Config
	log   *zap.Logger
	reg   *prometheus.Registry
	rec   *metrics.Recorder
	runID uuid.UUID

	mu   sync.Mutex
	rows *report.Writer
	csv  *os.File
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "kadapt",
		Short:         "K-adaptability solver for two-stage robust problems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(a.out)
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newSolveCmd(a), newLShapedCmd(a), newGenerateCmd(a))

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.log, err = logging.New(cfg.Log); err != nil {
		return err
	}
	a.runID = uuid.New()
	a.log = a.log.With(zap.String("run_id", a.runID.String()))
	a.reg = prometheus.NewRegistry()
	a.rec = metrics.New(a.reg)

	w := a.out
	if cfg.Output.CSV != "" {
		f, err := os.OpenFile(cfg.Output.CSV, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open result file: %w", err)
		}
		a.csv = f
		w = f
	}
	a.rows = report.NewWriter(w)

	return nil
}

// close releases the result file and logs the collected counters.
func (a *app) close() error {
	var err error
	if a.csv != nil {
		err = a.csv.Close()
		a.csv = nil
	}
	if a.log == nil || a.reg == nil {
		return err
	}
	if mfs, gerr := a.reg.Gather(); gerr == nil {
		for _, mf := range mfs {
			total := 0.0
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			if total > 0 {
				a.log.Debug("metric", zap.String("name", mf.GetName()), zap.Float64("total", total))
			}
		}
	}
	_ = a.log.Sync()

	return err
}

// emit appends a result row. Safe for concurrent use.
func (a *app) emit(r report.Row) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.rows.Write(r)
}

// instance builds the model of one generated instance and a solver on it.
func (a *app) instance(kind string, n int, seed int64) (*kadapt.Solver, error) {
	spec, err := instances.Generate(kind, n, seed)
	if err != nil {
		return nil, err
	}
	m, err := problem.Build(spec)
	if err != nil {
		return nil, err
	}
	log := a.log.With(zap.String("problem", kind), zap.Int("n", n), zap.Int64("seed", seed))
	opts, err := a.cfg.Solver.Options(log, a.rec)
	if err != nil {
		return nil, err
	}

	return kadapt.New(m, opts)
}

// saveSolution writes x to the solution file of the model of s.
func (a *app) saveSolution(s *kadapt.Solver, x []float64) error {
	name := s.Model().SolFileName()
	if name == "" || x == nil {
		return nil
	}
	if err := os.MkdirAll(a.cfg.Output.Dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(a.cfg.Output.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteSolution(f, a.runID, x); err != nil {
		f.Close()
		return err
	}
	a.log.Debug("solution written", zap.String("path", path))

	return f.Close()
}

func problemUsage() string {
	return "problem kind: " + strings.Join(instances.Kinds(), ", ")
}

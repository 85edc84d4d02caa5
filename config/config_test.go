package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/kadapt/config"
	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/lshaped"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	k := kadapt.DefaultOptions()
	require.Equal(t, "indicator", cfg.Solver.Separation)
	require.Equal(t, "native", cfg.Solver.Branching)
	require.Equal(t, k.TimeLimit, cfg.Solver.TimeLimit)
	require.Equal(t, k.MaxScenarios, cfg.Solver.MaxScenarios)
	require.Equal(t, lshaped.DefaultOptions().TimeLimit, cfg.LShaped.TimeLimit)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, ".", cfg.Output.Dir)

	o, err := cfg.Solver.Options(nil, nil)
	require.NoError(t, err)
	require.Equal(t, kadapt.SeparationIndicator, o.Separation)
	require.Equal(t, kadapt.BranchNative, o.Branching)
}

func TestFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kadapt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
solver:
  separation: bigm
  branching: depth
  time_limit: 30s
lshaped:
  gap_tol: 0.5
  heuristic: true
log:
  level: debug
output:
  csv: out.csv
`), 0o600))
	t.Setenv("KADAPT_SOLVER_INFEAS_TOL", "0.001")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--branching", "gap", "--outer-time-limit", "1m"}))

	cfg, err := config.Load(path, fs)
	require.NoError(t, err)
	require.Equal(t, "bigm", cfg.Solver.Separation)
	require.Equal(t, "gap", cfg.Solver.Branching, "flag beats file")
	require.Equal(t, 30*time.Second, cfg.Solver.TimeLimit)
	require.InDelta(t, 0.001, cfg.Solver.InfeasTol, 1e-12)
	require.Equal(t, time.Minute, cfg.LShaped.TimeLimit)
	require.InDelta(t, 0.5, cfg.LShaped.GapTol, 1e-12)
	require.True(t, cfg.LShaped.Heuristic)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "out.csv", cfg.Output.CSV)

	o, err := cfg.Solver.Options(nil, nil)
	require.NoError(t, err)
	require.Equal(t, kadapt.SeparationBigM, o.Separation)
	require.Equal(t, kadapt.BranchGapThreshold, o.Branching)

	lo := cfg.LShaped.Options(nil, nil)
	require.True(t, lo.Heuristic)
	require.Equal(t, time.Minute, lo.TimeLimit)
}

func TestUnsetFlagKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kadapt.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  separation: enumerate\n"), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	cfg, err := config.Load(path, fs)
	require.NoError(t, err)
	require.Equal(t, "enumerate", cfg.Solver.Separation)
}

func TestErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.Solver.Branching = "nope"
	_, err = cfg.Solver.Options(nil, nil)
	require.Error(t, err)
}

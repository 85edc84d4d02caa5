// Package config loads solver settings from a YAML file, KADAPT_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/kadapt"
	"github.com/katalvlaran/kadapt/logging"
	"github.com/katalvlaran/kadapt/lshaped"
	"github.com/katalvlaran/kadapt/metrics"
)

// Config is the full configuration of a run.
type Config struct {
	Solver  Solver         `mapstructure:"solver"`
	LShaped LShaped        `mapstructure:"lshaped"`
	Log     logging.Config `mapstructure:"log"`
	Output  Output         `mapstructure:"output"`
}

// Solver holds the K-adaptability knobs.
type Solver struct {
	Separation           string        `mapstructure:"separation"`
	Branching            string        `mapstructure:"branching"`
	GetMaxViolation      bool          `mapstructure:"get_max_violation"`
	SeparateFromSamples  bool          `mapstructure:"separate_from_samples"`
	BranchAllConstraints bool          `mapstructure:"branch_all_constraints"`
	StrongBranching      bool          `mapstructure:"strong_branching"`
	DecisionDependent    bool          `mapstructure:"decision_dependent"`
	GapThreshold         float64       `mapstructure:"gap_threshold"`
	InfeasTol            float64       `mapstructure:"infeas_tol"`
	HeurTol              float64       `mapstructure:"heur_tol"`
	TimeLimit            time.Duration `mapstructure:"time_limit"`
	MaxScenarios         int           `mapstructure:"max_scenarios"`
}

// LShaped holds the decomposition knobs.
type LShaped struct {
	TimeLimit            time.Duration `mapstructure:"time_limit"`
	GapTol               float64       `mapstructure:"gap_tol"`
	InformationCut       bool          `mapstructure:"information_cut"`
	StrongFeasibilityCut bool          `mapstructure:"strong_feasibility_cut"`
	SubgradientCut       bool          `mapstructure:"subgradient_cut"`
	ProjectW             bool          `mapstructure:"project_w"`
	Heuristic            bool          `mapstructure:"heuristic"`
}

// Output says where results go.
type Output struct {
	Dir string `mapstructure:"dir"`
	CSV string `mapstructure:"csv"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"separation":       "solver.separation",
	"branching":        "solver.branching",
	"strong-branching": "solver.strong_branching",
	"infeas-tol":       "solver.infeas_tol",
	"time-limit":       "solver.time_limit",
	"outer-time-limit": "lshaped.time_limit",
	"gap-tol":          "lshaped.gap_tol",
	"log-level":        "log.level",
	"log-dev":          "log.development",
	"output-dir":       "output.dir",
	"csv":              "output.csv",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	k := kadapt.DefaultOptions()
	l := lshaped.DefaultOptions()
	fs.String("separation", k.Separation.String(), "separation strategy: enumerate, bigm or indicator")
	fs.String("branching", k.Branching.String(), "branching strategy: native, alternate, gap, custom or depth")
	fs.Bool("strong-branching", k.StrongBranching, "compare native and policy branching before committing")
	fs.Float64("infeas-tol", k.InfeasTol, "feasibility tolerance")
	fs.Duration("time-limit", k.TimeLimit, "time limit of one K-adaptability solve")
	fs.Duration("outer-time-limit", l.TimeLimit, "time limit of the decomposition")
	fs.Float64("gap-tol", l.GapTol, "decomposition gap in percent")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.Bool("log-dev", false, "console logging")
	fs.String("output-dir", ".", "directory for solution files")
	fs.String("csv", "", "append result rows to this file")
}

func setDefaults(v *viper.Viper) {
	k := kadapt.DefaultOptions()
	v.SetDefault("solver.separation", k.Separation.String())
	v.SetDefault("solver.branching", k.Branching.String())
	v.SetDefault("solver.get_max_violation", k.GetMaxViolation)
	v.SetDefault("solver.separate_from_samples", k.SeparateFromSamples)
	v.SetDefault("solver.branch_all_constraints", k.BranchAllConstraints)
	v.SetDefault("solver.strong_branching", k.StrongBranching)
	v.SetDefault("solver.decision_dependent", k.DecisionDependent)
	v.SetDefault("solver.gap_threshold", k.GapThreshold)
	v.SetDefault("solver.infeas_tol", k.InfeasTol)
	v.SetDefault("solver.heur_tol", k.HeurTol)
	v.SetDefault("solver.time_limit", k.TimeLimit)
	v.SetDefault("solver.max_scenarios", k.MaxScenarios)

	l := lshaped.DefaultOptions()
	v.SetDefault("lshaped.time_limit", l.TimeLimit)
	v.SetDefault("lshaped.gap_tol", l.GapTol)
	v.SetDefault("lshaped.information_cut", l.InformationCut)
	v.SetDefault("lshaped.strong_feasibility_cut", l.StrongFeasibilityCut)
	v.SetDefault("lshaped.subgradient_cut", l.SubgradientCut)
	v.SetDefault("lshaped.project_w", l.ProjectW)
	v.SetDefault("lshaped.heuristic", l.Heuristic)

	lc := logging.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.development", lc.Development)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.csv", "")
}

// Load reads path (skipped when empty), the environment and the flags of
// fs that RegisterFlags defined. Only flags set on the command line
// override the file and the environment.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("KADAPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("config: bind %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}

	return cfg, nil
}

// Options converts the solver section.
func (c Solver) Options(log *zap.Logger, rec *metrics.Recorder) (kadapt.Options, error) {
	o := kadapt.DefaultOptions()
	var err error
	if o.Separation, err = kadapt.ParseSeparation(c.Separation); err != nil {
		return o, err
	}
	if o.Branching, err = kadapt.ParseBranching(c.Branching); err != nil {
		return o, err
	}
	o.GetMaxViolation = c.GetMaxViolation
	o.SeparateFromSamples = c.SeparateFromSamples
	o.BranchAllConstraints = c.BranchAllConstraints
	o.StrongBranching = c.StrongBranching
	o.DecisionDependent = c.DecisionDependent
	o.GapThreshold = c.GapThreshold
	o.InfeasTol = c.InfeasTol
	o.HeurTol = c.HeurTol
	o.TimeLimit = c.TimeLimit
	o.MaxScenarios = c.MaxScenarios
	o.Logger = log
	o.Metrics = rec

	return o, nil
}

// Options converts the decomposition section.
func (c LShaped) Options(log *zap.Logger, rec *metrics.Recorder) lshaped.Options {
	o := lshaped.DefaultOptions()
	o.TimeLimit = c.TimeLimit
	o.GapTol = c.GapTol
	o.InformationCut = c.InformationCut
	o.StrongFeasibilityCut = c.StrongFeasibilityCut
	o.SubgradientCut = c.SubgradientCut
	o.ProjectW = c.ProjectW
	o.Heuristic = c.Heuristic
	o.Logger = log
	o.Metrics = rec

	return o
}

package kadapt

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/metrics"
	"github.com/katalvlaran/kadapt/milp"
)

// SeparationStrategy selects how FeasibleYQ finds a violating scenario.
type SeparationStrategy int

const (
	// SeparationEnumerate solves one max-min LP per tuple of rows.
	SeparationEnumerate SeparationStrategy = iota + 1
	// SeparationBigM selects one row per policy through binaries and a
	// uniform big-M.
	SeparationBigM
	// SeparationIndicator selects one row per policy through indicator rows.
	SeparationIndicator
)

func (s SeparationStrategy) String() string {
	switch s {
	case SeparationEnumerate:
		return "enumerate"
	case SeparationBigM:
		return "bigm"
	case SeparationIndicator:
		return "indicator"
	}

	return fmt.Sprintf("SeparationStrategy(%d)", int(s))
}

// ParseSeparation maps a name accepted by String back to a strategy.
func ParseSeparation(name string) (SeparationStrategy, error) {
	for _, s := range []SeparationStrategy{SeparationEnumerate, SeparationBigM, SeparationIndicator} {
		if s.String() == name {
			return s, nil
		}
	}

	return 0, fmt.Errorf("kadapt: unknown separation strategy %q", name)
}

// BranchingStrategy selects when a fractional node is split over policies
// instead of on a fractional variable.
type BranchingStrategy int

const (
	// BranchNative always branches on variables at fractional nodes.
	BranchNative BranchingStrategy = iota + 1
	// BranchAlternate alternates native and policy splits by depth.
	BranchAlternate
	// BranchGapThreshold splits over policies while the node gap exceeds
	// Options.GapThreshold percent.
	BranchGapThreshold
	// BranchCustom always splits over policies when a violating scenario exists.
	BranchCustom
	// BranchDepthModulo splits over policies every 1+⌈K/2⌉ levels.
	BranchDepthModulo
)

func (b BranchingStrategy) String() string {
	switch b {
	case BranchNative:
		return "native"
	case BranchAlternate:
		return "alternate"
	case BranchGapThreshold:
		return "gap"
	case BranchCustom:
		return "custom"
	case BranchDepthModulo:
		return "depth"
	}

	return fmt.Sprintf("BranchingStrategy(%d)", int(b))
}

// ParseBranching maps a name accepted by String back to a strategy.
func ParseBranching(name string) (BranchingStrategy, error) {
	for b := BranchNative; b <= BranchDepthModulo; b++ {
		if b.String() == name {
			return b, nil
		}
	}

	return 0, fmt.Errorf("kadapt: unknown branching strategy %q", name)
}

// Options configures a Solver.
//   - GetMaxViolation: keep searching for the most violated scenario instead
//     of stopping at the first one.
//   - SeparateFromSamples: check the collected scenarios before solving the
//     exact separation problem.
//   - BranchAllConstraints: a label brings every row of the policy into the
//     child; otherwise only the most violated one.
//   - DecisionDependent: honor the observation vector of the model.
//   - GapThreshold: percent, used by BranchGapThreshold.
//   - InfeasTol, HeurTol: violation tolerances of exact and heuristic checks.
//   - TimeLimit: budget of one K-adaptability solve (0 = none).
//   - MaxScenarios, ScenarioTol: size and deduplication tolerance of the
//     scenario set returned in KResult.
type Options struct {
	Separation           SeparationStrategy
	Branching            BranchingStrategy
	GetMaxViolation      bool
	SeparateFromSamples  bool
	BranchAllConstraints bool
	StrongBranching      bool
	DecisionDependent    bool

	GapThreshold float64
	InfeasTol    float64
	HeurTol      float64
	TimeLimit    time.Duration

	MaxScenarios int
	ScenarioTol  float64

	MILP    milp.Options
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// DefaultOptions returns the defaults of the reference runs.
func DefaultOptions() Options {
	return Options{
		Separation:           SeparationIndicator,
		Branching:            BranchNative,
		GetMaxViolation:      true,
		SeparateFromSamples:  true,
		BranchAllConstraints: true,
		DecisionDependent:    true,
		GapThreshold:         10,
		InfeasTol:            1e-4,
		HeurTol:              1e-2,
		TimeLimit:            600 * time.Second,
		MaxScenarios:         10,
		ScenarioTol:          0.01,
		MILP:                 milp.DefaultOptions(),
	}
}

func (o Options) validate() error {
	if o.Separation < SeparationEnumerate || o.Separation > SeparationIndicator {
		return fmt.Errorf("kadapt: invalid %v", o.Separation)
	}
	if o.Branching < BranchNative || o.Branching > BranchDepthModulo {
		return fmt.Errorf("kadapt: invalid %v", o.Branching)
	}
	if o.InfeasTol <= 0 || o.HeurTol <= 0 {
		return fmt.Errorf("kadapt: tolerances must be positive (%g, %g)", o.InfeasTol, o.HeurTol)
	}

	return nil
}

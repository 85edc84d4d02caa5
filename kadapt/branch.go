package kadapt

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/katalvlaran/kadapt/linprog"
	"github.com/katalvlaran/kadapt/milp"
)

// strongMu weighs the smallest against the largest bound increase when
// scoring a set of children.
const strongMu = 0.5

func (e *engine) branch(n *milp.Node, native []milp.Child) ([]milp.Child, bool, error) {
	ni := e.info(n)
	if ni.kind == nodeDummy || ni.kind == nodeRejected {
		out, err := e.split(ni)
		return out, true, err
	}
	if len(native) == 0 {
		return nil, true, nil
	}

	if e.policySplitAt(n, ni) {
		ok, v, err := e.violation(n.X())
		if err != nil {
			return nil, false, err
		}
		if !ok {
			ni.label, ni.x = v.Label, n.X()
			out, err := e.split(ni)
			if err != nil {
				return nil, false, err
			}
			if !e.s.opts.StrongBranching {
				return out, true, nil
			}
			policy, err := e.score(n, out)
			if err != nil {
				return nil, false, err
			}
			vars, err := e.score(n, native)
			if err != nil {
				return nil, false, err
			}
			if policy >= vars {
				return out, true, nil
			}
			e.releaseChildren(out)
			ni.label, ni.x = -1, nil
		}
	}

	return e.nativeChildren(ni, native), true, nil
}

// policySplitAt applies the branching strategy to a fractional node.
func (e *engine) policySplitAt(n *milp.Node, ni *nodeInfo) bool {
	switch e.s.opts.Branching {
	case BranchAlternate:
		return ni.trueDepth%2 == 1
	case BranchGapThreshold:
		return n.Gap()*100 > e.s.opts.GapThreshold
	case BranchCustom:
		return true
	case BranchDepthModulo:
		return ni.trueDepth%(1+(e.K+1)/2) == 0
	}

	return false
}

func (e *engine) nativeChildren(ni *nodeInfo, native []milp.Child) []milp.Child {
	out := make([]milp.Child, len(native))
	for i, c := range native {
		h := ni.clone()
		h.kind = nodeReal
		h.trueDepth++
		h.native = true
		h.label = -1
		h.x = nil
		c.Handle = h
		out[i] = c
	}

	return out
}

// split gives the pending label to the policies a node may still use. The
// last policies are branched on first; the rest is deferred to a dummy node.
func (e *engine) split(ni *nodeInfo) ([]milp.Child, error) {
	var kMax int
	if ni.kind == nodeDummy {
		kMax = ni.numNodes - 1
	} else {
		kMax = ni.active
		if kMax >= e.K {
			kMax = e.K - 1
		}
	}
	kMin := kMax
	if kMax <= 1 {
		kMin = 0
	}

	var out []milp.Child
	for k := kMax; k >= kMin; k-- {
		rows, err := e.labelRows(ni, k)
		if err != nil {
			return nil, err
		}
		out = append(out, milp.Child{Rows: rows, Handle: ni.child(k, ni.label)})
	}
	if kMax > 1 {
		d := ni.clone()
		d.kind = nodeDummy
		d.numNodes = kMax
		out = append(out, milp.Child{Handle: d})
		e.dummyNodes++
		e.s.opts.Metrics.DummyNode()
	}
	e.log.Debug("policy split",
		zap.Int("label", ni.label),
		zap.Int("k_max", kMax),
		zap.Int("k_min", kMin),
		zap.Stringer("kind", ni.kind))

	return out, nil
}

// labelRows returns the rows enforcing the pending label on policy k.
func (e *engine) labelRows(ni *nodeInfo, k int) ([]linprog.Row, error) {
	s := e.s
	q := e.samples[ni.label]
	if e.dd {
		_, wq, _, err := s.robustViolation(ni.x, k, q, s.opts.InfeasTol)
		if err != nil {
			return nil, err
		}
		if wq != nil {
			q = wq
		}
	}
	only := -1
	if !s.opts.BranchAllConstraints && !s.m.Info().ObjectiveUnc {
		_, only = s.m.CXYQ(k).MaxViolation(ni.x, q)
	}

	return s.scenarioRows(k, q, only), nil
}

// score rates children by the LP bound increase they cause.
func (e *engine) score(n *milp.Node, children []milp.Child) (float64, error) {
	base := n.Objective()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range children {
		if len(c.Rows) == 0 && len(c.Bounds) == 0 {
			continue
		}
		lp, err := n.Relaxation()
		if err != nil {
			return 0, err
		}
		for _, b := range c.Bounds {
			lb, ub := lp.Bounds(b.Var)
			switch b.Kind {
			case milp.Lower:
				lb = b.Value
			case milp.Upper:
				ub = b.Value
			default:
				lb, ub = b.Value, b.Value
			}
			lp.SetBounds(b.Var, lb, ub)
		}
		for _, r := range c.Rows {
			if _, err := lp.AddRow(r); err != nil {
				return 0, fmt.Errorf("kadapt: strong branching row %s: %w", r.Name, err)
			}
		}
		delta := math.Inf(1)
		if sol, err := lp.Solve(e.s.opts.MILP.LP); err == nil && sol.Status == linprog.Optimal {
			delta = math.Abs(sol.Objective - base)
		}
		lo, hi = math.Min(lo, delta), math.Max(hi, delta)
	}
	if math.IsInf(lo, 1) && math.IsInf(hi, -1) {
		return 0, nil
	}

	return strongMu*lo + (1-strongMu)*hi, nil
}

func (e *engine) releaseChildren(children []milp.Child) {
	for _, c := range children {
		e.nodeDelete(c.Handle)
	}
}

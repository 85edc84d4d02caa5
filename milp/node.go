// SPDX-License-Identifier: MIT

package milp

import (
	"math"

	"github.com/katalvlaran/kadapt/linprog"
)

// Node is the view of a search-tree node handed to callbacks. It is only
// valid during the callback invocation.
type Node struct {
	e      *engine
	id     int
	depth  int
	lb, ub []float64
	rows   []linprog.Row
	handle any

	// bound is the parent's LP value (minimization sense) until the node is solved.
	bound    float64
	obj      float64
	x        []float64
	integral bool
}

// ID returns the creation sequence number (root = 0).
func (n *Node) ID() int { return n.id }

// Depth returns the depth in the search tree (root = 0).
func (n *Node) Depth() int { return n.depth }

// Handle returns the user data attached to the node.
func (n *Node) Handle() any { return n.handle }

// SetHandle replaces the user data. The previous handle is not released.
func (n *Node) SetHandle(h any) { n.handle = h }

// Objective returns the objective of the node LP.
func (n *Node) Objective() float64 { return n.obj }

// X returns a copy of the node LP solution.
func (n *Node) X() []float64 { return append([]float64(nil), n.x...) }

// Integral reports whether the node LP solution is integral.
func (n *Node) Integral() bool { return n.integral }

// HasIncumbent reports whether an incumbent exists.
func (n *Node) HasIncumbent() bool { return n.e.hasInc }

// BestInteger returns the incumbent objective, or ±Inf without one.
func (n *Node) BestInteger() float64 {
	if !n.e.hasInc {
		return n.e.sign * math.Inf(1)
	}

	return n.e.sign * n.e.incObj
}

// BestBound returns the best bound over this node and all open nodes.
func (n *Node) BestBound() float64 {
	return n.e.sign * n.e.bestBound(n.e.sign*n.obj)
}

// Gap returns the relative gap |inc − bound| / |inc|, +Inf without incumbent.
func (n *Node) Gap() float64 {
	if !n.e.hasInc {
		return math.Inf(1)
	}

	return relGap(n.e.incObj, n.e.bestBound(n.e.sign*n.obj))
}

// Abort stops the search once the current callback returns.
func (n *Node) Abort() { n.e.aborted = true }

// Relaxation returns an independent copy of the node LP: model rows, global
// cuts, the node's local rows and its bounds.
func (n *Node) Relaxation() (*linprog.Problem, error) { return n.e.nodeLP(n) }

// Bounds returns the node bounds of column j.
func (n *Node) Bounds(j int) (float64, float64) { return n.lb[j], n.ub[j] }

func relGap(inc, bound float64) float64 {
	return math.Abs(inc-bound) / (1e-10 + math.Abs(inc))
}

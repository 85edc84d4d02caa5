package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "kadapt"
	subsystem = "solver"
)

// Separation kinds.
const (
	SepExact   = "exact"
	SepSamples = "samples"
	SepRobust  = "robust"
)

// Cut kinds.
const (
	CutLocal       = "local"
	CutLazy        = "lazy"
	CutOptimality  = "optimality"
	CutInformation = "information"
	CutSubgradient = "subgradient"
	CutFeasibility = "feasibility"
	CutNoGood      = "no_good"
)

// Recorder groups the solver collectors.
type Recorder struct {
	nodes       prometheus.Counter
	dummyNodes  prometheus.Counter
	separations *prometheus.CounterVec
	cuts        *prometheus.CounterVec
	incumbents  prometheus.Counter
	iterations  prometheus.Counter
	solveTime   *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		nodes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "nodes_total",
			Help:      "Branch-and-bound nodes processed",
		}),
		dummyNodes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dummy_nodes_total",
			Help:      "Dummy nodes created to emulate K-ary branching",
		}),
		separations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "separations_total",
			Help:      "Separation calls by kind",
		}, []string{"kind"}),
		cuts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cuts_total",
			Help:      "Cuts added by kind",
		}, []string{"kind"}),
		incumbents: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "incumbents_total",
			Help:      "Accepted K-adaptable incumbents",
		}),
		iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outer_iterations_total",
			Help:      "L-shaped master iterations",
		}),
		solveTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "solve_duration_seconds",
			Help:      "Wall time of complete solves by kind",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60, 300, 600, 1800, 7200},
		}, []string{"kind"}),
	}
}

// Node counts one processed node.
func (r *Recorder) Node() {
	if r == nil {
		return
	}
	r.nodes.Inc()
}

// DummyNode counts one created dummy node.
func (r *Recorder) DummyNode() {
	if r == nil {
		return
	}
	r.dummyNodes.Inc()
}

// Separation counts one separation call.
func (r *Recorder) Separation(kind string) {
	if r == nil {
		return
	}
	r.separations.WithLabelValues(kind).Inc()
}

// Cut counts n cuts of a kind.
func (r *Recorder) Cut(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.cuts.WithLabelValues(kind).Add(float64(n))
}

// Incumbent counts one accepted incumbent.
func (r *Recorder) Incumbent() {
	if r == nil {
		return
	}
	r.incumbents.Inc()
}

// OuterIteration counts one master iteration.
func (r *Recorder) OuterIteration() {
	if r == nil {
		return
	}
	r.iterations.Inc()
}

// ObserveSolve records the duration of a finished solve.
func (r *Recorder) ObserveSolve(kind string, seconds float64) {
	if r == nil {
		return
	}
	r.solveTime.WithLabelValues(kind).Observe(seconds)
}

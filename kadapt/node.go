package kadapt

type nodeKind int

const (
	nodeReal nodeKind = iota
	// nodeDummy stands for the policies of a K-ary split not yet branched on.
	nodeDummy
	// nodeRejected holds an integral point the separation oracle cut off.
	nodeRejected
)

func (k nodeKind) String() string {
	switch k {
	case nodeDummy:
		return "dummy"
	case nodeRejected:
		return "rejected"
	}

	return "real"
}

// nodeInfo is the handle attached to every search node.
//   - trueDepth counts real splits only; dummy nodes inherit it.
//   - label is the pending scenario of a rejected or dummy node (−1: none),
//     x the point that violated it.
//   - numNodes is the number of policies a dummy node still covers.
//   - labels[k] lists the scenarios assigned to policy k; active counts the
//     policies in use.
type nodeInfo struct {
	kind      nodeKind
	trueDepth int
	native    bool
	label     int
	numNodes  int
	active    int
	labels    [][]int
	x         []float64
}

func newRootInfo(K, active int) *nodeInfo {
	ni := &nodeInfo{label: -1, active: active, labels: make([][]int, K)}
	ni.labels[0] = []int{0}

	return ni
}

func (ni *nodeInfo) clone() *nodeInfo {
	out := *ni
	out.labels = make([][]int, len(ni.labels))
	for k, l := range ni.labels {
		out.labels[k] = append([]int(nil), l...)
	}
	out.x = append([]float64(nil), ni.x...)

	return &out
}

// child returns the real node obtained by giving label l to policy k.
func (ni *nodeInfo) child(k, l int) *nodeInfo {
	out := ni.clone()
	out.kind = nodeReal
	out.trueDepth++
	out.native = false
	out.label = -1
	out.numNodes = 0
	out.x = nil
	out.labels[k] = append(out.labels[k], l)
	if k+1 > out.active {
		out.active = k + 1
	}

	return out
}

func (ni *nodeInfo) release() {
	ni.labels = nil
	ni.x = nil
}

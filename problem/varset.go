package problem

import (
	"fmt"
	"math"
	"strings"

	"github.com/katalvlaran/kadapt/milp"
)

// maxDims is the largest index arity a variable type may declare.
const maxDims = 5

// Column describes one defined variable of a VarSet in linear order.
type Column struct {
	Name   string
	Type   milp.VarType
	LB, UB float64
	Obj    float64
}

type varType struct {
	name    string
	dims    []int
	strides []int
	cols    []Column
	defined []bool
	// linear[i] is the defined linear index of entry i, or −1.
	linear []int
}

// VarSet is a registry of named, multi-dimensional variable types.
// Entries may be marked undefined; only defined entries get a linear index.
// Linear indices follow declaration order, then row-major order.
type VarSet struct {
	types []*varType
	index map[string]int
	size  int
}

// NewVarSet returns an empty registry.
func NewVarSet() *VarSet { return &VarSet{index: make(map[string]int)} }

// Add declares a variable type with the given column type, bounds and index
// dimensions. Omitting dims declares a scalar type.
func (v *VarSet) Add(name string, t milp.VarType, lb, ub float64, dims ...int) error {
	if _, dup := v.index[name]; dup || name == "" {
		return fmt.Errorf("%w: %q", ErrVarType, name)
	}
	if t != milp.Continuous && t != milp.Binary && t != milp.Integer {
		return fmt.Errorf("%w: column type %q", ErrVarType, t)
	}
	if len(dims) > maxDims {
		return fmt.Errorf("%w: %q has %d dimensions", ErrVarType, name, len(dims))
	}
	vt := &varType{name: name, dims: append([]int(nil), dims...)}
	n := 1
	vt.strides = make([]int, len(dims))
	for i := len(dims) - 1; i >= 0; i-- {
		if dims[i] < 1 {
			return fmt.Errorf("%w: %q dimension %d is %d", ErrVarType, name, i, dims[i])
		}
		vt.strides[i] = n
		n *= dims[i]
	}
	vt.cols = make([]Column, n)
	vt.defined = make([]bool, n)
	for i := range vt.cols {
		vt.cols[i] = Column{Name: name + suffix(vt, i), Type: t, LB: lb, UB: ub}
		vt.defined[i] = true
	}
	v.index[name] = len(v.types)
	v.types = append(v.types, vt)
	v.relayout()

	return nil
}

func suffix(vt *varType, flat int) string {
	if len(vt.dims) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range vt.strides {
		fmt.Fprintf(&b, "_%d", flat/s)
		flat %= s
	}

	return b.String()
}

func (v *VarSet) entry(name string, idx []int) (*varType, int, error) {
	ti, ok := v.index[name]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrVarType, name)
	}
	vt := v.types[ti]
	if len(idx) != len(vt.dims) {
		return nil, 0, fmt.Errorf("%w: %q takes %d indices, got %d", ErrVarIndex, name, len(vt.dims), len(idx))
	}
	flat := 0
	for i, x := range idx {
		if x < 0 || x >= vt.dims[i] {
			return nil, 0, fmt.Errorf("%w: %q index %v", ErrVarIndex, name, idx)
		}
		flat += x * vt.strides[i]
	}

	return vt, flat, nil
}

// SetUndefined removes one entry from the linear layout.
func (v *VarSet) SetUndefined(name string, idx ...int) error {
	vt, flat, err := v.entry(name, idx)
	if err != nil {
		return err
	}
	vt.defined[flat] = false
	v.relayout()

	return nil
}

// SetType changes the column type of one entry.
func (v *VarSet) SetType(t milp.VarType, name string, idx ...int) error {
	vt, flat, err := v.entry(name, idx)
	if err != nil {
		return err
	}
	vt.cols[flat].Type = t

	return nil
}

// SetBounds changes the bounds of one entry.
func (v *VarSet) SetBounds(lb, ub float64, name string, idx ...int) error {
	vt, flat, err := v.entry(name, idx)
	if err != nil {
		return err
	}
	vt.cols[flat].LB, vt.cols[flat].UB = lb, ub

	return nil
}

// SetObj changes the objective coefficient of one entry.
func (v *VarSet) SetObj(c float64, name string, idx ...int) error {
	vt, flat, err := v.entry(name, idx)
	if err != nil {
		return err
	}
	vt.cols[flat].Obj = c

	return nil
}

func (v *VarSet) relayout() {
	n := 0
	for _, vt := range v.types {
		vt.linear = make([]int, len(vt.cols))
		for i := range vt.cols {
			vt.linear[i] = -1
			if vt.defined[i] {
				vt.linear[i] = n
				n++
			}
		}
	}
	v.size = n
}

// Index returns the linear index of a defined entry.
func (v *VarSet) Index(name string, idx ...int) (int, error) {
	vt, flat, err := v.entry(name, idx)
	if err != nil {
		return -1, err
	}
	if vt.linear[flat] < 0 {
		return -1, fmt.Errorf("%w: %q%v is undefined", ErrVarIndex, name, idx)
	}

	return vt.linear[flat], nil
}

// MustIndex is Index for model-building code; it panics on a bad name or index.
func (v *VarSet) MustIndex(name string, idx ...int) int {
	i, err := v.Index(name, idx...)
	if err != nil {
		panic(err)
	}

	return i
}

// Has reports whether a type is declared.
func (v *VarSet) Has(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Size returns the number of defined entries.
func (v *VarSet) Size() int { return v.size }

// TypeSize returns the number of defined entries of one type (0 if unknown).
func (v *VarSet) TypeSize(name string) int {
	ti, ok := v.index[name]
	if !ok {
		return 0
	}
	n := 0
	for _, d := range v.types[ti].defined {
		if d {
			n++
		}
	}

	return n
}

// Range returns the linear range [begin, end) covered by the defined entries
// of one type; begin == end when the type is unknown or fully undefined.
func (v *VarSet) Range(name string) (int, int) {
	ti, ok := v.index[name]
	if !ok {
		return 0, 0
	}
	begin := -1
	end := 0
	for _, l := range v.types[ti].linear {
		if l < 0 {
			continue
		}
		if begin < 0 {
			begin = l
		}
		end = l + 1
	}
	if begin < 0 {
		return 0, 0
	}

	return begin, end
}

// FirstDefined returns the flat position of the first defined entry of a type
// within that type, e.g. 1 when entry 0 is undefined.
func (v *VarSet) FirstDefined(name string) int {
	ti, ok := v.index[name]
	if !ok {
		return -1
	}
	for i, d := range v.types[ti].defined {
		if d {
			return i
		}
	}

	return -1
}

// Columns returns the defined entries in linear order.
func (v *VarSet) Columns() []Column {
	out := make([]Column, 0, v.size)
	for _, vt := range v.types {
		for i, c := range vt.cols {
			if vt.defined[i] {
				out = append(out, c)
			}
		}
	}

	return out
}

// HasInteger reports whether any defined entry is binary or integer.
func (v *VarSet) HasInteger() bool {
	for _, c := range v.Columns() {
		if c.Type != milp.Continuous {
			return true
		}
	}

	return false
}

// Clone returns a deep copy.
func (v *VarSet) Clone() *VarSet {
	out := &VarSet{index: make(map[string]int, len(v.index))}
	for name, i := range v.index {
		out.index[name] = i
	}
	for _, vt := range v.types {
		out.types = append(out.types, &varType{
			name:    vt.name,
			dims:    append([]int(nil), vt.dims...),
			strides: append([]int(nil), vt.strides...),
			cols:    append([]Column(nil), vt.cols...),
			defined: append([]bool(nil), vt.defined...),
		})
	}
	out.relayout()

	return out
}

// Free is the bound used for unbounded columns.
var Free = math.Inf(1)

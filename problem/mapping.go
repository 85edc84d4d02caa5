package problem

import "fmt"

// MapVar translates a policy-0 column index to policy k. First-stage columns
// are shared and stay unchanged.
func (m *Model) MapVar(k, i int) int {
	if i < m.NumFirstStage() {
		return i
	}

	return i + k*m.NumSecondStage()
}

// MapParam translates a parameter index of U to the replica of Uk seen by
// policy k. Index 0 (tau) is shared.
func (m *Model) MapParam(k, p int) int {
	if p == 0 {
		return 0
	}

	return p + (k+1)*m.NumParams()
}

// MapK applies MapVar to every index. Indices must lie below NumVars(K) for
// the current K. MapK is not idempotent: mapping twice offsets twice.
func (m *Model) MapK(k int, idx []int) ([]int, error) {
	n := m.NumVars(m.NumPolicies())
	out := make([]int, len(idx))
	for j, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: %d not below %d", ErrVarIndex, i, n)
		}
		out[j] = m.MapVar(k, i)
	}

	return out, nil
}

// MapParamK applies MapParam to every index. Indices must not exceed NumParams.
func (m *Model) MapParamK(k int, idx []int) ([]int, error) {
	P := m.NumParams()
	out := make([]int, len(idx))
	for j, p := range idx {
		if p < 0 || p > P {
			return nil, fmt.Errorf("%w: %d exceeds %d", ErrParamIndex, p, P)
		}
		out[j] = m.MapParam(k, p)
	}

	return out, nil
}

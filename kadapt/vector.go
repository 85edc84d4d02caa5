package kadapt

import "fmt"

func (s *Solver) checkX(x []float64, K int) error {
	if K < 1 {
		return ErrPolicies
	}
	if want := s.m.NumVars(K); len(x) != want {
		return fmt.Errorf("%w: %d entries, want %d for K=%d", ErrDimension, len(x), want, K)
	}

	return nil
}

// NumPolicies derives K from the length of x.
func (s *Solver) NumPolicies(x []float64) (int, error) {
	n1, n2 := s.m.NumFirstStage(), s.m.NumSecondStage()
	if n2 == 0 {
		if len(x) != n1 {
			return 0, fmt.Errorf("%w: %d entries, want %d", ErrDimension, len(x), n1)
		}
		return 1, nil
	}
	if len(x) <= n1 || (len(x)-n1)%n2 != 0 {
		return 0, fmt.Errorf("%w: %d entries do not split into %d + k·%d", ErrDimension, len(x), n1, n2)
	}

	return (len(x) - n1) / n2, nil
}

// ResizeX returns x laid out for K policies: trailing blocks are dropped,
// missing ones are copies of the last block.
func (s *Solver) ResizeX(x []float64, K int) ([]float64, error) {
	cur, err := s.NumPolicies(x)
	if err != nil {
		return nil, err
	}
	if K < 1 {
		return nil, ErrPolicies
	}
	n1, n2 := s.m.NumFirstStage(), s.m.NumSecondStage()
	if K <= cur {
		return append([]float64(nil), x[:n1+K*n2]...), nil
	}
	out := make([]float64, 0, n1+K*n2)
	out = append(out, x...)
	last := x[n1+(cur-1)*n2:]
	for k := cur; k < K; k++ {
		out = append(out, last...)
	}

	return out, nil
}

// RemoveXPolicy returns x without the block of policy k.
func (s *Solver) RemoveXPolicy(x []float64, k int) ([]float64, error) {
	K, err := s.NumPolicies(x)
	if err != nil {
		return nil, err
	}
	if k < 0 || k >= K {
		return nil, fmt.Errorf("%w: %d with K=%d", ErrPolicyIndex, k, K)
	}
	if K == 1 {
		return nil, ErrPolicies
	}
	n1, n2 := s.m.NumFirstStage(), s.m.NumSecondStage()
	out := make([]float64, 0, len(x)-n2)
	out = append(out, x[:n1+k*n2]...)

	return append(out, x[n1+(k+1)*n2:]...), nil
}

// XPolicy returns the one-policy vector made of the first stage and block k.
func (s *Solver) XPolicy(x []float64, k int) ([]float64, error) {
	K, err := s.NumPolicies(x)
	if err != nil {
		return nil, err
	}
	if k < 0 || k >= K {
		return nil, fmt.Errorf("%w: %d with K=%d", ErrPolicyIndex, k, K)
	}
	n1, n2 := s.m.NumFirstStage(), s.m.NumSecondStage()
	out := make([]float64, 0, n1+n2)
	out = append(out, x[:n1]...)

	return append(out, x[n1+k*n2:n1+(k+1)*n2]...), nil
}

// SPDX-License-Identifier: MIT

package instances

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/kadapt/problem"
)

// Problem kinds accepted by Generate.
const (
	KindTest1    = "test1"
	KindKnapsack = "knapsack"
	KindBestBox  = "bestbox"
	KindNP1      = "np1"
	KindElicit   = "elicitation"
)

// ErrKind is returned for an unknown problem kind.
var ErrKind = errors.New("instances: unknown problem kind")

// Kinds lists the supported problem kinds.
func Kinds() []string { return []string{KindTest1, KindKnapsack, KindBestBox, KindNP1, KindElicit} }

// Generate returns the Spec of a generated instance of the given kind. Test1
// and NP1 ignore n, seed and opts.
func Generate(kind string, n int, seed int64, opts ...Option) (problem.Spec, error) {
	switch kind {
	case KindTest1:
		return Test1{}, nil
	case KindNP1:
		return NP1{}, nil
	case KindKnapsack:
		d, err := GenerateKnapsack(n, seed, opts...)
		if err != nil {
			return nil, err
		}
		s, err := NewKnapsack(d)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindBestBox:
		d, err := GenerateBestBox(n, seed, opts...)
		if err != nil {
			return nil, err
		}
		s, err := NewBestBox(d)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindElicit:
		d, err := GenerateElicitation(n, seed, opts...)
		if err != nil {
			return nil, err
		}
		s, err := NewElicitation(d)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrKind, kind)
	}
}

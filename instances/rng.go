// SPDX-License-Identifier: MIT

package instances

import (
	"math/rand"
	"sort"
)

// seedOffset keeps generated instances apart from other seeded streams that
// start at small seeds.
const seedOffset int64 = 1111

// shuffleSeed drives the factor-weight permutation. Every item is shuffled
// from a fresh stream with this seed.
const shuffleSeed int64 = 1

// rngFromSeed returns the generator of instance seed.
func rngFromSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seedOffset + seed))
}

func shuffleRNG() *rand.Rand { return rand.New(rand.NewSource(shuffleSeed)) }

// deriveSeed mixes a parent seed and a stream id (SplitMix64 finalizer).
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return int64(x)
}

// deriveRNG returns an independent stream of seed for the given purpose.
func deriveRNG(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewSource(deriveSeed(seedOffset+seed, stream)))
}

func uniform(r *rand.Rand, lo, hi float64) float64 { return lo + (hi-lo)*r.Float64() }

// simplexWeights returns f non-negative weights summing to one, drawn as the
// gaps between f−1 sorted uniforms.
func simplexWeights(r *rand.Rand, f int) []float64 {
	cuts := make([]float64, f-1)
	for i := range cuts {
		cuts[i] = r.Float64()
	}
	sort.Float64s(cuts)
	out := make([]float64, f)
	prev := 0.0
	for i, c := range cuts {
		out[i] = c - prev
		prev = c
	}
	out[f-1] = 1 - prev

	return out
}

// boundedWeights draws f values in [−a, a] until their absolute sum is at most limit.
func boundedWeights(r *rand.Rand, f int, a, limit float64) []float64 {
	out := make([]float64, f)
	for {
		total := 0.0
		for i := range out {
			out[i] = uniform(r, -a, a)
			if out[i] < 0 {
				total -= out[i]
			} else {
				total += out[i]
			}
		}
		if total <= limit {
			return out
		}
	}
}

func shuffleFloats(a []float64, r *rand.Rand) {
	for i := len(a) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}

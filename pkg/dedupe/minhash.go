package dedupe

import (
	"hash/fnv"
	"math"
)

const mersennePrime = (1 << 61) - 1

// permutation is one (a, b) pair of a MinHash's universal hash family,
// derived deterministically from its index so identical input always
// yields an identical signature regardless of insertion order
// (spec.md §4.4).
type permutation struct {
	a, b uint64
}

// permutations builds numPerm deterministic hash-function parameters using
// a fixed linear congruential sequence — no randomness, no external seed,
// so two engines built with the same numPerm produce byte-identical
// signatures for the same shingle set.
func permutations(numPerm int) []permutation {
	perms := make([]permutation, numPerm)
	var state uint64 = 0x9e3779b97f4a7c15
	for i := 0; i < numPerm; i++ {
		state = state*6364136223846793005 + 1442695040888963407
		a := state%(mersennePrime-1) + 1
		state = state*6364136223846793005 + 1442695040888963407
		b := state % mersennePrime
		perms[i] = permutation{a: a, b: b}
	}
	return perms
}

// MinHash is a fixed-length signature over a set of shingles.
type MinHash struct {
	numPerm int
	signature []uint64
}

// NewMinHash computes the MinHash signature of shingles using numPerm
// permutations (spec.md §4.4 default 128).
func NewMinHash(shingles []string, perms []permutation) *MinHash {
	sig := make([]uint64, len(perms))
	for i := range sig {
		sig[i] = math.MaxUint64
	}
	for _, shingle := range shingles {
		h := hash64(shingle)
		for i, p := range perms {
			v := (p.a*h + p.b) % mersennePrime
			if v < sig[i] {
				sig[i] = v
			}
		}
	}
	return &MinHash{numPerm: len(perms), signature: sig}
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// Jaccard estimates the Jaccard similarity between two MinHash signatures
// as the fraction of matching permutation slots.
func (m *MinHash) Jaccard(other *MinHash) float64 {
	if m.numPerm != other.numPerm || m.numPerm == 0 {
		return 0
	}
	matches := 0
	for i := range m.signature {
		if m.signature[i] == other.signature[i] {
			matches++
		}
	}
	return float64(matches) / float64(m.numPerm)
}

package dedupe

import (
	"fmt"
	"math"
)

// lshIndex is a banded LSH index over MinHash signatures: the signature
// is split into `bands` contiguous bands of `rows` permutations each;
// two signatures sharing an identical band in any position are returned
// as candidates, matching the source's MinHashLSH query semantics.
type lshIndex struct {
	bands   int
	rows    int
	buckets []map[uint64][]string // one bucket map per band
}

// newLSHIndex picks (bands, rows) to approximate the requested similarity
// threshold, mirroring MinHashLSH's parameter search: among all divisor
// pairs of numPerm, choose the one whose "S-curve" crossover (1/bands)^(1/rows)
// is closest to threshold.
func newLSHIndex(numPerm int, threshold float64) *lshIndex {
	bestBands, bestRows := numPerm, 1
	bestDelta := math.Inf(1)
	for rows := 1; rows <= numPerm; rows++ {
		if numPerm%rows != 0 {
			continue
		}
		bands := numPerm / rows
		crossover := math.Pow(1.0/float64(bands), 1.0/float64(rows))
		delta := math.Abs(crossover - threshold)
		if delta < bestDelta {
			bestDelta = delta
			bestBands = bands
			bestRows = rows
		}
	}

	idx := &lshIndex{bands: bestBands, rows: bestRows, buckets: make([]map[uint64][]string, bestBands)}
	for i := range idx.buckets {
		idx.buckets[i] = make(map[uint64][]string)
	}
	return idx
}

func (idx *lshIndex) bandKey(sig []uint64, band int) uint64 {
	start := band * idx.rows
	end := start + idx.rows
	if end > len(sig) {
		end = len(sig)
	}
	h := uint64(1469598103934665603) // FNV offset basis
	for _, v := range sig[start:end] {
		h ^= v
		h *= 1099511628211
	}
	return h
}

// Query returns the set of entry IDs sharing at least one band bucket
// with mh.
func (idx *lshIndex) Query(mh *MinHash) []string {
	seen := make(map[string]struct{})
	for band := 0; band < idx.bands; band++ {
		key := idx.bandKey(mh.signature, band)
		for _, id := range idx.buckets[band][key] {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// Insert adds entryID's signature to every band bucket.
func (idx *lshIndex) Insert(entryID string, mh *MinHash) {
	for band := 0; band < idx.bands; band++ {
		key := idx.bandKey(mh.signature, band)
		idx.buckets[band][key] = append(idx.buckets[band][key], entryID)
	}
}

func (idx *lshIndex) String() string {
	return fmt.Sprintf("lshIndex{bands=%d rows=%d}", idx.bands, idx.rows)
}

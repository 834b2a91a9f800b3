package cluster

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Assignment is a single entry's cluster assignment (spec.md §4.5
// contract).
type Assignment struct {
	FeedEntryID uuid.UUID
	ClusterUUID uuid.UUID
	ClusterID   int
	Similarity  float64
}

// ClusterEntries runs the kNN graph + Union-Find algorithm over entryIDs
// and their embeddings (spec.md §4.5). k is clamped to n-1. Degenerate
// cases: 0 inputs returns nil; 1 input returns a single cluster with
// similarity 1.0.
func ClusterEntries(entryIDs []uuid.UUID, embeddings [][]float32, k int, cosineThreshold float64) []Assignment {
	n := len(entryIDs)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []Assignment{{
			FeedEntryID: entryIDs[0],
			ClusterUUID: uuid.New(),
			ClusterID:   1,
			Similarity:  1.0,
		}}
	}

	normalized := make([][]float64, n)
	for i, v := range embeddings {
		normalized[i] = l2NormalizeF32(v)
	}

	actualK := k
	if actualK > n-1 {
		actualK = n - 1
	}
	if actualK < 1 {
		actualK = 1
	}

	uf := NewUnionFind(n)
	for i := 0; i < n; i++ {
		neighbors := topKNeighbors(normalized, i, actualK)
		for _, j := range neighbors {
			if cosine(normalized[i], normalized[j]) >= cosineThreshold {
				uf.Union(i, j)
			}
		}
	}

	// Group by connected component, preserving first-occurrence order of
	// each root (for stable tie-breaking on equal-size components).
	componentOrder := make([]int, 0, n)
	components := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.Find(i)
		if _, ok := components[root]; !ok {
			componentOrder = append(componentOrder, root)
		}
		components[root] = append(components[root], i)
	}

	groups := make([][]int, len(componentOrder))
	for idx, root := range componentOrder {
		groups[idx] = components[root]
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return len(groups[a]) > len(groups[b])
	})

	assignments := make([]Assignment, 0, n)
	for rank, members := range groups {
		clusterID := rank + 1
		clusterUUID := uuid.New()
		centroid := centroidOf(normalized, members)

		for _, idx := range members {
			sim := cosine(normalized[idx], centroid)
			assignments = append(assignments, Assignment{
				FeedEntryID: entryIDs[idx],
				ClusterUUID: clusterUUID,
				ClusterID:   clusterID,
				Similarity:  sim,
			})
		}
	}

	return assignments
}

// topKNeighbors returns the indices of the k entries most similar to i
// (excluding i itself), by cosine similarity.
func topKNeighbors(vectors [][]float64, i, k int) []int {
	type scored struct {
		idx int
		sim float64
	}
	scores := make([]scored, 0, len(vectors)-1)
	for j := range vectors {
		if j == i {
			continue
		}
		scores = append(scores, scored{idx: j, sim: cosine(vectors[i], vectors[j])})
	}
	sort.Slice(scores, func(a, b int) bool { return scores[a].sim > scores[b].sim })
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]int, k)
	for idx := 0; idx < k; idx++ {
		out[idx] = scores[idx].idx
	}
	return out
}

func centroidOf(vectors [][]float64, members []int) []float64 {
	dim := len(vectors[members[0]])
	centroid := make([]float64, dim)
	for _, idx := range members {
		for d, v := range vectors[idx] {
			centroid[d] += v
		}
	}
	for d := range centroid {
		centroid[d] /= float64(len(members))
	}
	return l2NormalizeF64(centroid)
}

func l2NormalizeF32(v []float32) []float64 {
	out := make([]float64, len(v))
	var sumSq float64
	for i, x := range v {
		out[i] = float64(x)
		sumSq += out[i] * out[i]
	}
	return scaleByNorm(out, sumSq)
}

func l2NormalizeF64(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	return scaleByNorm(v, sumSq)
}

func scaleByNorm(v []float64, sumSq float64) []float64 {
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

package cluster

import (
	"testing"

	"github.com/google/uuid"
)

func TestUnionFindMergesAndCompresses(t *testing.T) {
	uf := NewUnionFind(5)
	uf.Union(0, 1)
	uf.Union(1, 2)
	if uf.Find(0) != uf.Find(2) {
		t.Fatalf("0 and 2 should be in the same set after transitive union")
	}
	if uf.Find(3) == uf.Find(0) {
		t.Fatalf("3 should remain its own set")
	}
}

func TestClusterEntriesEmpty(t *testing.T) {
	got := ClusterEntries(nil, nil, 10, 0.65)
	if got != nil {
		t.Fatalf("expected nil for 0 inputs, got %v", got)
	}
}

func TestClusterEntriesSingleton(t *testing.T) {
	id := uuid.New()
	got := ClusterEntries([]uuid.UUID{id}, [][]float32{{1, 0, 0}}, 10, 0.65)
	if len(got) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(got))
	}
	if got[0].ClusterID != 1 || got[0].Similarity != 1.0 {
		t.Errorf("unexpected singleton assignment: %+v", got[0])
	}
}

func TestClusterEntriesGroupsSimilarVectors(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	embeddings := [][]float32{
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0, 1, 0},
		{0, 0.98, 0.02},
	}
	got := ClusterEntries(ids, embeddings, 3, 0.9)
	if len(got) != 4 {
		t.Fatalf("expected 4 assignments, got %d", len(got))
	}

	byID := make(map[uuid.UUID]Assignment)
	for _, a := range got {
		byID[a.FeedEntryID] = a
	}
	if byID[ids[0]].ClusterID != byID[ids[1]].ClusterID {
		t.Errorf("ids[0] and ids[1] should cluster together")
	}
	if byID[ids[2]].ClusterID != byID[ids[3]].ClusterID {
		t.Errorf("ids[2] and ids[3] should cluster together")
	}
	if byID[ids[0]].ClusterID == byID[ids[2]].ClusterID {
		t.Errorf("the two groups should be distinct clusters")
	}
}

func TestClusterEntriesLargerClusterRanksFirst(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	embeddings := [][]float32{
		{0, 1, 0}, // singleton group, appears first in input
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0.98, 0.02, 0},
		{0.97, 0.03, 0},
	}
	got := ClusterEntries(ids, embeddings, 4, 0.9)
	byID := make(map[uuid.UUID]Assignment)
	for _, a := range got {
		byID[a.FeedEntryID] = a
	}
	if byID[ids[1]].ClusterID != 1 {
		t.Errorf("the 4-member cluster should be rank 1, got %d", byID[ids[1]].ClusterID)
	}
	if byID[ids[0]].ClusterID != 2 {
		t.Errorf("the 1-member cluster should be rank 2, got %d", byID[ids[0]].ClusterID)
	}
}

func TestCosineAndNormalize(t *testing.T) {
	v := l2NormalizeF32([]float32{3, 4, 0})
	got := cosine(v, v)
	if got < 0.999 || got > 1.001 {
		t.Errorf("self cosine similarity should be ~1.0, got %v", got)
	}
}

package flat

import (
	"context"
	"math"
	"testing"
)

func TestSearchRanksByInnerProduct(t *testing.T) {
	idx := New(false)
	for id, vec := range map[string][]float32{"a": {1, 0}, "b": {0.5, 0.5}, "c": {0, 1}} {
		if err := idx.Add(id, vec); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}

	hits, err := idx.Search(context.Background(), []float32{1, 0.1}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ChunkID != "a" || hits[1].ChunkID != "b" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestSearchNormalizedIsCosine(t *testing.T) {
	idx := New(true)
	_ = idx.Add("long", []float32{10, 0})
	_ = idx.Add("diag", []float32{1, 1})

	hits, err := idx.Search(context.Background(), []float32{3, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if hits[0].ChunkID != "long" || math.Abs(hits[0].Score-1) > 1e-6 {
		t.Fatalf("expected cosine 1 for parallel vector, got %+v", hits[0])
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	idx := New(false)
	_ = idx.Add("first", []float32{1, 0})
	_ = idx.Add("second", []float32{1, 0})

	hits, _ := idx.Search(context.Background(), []float32{1, 0}, 2)
	if hits[0].ChunkID != "first" || hits[1].ChunkID != "second" {
		t.Fatalf("expected insertion order on ties, got %+v", hits)
	}
}

func TestDimensionMismatch(t *testing.T) {
	idx := New(false)
	_ = idx.Add("a", []float32{1, 0})
	if err := idx.Add("b", []float32{1, 0, 0}); err == nil {
		t.Fatalf("expected add dimension error")
	}
	if _, err := idx.Search(context.Background(), []float32{1}, 1); err == nil {
		t.Fatalf("expected search dimension error")
	}
}

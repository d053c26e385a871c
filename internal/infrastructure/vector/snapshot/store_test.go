package snapshot

import (
	"context"
	"testing"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

func TestUpsertThenLoadServesSearch(t *testing.T) {
	store, err := Open("", true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	chunks := []domain.Chunk{{ID: "c1", Text: "a"}, {ID: "c2", Text: "b"}}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	if err := store.Upsert(context.Background(), chunks, vectors); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	idx, err := store.Load(context.Background(), false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.Len() != 2 || idx.Dimension() != 3 {
		t.Fatalf("expected 2 vectors of dimension 3, got %d/%d", idx.Len(), idx.Dimension())
	}

	hits, err := idx.Search(context.Background(), []float32{0, 0.9, 0.1}, 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "c2" {
		t.Fatalf("expected c2, got %+v", hits)
	}
}

func TestUpsertRejectsMismatchedInput(t *testing.T) {
	store, err := Open("", true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	err = store.Upsert(context.Background(), []domain.Chunk{{ID: "c1"}}, nil)
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decodeVector() error = %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("expected %v, got %v", in, out)
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for truncated payload")
	}
}

func TestResetDropsStoredVectors(t *testing.T) {
	store, err := Open("", true)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Upsert(ctx, []domain.Chunk{{ID: "stale"}}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := store.Upsert(ctx, []domain.Chunk{{ID: "fresh"}}, [][]float32{{0, 1}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	idx, err := store.Load(ctx, false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.Len() != 1 {
		t.Fatalf("expected only the fresh vector after reset, got %d", idx.Len())
	}
}

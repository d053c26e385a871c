package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

func TestLexicalRetrieverJoinsCorpus(t *testing.T) {
	corpus := newMemCorpus(chunkWithURL("c1", "alpha", "u1"), chunkWithURL("c2", "beta", ""))
	r := NewLexicalRetriever(lexicalIndexFake{hits: []domain.IndexHit{{ChunkID: "c2", Score: 2}, {ChunkID: "c1", Score: 1}}}, corpus)

	hits, err := r.Retrieve(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "c2" || hits[0].Chunk.Text != "beta" || hits[0].Score != 2 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestRetrieverUnknownChunkIsRetrievalError(t *testing.T) {
	corpus := newMemCorpus(chunkWithURL("c1", "alpha", "u1"))
	index := &vectorIndexFake{hits: []domain.IndexHit{{ChunkID: "stale", Score: 0.9}}}
	r := NewDenseRetriever(&embedderFake{vector: []float32{1, 0}}, index, corpus)

	_, err := r.Retrieve(context.Background(), "q", 5)
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestDenseRetrieverWrapsIndexFailure(t *testing.T) {
	corpus := newMemCorpus(chunkWithURL("c1", "alpha", "u1"))
	index := &vectorIndexFake{err: errors.New("qdrant unavailable")}
	r := NewDenseRetriever(&embedderFake{vector: []float32{1, 0}}, index, corpus)

	_, err := r.Retrieve(context.Background(), "q", 7)
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
	if index.k != 7 {
		t.Fatalf("expected k=7 passed to index, got %d", index.k)
	}
}

func TestDenseRetrieverChecksDimension(t *testing.T) {
	corpus := newMemCorpus(chunkWithURL("c1", "alpha", "u1"))
	index := &vectorIndexFake{}
	r := NewDenseRetriever(&embedderFake{vector: []float32{1, 0, 0}}, index, corpus).WithDimension(2)

	_, err := r.Retrieve(context.Background(), "q", 3)
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval for dimension mismatch, got %v", err)
	}
}

func TestRetrieversReturnNothingForEmptyCorpus(t *testing.T) {
	corpus := newMemCorpus()
	embedder := &embedderFake{vector: []float32{1}}
	lexical := NewLexicalRetriever(lexicalIndexFake{}, corpus)
	dense := NewDenseRetriever(embedder, &vectorIndexFake{}, corpus)

	for _, r := range []Retriever{lexical, dense} {
		hits, err := r.Retrieve(context.Background(), "anything", 10)
		if err != nil || len(hits) != 0 {
			t.Fatalf("expected no hits and no error, got %d, %v", len(hits), err)
		}
	}
	if embedder.calls != 0 {
		t.Fatalf("expected no embedding call for empty corpus")
	}
}

func TestRetrieversAreDeterministic(t *testing.T) {
	corpus := newMemCorpus(chunkWithURL("c1", "alpha", "u1"), chunkWithURL("c2", "beta", "u2"))
	index := &vectorIndexFake{hits: []domain.IndexHit{{ChunkID: "c1", Score: 0.4}, {ChunkID: "c2", Score: 0.3}}}
	r := NewDenseRetriever(&embedderFake{vector: []float32{1}}, index, corpus)

	first, _ := r.Retrieve(context.Background(), "q", 2)
	second, _ := r.Retrieve(context.Background(), "q", 2)
	for i := range first {
		if first[i].ChunkID != second[i].ChunkID || first[i].Score != second[i].Score {
			t.Fatalf("expected identical results, got %+v vs %+v", first, second)
		}
	}
}

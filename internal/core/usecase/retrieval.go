package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
)

// Retriever returns up to k hits for query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredHit, error)
}

type LexicalRetriever struct {
	index  ports.LexicalIndex
	corpus ports.CorpusReader
}

func NewLexicalRetriever(index ports.LexicalIndex, corpus ports.CorpusReader) *LexicalRetriever {
	return &LexicalRetriever{index: index, corpus: corpus}
}

func (r *LexicalRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || r.corpus.Len() == 0 {
		return nil, nil
	}
	return resolveHits(r.corpus, r.index.Search(query, k), k, "lexical search")
}

type DenseRetriever struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	corpus    ports.CorpusReader
	dimension int
}

func NewDenseRetriever(embedder ports.Embedder, index ports.VectorIndex, corpus ports.CorpusReader) *DenseRetriever {
	return &DenseRetriever{embedder: embedder, index: index, corpus: corpus}
}

// WithDimension makes every query vector be checked against the dimension
// recorded when the index was built.
func (r *DenseRetriever) WithDimension(dimension int) *DenseRetriever {
	r.dimension = dimension
	return r
}

func (r *DenseRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 || r.corpus.Len() == 0 {
		return nil, nil
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.WrapError(domain.ErrRetrieval, "embed query", err)
	}
	if r.dimension > 0 && len(vector) != r.dimension {
		return nil, domain.WrapError(domain.ErrRetrieval, "embed query", fmt.Errorf(
			"query vector has dimension %d, index was built with %d", len(vector), r.dimension,
		))
	}

	hits, err := r.index.Search(ctx, vector, k)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.WrapError(domain.ErrRetrieval, "dense search", err)
	}
	return resolveHits(r.corpus, hits, k, "dense search")
}

// resolveHits joins index hits with the corpus. A hit the corpus does not know
// means the index and the corpus snapshot diverged.
func resolveHits(corpus ports.CorpusReader, hits []domain.IndexHit, k int, operation string) ([]domain.ScoredHit, error) {
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]domain.ScoredHit, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := corpus.Chunk(hit.ChunkID)
		if !ok {
			return nil, domain.WrapError(domain.ErrRetrieval, operation, fmt.Errorf(
				"index returned chunk %q which is not in the corpus", hit.ChunkID,
			))
		}
		out = append(out, domain.ScoredHit{ChunkID: hit.ChunkID, Chunk: chunk, Score: hit.Score})
	}
	return out, nil
}

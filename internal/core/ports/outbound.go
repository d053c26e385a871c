package ports

import (
	"context"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// CorpusSource reads raw chunk records from wherever the corpus snapshot lives.
type CorpusSource interface {
	ReadRecords(ctx context.Context) ([]domain.CorpusRecord, error)
}

// CorpusReader is the read-only view of the loaded corpus.
type CorpusReader interface {
	Chunk(id string) (domain.Chunk, bool)
	Chunks() []domain.Chunk
	Len() int
}

// LexicalIndex ranks chunk ids by term statistics. It is local and never fails.
type LexicalIndex interface {
	Search(query string, k int) []domain.IndexHit
}

// VectorIndex ranks chunk ids by similarity to a query vector.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.IndexHit, error)
}

// VectorWriter stores chunk vectors during an offline index build.
type VectorWriter interface {
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelID() string
}

// CrossEncoder scores (query, text) pairs. Scores are returned in input order.
type CrossEncoder interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// NLIClassifier returns raw logits for the (premise, hypothesis) pair.
type NLIClassifier interface {
	Classify(ctx context.Context, premise, hypothesis string) ([]domain.LabelScore, error)
}

// AnswerGenerator creates the final user-facing answer from a grounding context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, contextText string) (string, error)
}

package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
)

// rerankCandidates orders candidates by cross-encoder score and keeps the
// first topN. The output never contains a chunk absent from candidates.
func rerankCandidates(
	ctx context.Context,
	scorer ports.CrossEncoder,
	question string,
	candidates []domain.FusedHit,
	topN int,
) ([]domain.RankedChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		texts[i] = candidate.Chunk.Text
	}

	scores, err := scorer.Score(ctx, question, texts)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder score: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("cross-encoder returned %d scores for %d candidates", len(scores), len(candidates))
	}

	ranked := make([]domain.RankedChunk, len(candidates))
	for i, candidate := range candidates {
		score := scores[i]
		if math.IsNaN(score) {
			score = math.Inf(-1)
		}
		ranked[i] = domain.RankedChunk{
			Chunk:       candidate.Chunk,
			FusedScore:  candidate.CombinedScore,
			RerankScore: score,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RerankScore > ranked[j].RerankScore
	})
	return trimRanked(ranked, topN), nil
}

// fusedOrder is the context used when no cross-encoder is available.
func fusedOrder(candidates []domain.FusedHit, topN int) []domain.RankedChunk {
	ranked := make([]domain.RankedChunk, 0, len(candidates))
	for _, candidate := range candidates {
		ranked = append(ranked, domain.RankedChunk{
			Chunk:       candidate.Chunk,
			FusedScore:  candidate.CombinedScore,
			RerankScore: candidate.CombinedScore,
		})
	}
	return trimRanked(ranked, topN)
}

func trimRanked(ranked []domain.RankedChunk, limit int) []domain.RankedChunk {
	if limit <= 0 || len(ranked) <= limit {
		return ranked
	}
	return ranked[:limit]
}

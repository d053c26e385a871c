package usecase

import (
	"sort"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// FusionWeights scale each retriever's raw score before summing. Scores are
// not normalized; equal weights reproduce a plain sum.
type FusionWeights struct {
	Lexical float64
	Dense   float64
}

func (w FusionWeights) orDefault() FusionWeights {
	if w.Lexical == 0 && w.Dense == 0 {
		return FusionWeights{Lexical: 1, Dense: 1}
	}
	return w
}

// fuseHits sums weighted scores per chunk id. Entries are created in
// first-encounter order (lexical list, then new dense ids) and the stable sort
// keeps that order among equal scores.
func fuseHits(lexical, dense []domain.ScoredHit, weights FusionWeights) []domain.FusedHit {
	weights = weights.orDefault()

	out := make([]domain.FusedHit, 0, len(lexical)+len(dense))
	position := make(map[string]int, len(lexical)+len(dense))
	addList := func(hits []domain.ScoredHit, weight float64) {
		for _, hit := range hits {
			if idx, ok := position[hit.ChunkID]; ok {
				out[idx].CombinedScore += weight * hit.Score
				continue
			}
			position[hit.ChunkID] = len(out)
			out = append(out, domain.FusedHit{
				ChunkID:       hit.ChunkID,
				Chunk:         hit.Chunk,
				CombinedScore: weight * hit.Score,
			})
		}
	}

	addList(lexical, weights.Lexical)
	addList(dense, weights.Dense)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CombinedScore > out[j].CombinedScore
	})
	return out
}

func trimFused(hits []domain.FusedHit, limit int) []domain.FusedHit {
	if limit <= 0 || len(hits) <= limit {
		return hits
	}
	return hits[:limit]
}

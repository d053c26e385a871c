package usecase

import (
	"strings"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// buildCitations numbers distinct urls from 1 in rank order. Chunks without a
// url do not take a slot.
func buildCitations(ranked []domain.RankedChunk) []domain.Citation {
	citations := make([]domain.Citation, 0, len(ranked))
	seen := make(map[string]struct{}, len(ranked))
	for _, item := range ranked {
		url := strings.TrimSpace(item.Chunk.Metadata.URL)
		if url == "" {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		citations = append(citations, domain.Citation{Index: len(citations) + 1, URL: url})
	}
	return citations
}

func joinContext(ranked []domain.RankedChunk) string {
	texts := make([]string, 0, len(ranked))
	for _, item := range ranked {
		texts = append(texts, item.Chunk.Text)
	}
	return strings.Join(texts, "\n\n")
}

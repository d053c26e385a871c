// Package overlap is an in-process stand-in for a cross-encoder. It scores a
// passage by the share of query terms it contains, with a small bonus for
// query bigrams that appear verbatim.
package overlap

import (
	"context"
	"strings"

	"github.com/kirillkom/groundedqa/internal/infrastructure/lexical/bm25"
)

const bigramWeight = 0.25

type Scorer struct{}

func New() *Scorer {
	return &Scorer{}
}

func (s *Scorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTokens := bm25.Tokenize(query)
	querySet := toTokenSet(queryTokens)
	bigrams := toBigrams(queryTokens)

	scores := make([]float64, len(texts))
	for i, text := range texts {
		tokens := bm25.Tokenize(text)
		scores[i] = tokenOverlap(querySet, toTokenSet(tokens)) + bigramWeight*bigramOverlap(bigrams, toBigrams(tokens))
	}
	return scores, nil
}

func tokenOverlap(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func bigramOverlap(query []string, chunk []string) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	present := toTokenSet(chunk)
	matches := 0
	for _, bigram := range query {
		if _, ok := present[bigram]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(tokens []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func toBigrams(tokens []string) []string {
	if len(tokens) < 2 {
		return nil
	}
	out := make([]string, 0, len(tokens)-1)
	for i := 1; i < len(tokens); i++ {
		out = append(out, strings.Join(tokens[i-1:i+1], " "))
	}
	return out
}

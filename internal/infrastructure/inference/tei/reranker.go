package tei

import (
	"context"
	"fmt"
)

// Reranker scores (query, passage) pairs with a cross-encoder.
type Reranker struct {
	client *Client
}

func NewReranker(client *Client) *Reranker {
	return &Reranker{client: client}
}

// Score returns one raw score per text, in input order.
func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	request := map[string]any{
		"query":      query,
		"texts":      texts,
		"raw_scores": true,
		"truncate":   true,
	}
	var response []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := r.client.postJSON(ctx, "/rerank", request, &response, "rerank"); err != nil {
		return nil, err
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, item := range response {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("rerank: index %d out of range for %d texts", item.Index, len(texts))
		}
		scores[item.Index] = item.Score
		seen[item.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank: no score for text %d", i)
		}
	}
	return scores, nil
}

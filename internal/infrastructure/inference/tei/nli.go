package tei

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// NLI classifies a (premise, hypothesis) pair and returns raw logits.
type NLI struct {
	client *Client
}

func NewNLI(client *Client) *NLI {
	return &NLI{client: client}
}

func (n *NLI) Classify(ctx context.Context, premise, hypothesis string) ([]domain.LabelScore, error) {
	request := map[string]any{
		"inputs":     []string{premise, hypothesis},
		"raw_scores": true,
		"truncate":   true,
	}
	var raw json.RawMessage
	if err := n.client.postJSON(ctx, "/predict", request, &raw, "predict"); err != nil {
		return nil, err
	}
	return decodePrediction(raw)
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// decodePrediction accepts both the single-pair and the batched response
// shapes.
func decodePrediction(raw json.RawMessage) ([]domain.LabelScore, error) {
	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		var batched [][]labelScore
		if err := json.Unmarshal(raw, &batched); err != nil {
			return nil, fmt.Errorf("decode predict response: %w", err)
		}
		if len(batched) == 0 {
			return nil, errors.New("predict: empty batch")
		}
		flat = batched[0]
	}
	if len(flat) == 0 {
		return nil, errors.New("predict: no labels returned")
	}

	out := make([]domain.LabelScore, len(flat))
	for i, ls := range flat {
		out[i] = domain.LabelScore{Label: ls.Label, Score: ls.Score}
	}
	return out, nil
}

package tei

import (
	"context"
	"fmt"
)

type Embedder struct {
	client    *Client
	model     string
	normalize bool
}

// NewEmbedder returns an embedder identified by model in index manifests.
func NewEmbedder(client *Client, model string, normalize bool) *Embedder {
	return &Embedder{client: client, model: model, normalize: normalize}
}

func (e *Embedder) ModelID() string {
	return e.model
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	request := map[string]any{
		"inputs":    texts,
		"normalize": e.normalize,
		"truncate":  true,
	}
	var vectors [][]float32
	if err := e.client.postJSON(ctx, "/embed", request, &vectors, "embed"); err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

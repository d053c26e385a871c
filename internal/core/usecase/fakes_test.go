package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

type memCorpus struct {
	chunks []domain.Chunk
	byID   map[string]domain.Chunk
}

func newMemCorpus(chunks ...domain.Chunk) *memCorpus {
	c := &memCorpus{chunks: chunks, byID: make(map[string]domain.Chunk, len(chunks))}
	for _, chunk := range chunks {
		c.byID[chunk.ID] = chunk
	}
	return c
}

func (c *memCorpus) Chunk(id string) (domain.Chunk, bool) {
	chunk, ok := c.byID[id]
	return chunk, ok
}
func (c *memCorpus) Chunks() []domain.Chunk { return c.chunks }
func (c *memCorpus) Len() int               { return len(c.chunks) }

func chunkWithURL(id, text, url string) domain.Chunk {
	return domain.Chunk{ID: id, Text: text, Metadata: domain.ChunkMetadata{URL: url}}
}

type lexicalIndexFake struct {
	hits []domain.IndexHit
}

func (f lexicalIndexFake) Search(string, int) []domain.IndexHit { return f.hits }

type vectorIndexFake struct {
	hits []domain.IndexHit
	err  error
	k    int
}

func (f *vectorIndexFake) Search(_ context.Context, _ []float32, k int) ([]domain.IndexHit, error) {
	f.k = k
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type embedderFake struct {
	vector []float32
	err    error

	mu    sync.Mutex
	calls int
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *embedderFake) ModelID() string { return "fake-embed" }

type crossEncoderFake struct {
	scores map[string]float64
	err    error
}

func (f crossEncoderFake) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(texts))
	for i, text := range texts {
		out[i] = f.scores[text]
	}
	return out, nil
}

type nliFake struct {
	logits []domain.LabelScore
	err    error

	premise    string
	hypothesis string
}

func (f *nliFake) Classify(_ context.Context, premise, hypothesis string) ([]domain.LabelScore, error) {
	f.premise = premise
	f.hypothesis = hypothesis
	if f.err != nil {
		return nil, f.err
	}
	return f.logits, nil
}

type generatorFake struct {
	answer string
	err    error

	contextText string
	calls       int
}

func (f *generatorFake) GenerateAnswer(_ context.Context, _ string, contextText string) (string, error) {
	f.calls++
	f.contextText = contextText
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type observerFake struct {
	mu        sync.Mutex
	stages    map[string]int
	outcomes  []string
	fallbacks int
}

func (o *observerFake) ObserveStage(stage string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stages == nil {
		o.stages = make(map[string]int)
	}
	o.stages[stage]++
}

func (o *observerFake) ObserveOutcome(kind string, _ int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, kind)
}

func (o *observerFake) ObserveVerification(*float64) {}

func (o *observerFake) ObserveRerankFallback() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks++
}

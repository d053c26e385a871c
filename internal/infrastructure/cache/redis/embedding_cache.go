package redis

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/groundedqa/internal/core/ports"
)

var _ ports.Embedder = (*CachedEmbedder)(nil)

const embeddingPrefix = "emb:"

// CachedEmbedder serves repeated texts from Redis. Redis failures are logged
// and bypassed; they never fail an embedding call.
type CachedEmbedder struct {
	next    ports.Embedder
	client  *redis.Client
	ttl     time.Duration
	variant string
}

func NewCachedEmbedder(next ports.Embedder, client *redis.Client, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, client: client, ttl: ttl}
}

// WithVariant separates cache entries for the same model whose vectors are
// post-processed differently, such as normalized and raw output.
func (c *CachedEmbedder) WithVariant(variant string) *CachedEmbedder {
	c.variant = variant
	return c
}

func (c *CachedEmbedder) ModelID() string {
	return c.next.ModelID()
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	out := make([][]float32, len(texts))
	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Warn("embedding_cache_unavailable", "operation", "mget", "error", err)
		cached = nil
	}
	for i, value := range cached {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		if vector, ok := decodeVector([]byte(raw)); ok {
			out[i] = vector
		}
	}

	var missing []int
	for i := range out {
		if out[i] == nil {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missing))
	for j, i := range missing {
		missTexts[j] = texts[i]
	}
	vectors, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedding cache: got %d vectors for %d texts", len(vectors), len(missing))
	}

	pipe := c.client.Pipeline()
	for j, i := range missing {
		out[i] = vectors[j]
		pipe.Set(ctx, keys[i], encodeVector(vectors[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("embedding_cache_unavailable", "operation", "set", "error", err)
	}
	return out, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	prefix := embeddingPrefix + c.next.ModelID() + ":"
	if c.variant != "" {
		prefix += c.variant + ":"
	}
	return prefix + hex.EncodeToString(sum[:])
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, bool) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, true
}

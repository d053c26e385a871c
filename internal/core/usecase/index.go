package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
)

type IndexBuildConfig struct {
	BatchSize int
	Workers   int
	Backend   string
}

// IndexBuilder embeds the whole corpus and writes it to a dense index. It is
// an offline operation and never runs on the query path.
type IndexBuilder struct {
	corpus   ports.CorpusReader
	embedder ports.Embedder
	writer   ports.VectorWriter
	cfg      IndexBuildConfig
}

func NewIndexBuilder(corpus ports.CorpusReader, embedder ports.Embedder, writer ports.VectorWriter, cfg IndexBuildConfig) *IndexBuilder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &IndexBuilder{corpus: corpus, embedder: embedder, writer: writer, cfg: cfg}
}

func (b *IndexBuilder) Build(ctx context.Context) (domain.IndexManifest, error) {
	chunks := b.corpus.Chunks()
	if len(chunks) == 0 {
		return domain.IndexManifest{}, domain.WrapError(domain.ErrLoad, "build index", errors.New("corpus is empty"))
	}

	var batches [][]domain.Chunk
	for start := 0; start < len(chunks); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(chunks))
		batches = append(batches, chunks[start:end])
	}

	vectors, err := b.embedBatches(ctx, batches)
	if err != nil {
		return domain.IndexManifest{}, err
	}

	dimension := 0
	for i, batch := range batches {
		for j, vector := range vectors[i] {
			if dimension == 0 {
				dimension = len(vector)
			}
			if len(vector) == 0 || len(vector) != dimension {
				return domain.IndexManifest{}, fmt.Errorf("embedding for chunk %q has dimension %d, expected %d", batch[j].ID, len(vector), dimension)
			}
		}
		if err := b.writer.Upsert(ctx, batch, vectors[i]); err != nil {
			return domain.IndexManifest{}, fmt.Errorf("write batch %d: %w", i, err)
		}
		slog.Info("index_batch_written", "batch", i+1, "batches", len(batches), "chunks", len(batch))
	}

	return domain.IndexManifest{
		EmbedModel: b.embedder.ModelID(),
		Dimension:  dimension,
		ChunkCount: len(chunks),
		Backend:    b.cfg.Backend,
		BuiltAt:    time.Now().UTC(),
	}, nil
}

func (b *IndexBuilder) embedBatches(ctx context.Context, batches [][]domain.Chunk) ([][][]float32, error) {
	pool, err := ants.NewPool(b.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	out := make([][][]float32, len(batches))
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		errMu.Lock()
		defer errMu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for i, batch := range batches {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			texts := make([]string, len(batch))
			for j, chunk := range batch {
				texts[j] = chunk.Text
			}
			vectors, err := b.embedder.Embed(ctx, texts)
			if err != nil {
				setErr(fmt.Errorf("embed batch %d: %w", i, err))
				return
			}
			if len(vectors) != len(batch) {
				setErr(fmt.Errorf("embed batch %d: got %d vectors for %d chunks", i, len(vectors), len(batch)))
				return
			}
			out[i] = vectors
		})
		if submitErr != nil {
			wg.Done()
			setErr(fmt.Errorf("submit embed batch %d: %w", i, submitErr))
			break
		}
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

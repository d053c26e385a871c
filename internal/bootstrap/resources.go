package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/core/ports"
	"github.com/kirillkom/groundedqa/internal/infrastructure/cache/redis"
	"github.com/kirillkom/groundedqa/internal/infrastructure/corpus"
	"github.com/kirillkom/groundedqa/internal/infrastructure/inference/overlap"
	"github.com/kirillkom/groundedqa/internal/infrastructure/inference/tei"
	"github.com/kirillkom/groundedqa/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/groundedqa/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/groundedqa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/groundedqa/internal/infrastructure/vector/pgvector"
	"github.com/kirillkom/groundedqa/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/groundedqa/internal/infrastructure/vector/snapshot"
)

// resources builds infrastructure adapters from config and remembers what has
// to be released. Shared handles (Postgres, the inference client) are opened
// at most once.
type resources struct {
	cfg config.Config

	db        *sql.DB
	inference *tei.Client
	closers   []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (r *resources) onClose(name string, fn func() error) {
	r.closers = append(r.closers, namedCloser{name: name, close: fn})
}

// Close releases resources in reverse order of acquisition.
func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].close(); err != nil {
			slog.Warn("resource_close_failed", "resource", r.closers[i].name, "error", err)
		}
	}
	r.closers = nil
}

func (r *resources) postgres() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := postgres.OpenDB(r.cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	r.db = db
	r.onClose("postgres", db.Close)
	return db, nil
}

func (r *resources) inferenceClient() *tei.Client {
	if r.inference == nil {
		r.inference = tei.New(r.cfg.InferenceURL, r.cfg.InferenceTimeout)
	}
	return r.inference
}

func (r *resources) loadCorpus(ctx context.Context) (*corpus.Store, error) {
	var source ports.CorpusSource
	switch r.cfg.CorpusSource {
	case "postgres":
		db, err := r.postgres()
		if err != nil {
			return nil, err
		}
		source = postgres.NewChunkRepository(db)
	default:
		source = corpus.NewJSONLSource(r.cfg.CorpusPath)
	}

	store, err := corpus.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	slog.Info("corpus_loaded", "source", r.cfg.CorpusSource, "chunks", store.Len())
	return store, nil
}

// embedder returns the query and document embedder, behind the Redis cache
// when REDIS_ADDR is set. An unreachable Redis only disables caching.
func (r *resources) embedder(ctx context.Context) (ports.Embedder, error) {
	var embedder ports.Embedder
	switch r.cfg.EmbedderProvider {
	case "ollama":
		embedder = ollama.NewEmbedder(ollama.New(r.cfg.OllamaURL, r.cfg.OllamaGenModel, r.cfg.EmbedModel))
	default:
		embedder = tei.NewEmbedder(r.inferenceClient(), r.cfg.EmbedModel, r.cfg.NormalizeVectors)
	}

	if r.cfg.RedisAddr == "" {
		return embedder, nil
	}
	client := goredis.NewClient(&goredis.Options{Addr: r.cfg.RedisAddr})
	r.onClose("redis", client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("embedding_cache_unavailable", "addr", r.cfg.RedisAddr, "error", err)
	}
	variant := "raw"
	if r.cfg.NormalizeVectors {
		variant = "normalized"
	}
	return redis.NewCachedEmbedder(embedder, client, r.cfg.EmbedCacheTTL).WithVariant(variant), nil
}

// vectorIndex opens the configured dense backend for queries. The snapshot
// backend is copied into memory and badger is closed right away.
func (r *resources) vectorIndex(ctx context.Context) (ports.VectorIndex, error) {
	switch r.cfg.DenseBackend {
	case "qdrant":
		return qdrant.New(r.cfg.QdrantURL, r.cfg.QdrantCollection), nil
	case "pgvector":
		db, err := r.postgres()
		if err != nil {
			return nil, err
		}
		return pgvector.New(db), nil
	default:
		store, err := snapshot.Open(r.cfg.SnapshotPath, false)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.Warn("resource_close_failed", "resource", "snapshot", "error", err)
			}
		}()
		index, err := store.Load(ctx, r.cfg.NormalizeVectors)
		if err != nil {
			return nil, err
		}
		slog.Info("dense_index_loaded", "backend", "snapshot", "vectors", index.Len(), "dimension", index.Dimension())
		return index, nil
	}
}

type resettableWriter interface {
	ports.VectorWriter
	Reset(ctx context.Context) error
}

// vectorWriter opens the configured dense backend for an index build and
// clears it first.
func (r *resources) vectorWriter(ctx context.Context) (ports.VectorWriter, error) {
	var writer resettableWriter
	switch r.cfg.DenseBackend {
	case "qdrant":
		writer = qdrant.New(r.cfg.QdrantURL, r.cfg.QdrantCollection)
	case "pgvector":
		db, err := r.postgres()
		if err != nil {
			return nil, err
		}
		writer = pgvector.New(db)
	default:
		store, err := snapshot.Open(r.cfg.SnapshotPath, false)
		if err != nil {
			return nil, err
		}
		r.onClose("snapshot", store.Close)
		writer = store
	}

	if err := writer.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset %s index: %w", r.cfg.DenseBackend, err)
	}
	return writer, nil
}

// crossEncoder returns nil when reranking is disabled; the pipeline then keeps
// the fused order.
func (r *resources) crossEncoder() ports.CrossEncoder {
	switch r.cfg.RerankerProvider {
	case "none":
		return nil
	case "overlap":
		return overlap.New()
	default:
		return tei.NewReranker(r.inferenceClient())
	}
}

func (r *resources) nliClassifier() ports.NLIClassifier {
	return tei.NewNLI(r.inferenceClient())
}

func (r *resources) generator(ctx context.Context) (ports.AnswerGenerator, error) {
	switch r.cfg.GeneratorProvider {
	case "ollama":
		return ollama.NewGenerator(ollama.New(r.cfg.OllamaURL, r.cfg.OllamaGenModel, r.cfg.EmbedModel)), nil
	default:
		return gemini.New(ctx, gemini.Config{
			APIKey:  r.cfg.GeminiAPIKey,
			Model:   r.cfg.GeminiModel,
			BaseURL: r.cfg.GeminiBaseURL,
		})
	}
}

package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
	"github.com/kirillkom/groundedqa/internal/core/usecase"
	"github.com/kirillkom/groundedqa/internal/infrastructure/corpus"
	"github.com/kirillkom/groundedqa/internal/infrastructure/lexical/bm25"
	"github.com/kirillkom/groundedqa/internal/infrastructure/llm"
	"github.com/kirillkom/groundedqa/internal/infrastructure/resilience"
	"github.com/kirillkom/groundedqa/internal/infrastructure/vector/manifest"
)

// Retrieval is the read-only part of the service: corpus, both retrievers and
// the query embedder. It is enough for retriever evaluation.
type Retrieval struct {
	Config   config.Config
	Corpus   *corpus.Store
	Lexical  *usecase.LexicalRetriever
	Dense    *usecase.DenseRetriever
	Embedder ports.Embedder
	Manifest domain.IndexManifest

	res *resources
}

// App is the full query bundle, built once per process and shared by every
// request.
type App struct {
	*Retrieval

	QueryUC *usecase.QueryUseCase
}

// NewRetrieval loads the corpus, builds the lexical index and opens the dense
// index after checking its manifest against the query embedder.
func NewRetrieval(ctx context.Context, cfg config.Config) (*Retrieval, error) {
	if err := cfg.ValidateOffline(); err != nil {
		return nil, err
	}
	res := &resources{cfg: cfg}

	store, err := res.loadCorpus(ctx)
	if err != nil {
		res.Close()
		return nil, err
	}

	embedder, err := res.embedder(ctx)
	if err != nil {
		res.Close()
		return nil, err
	}

	m, err := manifest.Read(cfg.ManifestPath)
	if err != nil {
		res.Close()
		return nil, err
	}
	if err := manifest.Verify(m, embedder.ModelID(), store.Len()); err != nil {
		res.Close()
		return nil, err
	}

	index, err := res.vectorIndex(ctx)
	if err != nil {
		res.Close()
		return nil, err
	}

	return &Retrieval{
		Config:   cfg,
		Corpus:   store,
		Lexical:  usecase.NewLexicalRetriever(bm25.New(store.Chunks()), store),
		Dense:    usecase.NewDenseRetriever(embedder, index, store).WithDimension(m.Dimension),
		Embedder: embedder,
		Manifest: m,
		res:      res,
	}, nil
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	retrieval, err := NewRetrieval(ctx, cfg)
	if err != nil {
		return nil, err
	}

	generator, err := retrieval.res.generator(ctx)
	if err != nil {
		retrieval.Close()
		return nil, err
	}
	guarded := llm.NewGuardedGenerator(generator, resilience.NewExecutor(ResilienceConfig(cfg)), cfg.GenerationTimeout)

	verifier := usecase.NewVerifier(retrieval.res.nliClassifier(), usecase.VerifierConfig{
		Threshold:       cfg.NLIThreshold,
		EntailmentLabel: cfg.NLIEntailmentLabel,
		EntailmentIndex: cfg.NLIEntailmentIndex,
	})

	queryUC := usecase.NewQueryUseCase(
		retrieval.Lexical,
		retrieval.Dense,
		retrieval.res.crossEncoder(),
		guarded,
		verifier,
		QueryConfig(cfg),
	)

	return &App{
		Retrieval: retrieval,
		QueryUC:   queryUC,
	}, nil
}

// NewEvaluator compares the lexical, dense and fused retrievers at cutoff k.
func (r *Retrieval) NewEvaluator(k int) *usecase.RetrieverEvaluator {
	return usecase.NewRetrieverEvaluator(r.Lexical, r.Dense, usecase.EvalConfig{
		K:       k,
		FetchK:  max(k, r.Config.RAGLexicalTopK, r.Config.RAGDenseTopK),
		Workers: r.Config.IndexWorkers,
		Fusion: usecase.FusionWeights{
			Lexical: r.Config.RAGFusionLexicalWeight,
			Dense:   r.Config.RAGFusionDenseWeight,
		},
	})
}

func (r *Retrieval) Close() {
	if r != nil && r.res != nil {
		r.res.Close()
	}
}

func QueryConfig(cfg config.Config) usecase.QueryConfig {
	return usecase.QueryConfig{
		LexicalTopK:      cfg.RAGLexicalTopK,
		DenseTopK:        cfg.RAGDenseTopK,
		RerankCandidates: cfg.RAGRerankCandidates,
		ContextTopN:      cfg.RAGContextTopN,
		Fusion: usecase.FusionWeights{
			Lexical: cfg.RAGFusionLexicalWeight,
			Dense:   cfg.RAGFusionDenseWeight,
		},
		AppendExcerpts: cfg.AnswerAppendExcerpts,
	}
}

func ResilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.RetryMaxAttempts
	out.RetryInitialBackoff = cfg.RetryInitialBackoff
	out.RetryMaxBackoff = cfg.RetryMaxBackoff
	out.BreakerEnabled = cfg.BreakerEnabled
	return out
}

// Indexer is the offline build path: corpus, document embedder and a writable
// dense backend. It does not need a manifest or a generator.
type Indexer struct {
	Config  config.Config
	Corpus  *corpus.Store
	Builder *usecase.IndexBuilder

	res *resources
}

func NewIndexer(ctx context.Context, cfg config.Config) (*Indexer, error) {
	if err := cfg.ValidateOffline(); err != nil {
		return nil, err
	}
	res := &resources{cfg: cfg}

	store, err := res.loadCorpus(ctx)
	if err != nil {
		res.Close()
		return nil, err
	}
	embedder, err := res.embedder(ctx)
	if err != nil {
		res.Close()
		return nil, err
	}
	writer, err := res.vectorWriter(ctx)
	if err != nil {
		res.Close()
		return nil, err
	}

	builder := usecase.NewIndexBuilder(store, embedder, writer, usecase.IndexBuildConfig{
		BatchSize: cfg.IndexBatchSize,
		Workers:   cfg.IndexWorkers,
		Backend:   cfg.DenseBackend,
	})
	return &Indexer{Config: cfg, Corpus: store, Builder: builder, res: res}, nil
}

// Build embeds the corpus, writes the vectors and records the manifest.
func (i *Indexer) Build(ctx context.Context) (domain.IndexManifest, error) {
	m, err := i.Builder.Build(ctx)
	if err != nil {
		return domain.IndexManifest{}, err
	}
	if err := manifest.Write(i.Config.ManifestPath, m); err != nil {
		return domain.IndexManifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

func (i *Indexer) Close() {
	if i != nil && i.res != nil {
		i.res.Close()
	}
}

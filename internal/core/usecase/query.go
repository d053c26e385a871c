package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
)

const excerptsHeader = "\n\nHere are the most relevant excerpts from official sources:\n\n"

type QueryConfig struct {
	LexicalTopK      int
	DenseTopK        int
	RerankCandidates int
	ContextTopN      int
	Fusion           FusionWeights
	AppendExcerpts   bool
}

func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		LexicalTopK:      10,
		DenseTopK:        10,
		RerankCandidates: 20,
		ContextTopN:      5,
		Fusion:           FusionWeights{Lexical: 1, Dense: 1},
	}
}

func (c QueryConfig) normalize() QueryConfig {
	out := c
	def := DefaultQueryConfig()
	if out.LexicalTopK <= 0 {
		out.LexicalTopK = def.LexicalTopK
	}
	if out.DenseTopK <= 0 {
		out.DenseTopK = def.DenseTopK
	}
	if out.RerankCandidates <= 0 {
		out.RerankCandidates = def.RerankCandidates
	}
	if out.ContextTopN <= 0 {
		out.ContextTopN = def.ContextTopN
	}
	out.Fusion = out.Fusion.orDefault()
	return out
}

type QueryUseCase struct {
	lexical   Retriever
	dense     Retriever
	reranker  ports.CrossEncoder
	generator ports.AnswerGenerator
	verifier  *Verifier
	observer  ports.QueryObserver
	cfg       QueryConfig
}

func NewQueryUseCase(
	lexical Retriever,
	dense Retriever,
	reranker ports.CrossEncoder,
	generator ports.AnswerGenerator,
	verifier *Verifier,
	cfg QueryConfig,
) *QueryUseCase {
	return &QueryUseCase{
		lexical:   lexical,
		dense:     dense,
		reranker:  reranker,
		generator: generator,
		verifier:  verifier,
		observer:  noopObserver{},
		cfg:       cfg.normalize(),
	}
}

func (uc *QueryUseCase) WithObserver(observer ports.QueryObserver) *QueryUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

// Ask runs the full pipeline for one question. Every returned error carries a
// domain kind that domain.DescribeFailure understands.
func (uc *QueryUseCase) Ask(ctx context.Context, question string) (result *domain.QueryResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("ask: recovered panic: %v", r)
		}
		uc.finish(result, err, time.Since(start))
	}()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}

	lexical, dense, err := uc.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	fusionStart := time.Now()
	fused := fuseHits(lexical, dense, uc.cfg.Fusion)
	uc.observer.ObserveStage("fusion", time.Since(fusionStart))
	if len(fused) == 0 {
		return nil, domain.WrapError(domain.ErrNoContext, "ask", errors.New("neither retriever returned a candidate"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := uc.rerank(ctx, question, trimFused(fused, uc.cfg.RerankCandidates))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contextText := joinContext(ranked)
	generateStart := time.Now()
	generated, err := uc.generator.GenerateAnswer(ctx, question, contextText)
	uc.observer.ObserveStage("generate", time.Since(generateStart))
	if err != nil {
		return nil, asGenerationError(ctx, err)
	}
	generated = strings.TrimSpace(generated)
	if generated == "" {
		return nil, domain.WrapError(domain.ErrGeneration, "generate answer", errors.New("model returned an empty answer"))
	}

	verifyStart := time.Now()
	verification := uc.verifier.Verify(ctx, contextText, generated)
	uc.observer.ObserveStage("verify", time.Since(verifyStart))

	answer := generated
	if uc.cfg.AppendExcerpts {
		answer = generated + excerptsHeader + contextText
	}

	return &domain.QueryResult{
		Question:        question,
		Answer:          answer,
		GeneratedAnswer: generated,
		Verification:    verification,
		Citations:       buildCitations(ranked),
		Context:         ranked,
	}, nil
}

// retrieve runs both retrievers concurrently and waits for both.
func (uc *QueryUseCase) retrieve(ctx context.Context, question string) ([]domain.ScoredHit, []domain.ScoredHit, error) {
	var lexical, dense []domain.ScoredHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		hits, err := uc.lexical.Retrieve(gctx, question, uc.cfg.LexicalTopK)
		uc.observer.ObserveStage("lexical", time.Since(start))
		lexical = hits
		return err
	})
	g.Go(func() error {
		start := time.Now()
		hits, err := uc.dense.Retrieve(gctx, question, uc.cfg.DenseTopK)
		uc.observer.ObserveStage("dense", time.Since(start))
		dense = hits
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lexical, dense, nil
}

func (uc *QueryUseCase) rerank(ctx context.Context, question string, candidates []domain.FusedHit) []domain.RankedChunk {
	start := time.Now()
	defer func() { uc.observer.ObserveStage("rerank", time.Since(start)) }()

	if uc.reranker == nil {
		return fusedOrder(candidates, uc.cfg.ContextTopN)
	}
	ranked, err := rerankCandidates(ctx, uc.reranker, question, candidates, uc.cfg.ContextTopN)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("rerank_fallback", "candidates", len(candidates), "error", err)
			uc.observer.ObserveRerankFallback()
		}
		return fusedOrder(candidates, uc.cfg.ContextTopN)
	}
	return ranked
}

func (uc *QueryUseCase) finish(result *domain.QueryResult, err error, duration time.Duration) {
	durationMS := float64(duration.Microseconds()) / 1000.0
	if err != nil {
		failure := domain.DescribeFailure(err)
		uc.observer.ObserveOutcome(string(failure.Kind), 0, duration)
		slog.Warn("query_failed", "kind", failure.Kind, "duration_ms", durationMS, "error", err)
		return
	}

	uc.observer.ObserveOutcome("ok", len(result.Citations), duration)
	uc.observer.ObserveVerification(result.Verification.Score)
	attrs := []any{
		"duration_ms", durationMS,
		"context_chunks", len(result.Context),
		"sources", len(result.Citations),
		"verification_status", result.Verification.Status,
	}
	if result.Verification.Score != nil {
		attrs = append(attrs, "verification_score", *result.Verification.Score)
	}
	slog.Info("query_completed", attrs...)
}

func asGenerationError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if domain.IsKind(err, domain.ErrGeneration) || domain.IsKind(err, domain.ErrConfiguration) {
		return err
	}
	return domain.WrapError(domain.ErrGeneration, "generate answer", err)
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration)        {}
func (noopObserver) ObserveOutcome(string, int, time.Duration) {}
func (noopObserver) ObserveVerification(*float64)              {}
func (noopObserver) ObserveRerankFallback()                    {}

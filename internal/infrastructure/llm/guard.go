package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
	"github.com/kirillkom/groundedqa/internal/infrastructure/resilience"
)

const guardOperation = "llm_generate"

// GuardedGenerator bounds each generation attempt with a timeout and retries
// transient failures through the shared resilience executor.
type GuardedGenerator struct {
	next    ports.AnswerGenerator
	exec    *resilience.Executor
	timeout time.Duration
}

func NewGuardedGenerator(next ports.AnswerGenerator, exec *resilience.Executor, timeout time.Duration) *GuardedGenerator {
	return &GuardedGenerator{next: next, exec: exec, timeout: timeout}
}

func (g *GuardedGenerator) GenerateAnswer(ctx context.Context, question, contextText string) (string, error) {
	answer, err := resilience.Do(ctx, g.exec, guardOperation, func(ctx context.Context) (string, error) {
		return g.attempt(ctx, question, contextText)
	}, resilience.ClassifyDomainError)
	if err == nil {
		return answer, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if resilience.IsCircuitOpen(err) {
		return "", domain.WrapError(domain.ErrGeneration, guardOperation, domain.WrapError(domain.ErrTemporary, "circuit breaker", err))
	}
	return "", err
}

func (g *GuardedGenerator) attempt(ctx context.Context, question, contextText string) (string, error) {
	attemptCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	answer, err := g.next.GenerateAnswer(attemptCtx, question, contextText)
	if err == nil {
		return answer, nil
	}
	// A deadline that belongs to this attempt is a transient model failure,
	// not a canceled request.
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", domain.WrapError(domain.ErrTemporary, guardOperation, fmt.Errorf("no answer within %s", g.timeout))
	}
	return "", err
}

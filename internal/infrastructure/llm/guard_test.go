package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/infrastructure/resilience"
)

type scriptedGenerator struct {
	errs  []error
	delay time.Duration
	calls int
}

func (g *scriptedGenerator) GenerateAnswer(ctx context.Context, _ string, _ string) (string, error) {
	g.calls++
	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.delay):
		}
	}
	if len(g.errs) >= g.calls && g.errs[g.calls-1] != nil {
		return "", g.errs[g.calls-1]
	}
	return "grounded answer", nil
}

func testExecutor(attempts int) *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})
}

func TestGuardedGeneratorRetriesTransientErrors(t *testing.T) {
	next := &scriptedGenerator{errs: []error{
		domain.WrapError(domain.ErrTemporary, "gemini", errors.New("429")),
		domain.WrapError(domain.ErrTemporary, "gemini", errors.New("503")),
	}}
	g := NewGuardedGenerator(next, testExecutor(3), time.Second)

	answer, err := g.GenerateAnswer(context.Background(), "q", "ctx")
	if err != nil {
		t.Fatalf("GenerateAnswer() error = %v", err)
	}
	if answer != "grounded answer" || next.calls != 3 {
		t.Fatalf("got %q after %d calls", answer, next.calls)
	}
}

func TestGuardedGeneratorDoesNotRetryFatalErrors(t *testing.T) {
	fatal := domain.WrapError(domain.ErrConfiguration, "gemini", errors.New("invalid api key"))
	next := &scriptedGenerator{errs: []error{fatal}}
	g := NewGuardedGenerator(next, testExecutor(3), time.Second)

	_, err := g.GenerateAnswer(context.Background(), "q", "ctx")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 call, got %d", next.calls)
	}
}

func TestGuardedGeneratorTimeoutIsTransient(t *testing.T) {
	next := &scriptedGenerator{delay: 200 * time.Millisecond}
	g := NewGuardedGenerator(next, testExecutor(2), 10*time.Millisecond)

	_, err := g.GenerateAnswer(context.Background(), "q", "ctx")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("attempt timeout must not look like caller cancellation")
	}
	if next.calls != 2 {
		t.Fatalf("expected timeout to be retried, got %d calls", next.calls)
	}
}

func TestGuardedGeneratorReturnsCallerCancellation(t *testing.T) {
	next := &scriptedGenerator{delay: time.Second}
	g := NewGuardedGenerator(next, testExecutor(3), time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := g.GenerateAnswer(ctx, "q", "ctx")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected caller deadline, got %v", err)
	}
}

func TestBuildGroundedPrompt(t *testing.T) {
	prompt := BuildGroundedPrompt("How do I renew?", "chunk one\n\nchunk two")
	if !strings.Contains(prompt, "Context:\nchunk one\n\nchunk two\n\nUser question:\nHow do I renew?") {
		t.Fatalf("unexpected prompt layout: %s", prompt)
	}
	if !strings.HasPrefix(prompt, "You are an immigration assistant.") {
		t.Fatalf("prompt must start with the instruction: %s", prompt)
	}
}

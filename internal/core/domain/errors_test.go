package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestDescribeFailureSeparatesTransientGeneration(t *testing.T) {
	transient := WrapError(ErrGeneration, "generate", WrapError(ErrTemporary, "gemini", errors.New("503")))
	if got := DescribeFailure(transient).Kind; got != FailureGenerationTransient {
		t.Fatalf("expected transient generation, got %s", got)
	}

	fatal := WrapError(ErrGeneration, "generate", errors.New("empty response"))
	if got := DescribeFailure(fatal).Kind; got != FailureGeneration {
		t.Fatalf("expected generation, got %s", got)
	}
}

func TestDescribeFailureHidesRawErrorText(t *testing.T) {
	err := WrapError(ErrRetrieval, "dense", errors.New("dial tcp 10.0.0.7:6333: connection refused"))
	failure := DescribeFailure(err)
	if failure.Kind != FailureRetrieval {
		t.Fatalf("expected retrieval kind, got %s", failure.Kind)
	}
	if failure.Message == "" || failure.Message == err.Error() {
		t.Fatalf("expected user-facing message, got %q", failure.Message)
	}
}

func TestDescribeFailureCanceledAndUnknown(t *testing.T) {
	if got := DescribeFailure(fmt.Errorf("ask: %w", context.Canceled)).Kind; got != FailureCanceled {
		t.Fatalf("expected canceled, got %s", got)
	}
	if got := DescribeFailure(errors.New("boom")).Kind; got != FailureInternal {
		t.Fatalf("expected internal, got %s", got)
	}
	if got := DescribeFailure(nil); got != (Failure{}) {
		t.Fatalf("expected zero failure for nil error, got %+v", got)
	}
}

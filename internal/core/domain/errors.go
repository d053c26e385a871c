package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrTemporary     = errors.New("temporary failure")
	ErrLoad          = errors.New("corpus load failed")
	ErrConfiguration = errors.New("configuration error")
	ErrRetrieval     = errors.New("retrieval failed")
	ErrGeneration    = errors.New("generation failed")
	ErrNoContext     = errors.New("no context retrieved")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FailureKind is the stable, user-facing classification of a failed query.
type FailureKind string

const (
	FailureInvalidInput        FailureKind = "invalid_input"
	FailureNoContext           FailureKind = "no_context"
	FailureLoad                FailureKind = "load"
	FailureConfiguration       FailureKind = "configuration"
	FailureRetrieval           FailureKind = "retrieval"
	FailureGenerationTransient FailureKind = "generation_transient"
	FailureGeneration          FailureKind = "generation"
	FailureCanceled            FailureKind = "canceled"
	FailureInternal            FailureKind = "internal"
)

// Failure is what a front end reports instead of a raw error.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"error"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// DescribeFailure maps err onto a Failure. Generation errors are checked for
// the transient marker before the generic generation kind.
func DescribeFailure(err error) Failure {
	switch {
	case err == nil:
		return Failure{}
	case IsKind(err, ErrInvalidInput):
		return Failure{Kind: FailureInvalidInput, Message: "question must be a non-empty string"}
	case IsKind(err, ErrNoContext):
		return Failure{Kind: FailureNoContext, Message: "no relevant context was found for this question"}
	case IsKind(err, ErrConfiguration):
		return Failure{Kind: FailureConfiguration, Message: "the service is misconfigured"}
	case IsKind(err, ErrLoad):
		return Failure{Kind: FailureLoad, Message: "the corpus could not be loaded"}
	case IsKind(err, ErrRetrieval):
		return Failure{Kind: FailureRetrieval, Message: "retrieval failed; the search index is unavailable or inconsistent"}
	case IsKind(err, ErrGeneration) && IsKind(err, ErrTemporary):
		return Failure{Kind: FailureGenerationTransient, Message: "the language model is temporarily unavailable, please retry"}
	case IsKind(err, ErrGeneration):
		return Failure{Kind: FailureGeneration, Message: "the language model failed to produce an answer"}
	case IsKind(err, ErrTemporary):
		return Failure{Kind: FailureGenerationTransient, Message: "a dependency is temporarily unavailable, please retry"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Failure{Kind: FailureCanceled, Message: "the request was canceled"}
	default:
		return Failure{Kind: FailureInternal, Message: "internal error"}
	}
}

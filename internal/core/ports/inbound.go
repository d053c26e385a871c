package ports

import (
	"context"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// QueryService is the inbound contract for grounded question answering.
type QueryService interface {
	Ask(ctx context.Context, question string) (*domain.QueryResult, error)
}

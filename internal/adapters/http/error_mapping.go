package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// statusClientClosedRequest is the de facto code for a request the client
// abandoned before the answer was ready.
const statusClientClosedRequest = 499

func mapErrorToHTTPStatus(err error) int {
	switch domain.DescribeFailure(err).Kind {
	case domain.FailureInvalidInput:
		return http.StatusBadRequest
	case domain.FailureNoContext:
		return http.StatusUnprocessableEntity
	case domain.FailureGenerationTransient:
		return http.StatusServiceUnavailable
	case domain.FailureGeneration:
		return http.StatusBadGateway
	case domain.FailureCanceled:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return statusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

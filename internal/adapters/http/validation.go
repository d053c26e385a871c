package httpadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

// requestValidator checks requests for documented operations against the
// OpenAPI document. Undocumented paths pass through to the mux.
type requestValidator struct {
	router routers.Router
}

func newRequestValidator(document []byte) (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "load openapi document", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "validate openapi document", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "build openapi router", err)
	}
	return &requestValidator{router: router}, nil
}

func (v *requestValidator) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    &openapi3filter.Options{},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			slog.Info("http_request_rejected",
				"request_id", requestIDFromContext(r.Context()),
				"path", r.URL.Path,
				"error", err.Error(),
			)
			writeJSON(w, http.StatusBadRequest, domain.Failure{
				Kind:    domain.FailureInvalidInput,
				Message: fmt.Sprintf("request does not match the API schema: %s", validationReason(err)),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// validationReason keeps the schema detail without echoing the request body.
func validationReason(err error) string {
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) && schemaErr.Reason != "" {
		return schemaErr.Reason
	}
	var requestErr *openapi3filter.RequestError
	if errors.As(err, &requestErr) && requestErr.Reason != "" {
		return requestErr.Reason
	}
	return "invalid request"
}

package httpadapter

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/core/ports"
	"github.com/kirillkom/groundedqa/internal/observability/metrics"
)

const serviceName = "api"

//go:embed openapi.yaml
var openAPIDocument []byte

//go:embed web/index.html
var indexPage []byte

const defaultBackpressureWait = 250 * time.Millisecond

type Router struct {
	cfg     config.Config
	query   ports.QueryService
	metrics *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, query ports.QueryService, httpMetrics *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:     cfg,
		query:   query,
		metrics: httpMetrics,
	}
}

// Handler builds the mux and wraps it with the middleware chain. It fails only
// when the embedded OpenAPI document is invalid.
func (rt *Router) Handler() (http.Handler, error) {
	validator, err := newRequestValidator(openAPIDocument)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPISpec)
	mux.HandleFunc("GET /{$}", rt.index)
	mux.HandleFunc("POST /v1/ask", rt.ask)
	mux.HandleFunc("POST /ask", rt.ask)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = requestTimeoutMiddleware(handler, rt.cfg.APIRequestTimeout)
	handler = validator.middleware(handler)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, defaultBackpressureWait)
	handler = rt.rateLimitMiddleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func (rt *Router) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexPage)
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, domain.WrapError(domain.ErrInvalidInput, "decode ask request", err))
		return
	}

	result, err := rt.query.Ask(r.Context(), req.Question)
	if err != nil {
		slog.Warn("ask_failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err.Error(),
		)
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.NewAskResponse(result))
}

func writeFailure(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), domain.DescribeFailure(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

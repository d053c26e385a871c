package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, handler http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("scrape status %d", rec.Code)
	}
	return rec.Body.String()
}

func assertSeries(t *testing.T, body string, series ...string) {
	t.Helper()
	for _, s := range series {
		if !strings.Contains(body, s) {
			t.Fatalf("metrics output missing %q\n%s", s, body)
		}
	}
}

func TestPipelineMetricsRecordOutcomes(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	p := m.Pipeline()

	score := 0.9
	p.ObserveStage("generate", 2*time.Second)
	p.ObserveOutcome("ok", 3, time.Second)
	p.ObserveOutcome("no_context", 0, time.Millisecond)
	p.ObserveVerification(&score)
	p.ObserveVerification(nil)
	p.ObserveRerankFallback()

	assertSeries(t, scrape(t, m.Handler()),
		`groundedqa_rag_queries_total{outcome="ok",service="api"} 1`,
		`groundedqa_rag_queries_total{outcome="no_context",service="api"} 1`,
		`groundedqa_rag_stage_duration_seconds_count{service="api",stage="generate"} 1`,
		`groundedqa_verification_score_count{service="api"} 1`,
		`groundedqa_verification_unavailable_total{service="api"} 1`,
		`groundedqa_rag_rerank_fallback_total{service="api"} 1`,
	)
}

func TestHTTPMiddlewareCollapsesUnknownPaths(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for _, path := range []string{"/random/1", "/random/2"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assertSeries(t, scrape(t, m.Handler()),
		`groundedqa_http_requests_total{method="GET",path="other",service="api",status="404"} 2`,
	)
}

func TestWorkerMetricsObserveRequest(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.ObserveRequest("qa.ask", "ok", 150*time.Millisecond)
	assertSeries(t, scrape(t, m.Handler()),
		`groundedqa_worker_requests_total{outcome="ok",service="worker",subject="qa.ask"} 1`,
	)
}

package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kirillkom/groundedqa/internal/config"
	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/infrastructure/vector/manifest"
)

const testCorpus = `{"id":"c1","text":"To renew a green card file Form I-90 online.","metadata":{"url":"https://www.uscis.gov/i-90","agency":"USCIS"}}
{"id":"c2","text":"Naturalization lets permanent residents apply for citizenship.","url":"https://www.uscis.gov/citizenship"}
{"id":"c3","text":"Passport photos must be two by two inches.","url":"https://travel.state.gov/photos"}
`

func embedText(text string) []float32 {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "renew"):
		return []float32{1, 0}
	case strings.Contains(lower, "citizenship"):
		return []float32{0, 1}
	default:
		return []float32{0.6, 0.8}
	}
}

// newModelServer fakes both the inference server and the Ollama API.
func newModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/embed":
			var req struct {
				Inputs []string `json:"inputs"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			out := make([][]float32, len(req.Inputs))
			for i, text := range req.Inputs {
				out[i] = embedText(text)
			}
			_ = json.NewEncoder(w).Encode(out)
		case "/rerank":
			var req struct {
				Texts []string `json:"texts"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			type scored struct {
				Index int     `json:"index"`
				Score float64 `json:"score"`
			}
			out := make([]scored, len(req.Texts))
			for i, text := range req.Texts {
				score := 0.0
				if strings.Contains(text, "renew") {
					score = 5
				}
				out[i] = scored{Index: i, Score: score}
			}
			_ = json.NewEncoder(w).Encode(out)
		case "/predict":
			_, _ = w.Write([]byte(`[{"label":"contradiction","score":-2.0},{"label":"neutral","score":-1.0},{"label":"entailment","score":4.0}]`))
		case "/api/generate":
			_, _ = w.Write([]byte(`{"response":"  File Form I-90 online to renew a green card.  "}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testConfig(t *testing.T, modelURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "chunks.jsonl")
	if err := os.WriteFile(corpusPath, []byte(testCorpus), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	cfg := config.Load()
	cfg.CorpusSource = "jsonl"
	cfg.CorpusPath = corpusPath
	cfg.DenseBackend = "snapshot"
	cfg.SnapshotPath = filepath.Join(dir, "vectors")
	cfg.ManifestPath = filepath.Join(dir, "manifest.yaml")
	cfg.EmbedderProvider = "tei"
	cfg.EmbedModel = "test-embed"
	cfg.NormalizeVectors = true
	cfg.InferenceURL = modelURL
	cfg.InferenceTimeout = 5 * time.Second
	cfg.RerankerProvider = "tei"
	cfg.GeneratorProvider = "ollama"
	cfg.OllamaURL = modelURL
	cfg.GeminiAPIKey = ""
	cfg.RedisAddr = ""
	cfg.RetryMaxAttempts = 1
	cfg.BreakerEnabled = false
	return cfg
}

func TestIndexThenAskEndToEnd(t *testing.T) {
	server := newModelServer(t)
	defer server.Close()
	cache := miniredis.RunT(t)

	cfg := testConfig(t, server.URL)
	cfg.RedisAddr = cache.Addr()
	ctx := context.Background()

	indexer, err := NewIndexer(ctx, cfg)
	if err != nil {
		t.Fatalf("NewIndexer() error = %v", err)
	}
	built, err := indexer.Build(ctx)
	indexer.Close()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if built.EmbedModel != "test-embed" || built.Dimension != 2 || built.ChunkCount != 3 || built.Backend != "snapshot" {
		t.Fatalf("unexpected manifest: %+v", built)
	}
	onDisk, err := manifest.Read(cfg.ManifestPath)
	if err != nil {
		t.Fatalf("manifest.Read() error = %v", err)
	}
	if onDisk.EmbedModel != built.EmbedModel || onDisk.ChunkCount != built.ChunkCount {
		t.Fatalf("manifest on disk %+v differs from build result %+v", onDisk, built)
	}

	app, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Corpus.Len() != 3 {
		t.Fatalf("expected 3 chunks, got %d", app.Corpus.Len())
	}

	result, err := app.QueryUC.Ask(ctx, "How do I renew my green card?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if result.Answer != "File Form I-90 online to renew a green card." {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	if len(result.Citations) == 0 || result.Citations[0].URL != "https://www.uscis.gov/i-90" || result.Citations[0].Index != 1 {
		t.Fatalf("expected I-90 page as first source, got %+v", result.Citations)
	}
	if result.Verification.Score == nil || *result.Verification.Score <= 0.8 || !result.Verification.Passed() {
		t.Fatalf("expected passing verification, got %+v", result.Verification)
	}
	keys := cache.Keys()
	if len(keys) == 0 {
		t.Fatalf("expected embeddings to be cached in redis")
	}
	if !strings.Contains(keys[0], "test-embed:normalized:") {
		t.Fatalf("cache key must carry model and normalization, got %q", keys[0])
	}
}

func TestEvaluatorRunsOnRetrievalBundle(t *testing.T) {
	server := newModelServer(t)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	ctx := context.Background()

	indexer, err := NewIndexer(ctx, cfg)
	if err != nil {
		t.Fatalf("NewIndexer() error = %v", err)
	}
	if _, err := indexer.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	indexer.Close()

	cfg.GeneratorProvider = "gemini"
	retrieval, err := NewRetrieval(ctx, cfg)
	if err != nil {
		t.Fatalf("NewRetrieval() without generator credentials error = %v", err)
	}
	defer retrieval.Close()

	report, err := retrieval.NewEvaluator(3).Evaluate(ctx, []domain.EvalItem{{
		ID:           "q1",
		Question:     "renew green card",
		RelevantURLs: []string{"https://www.uscis.gov/i-90"},
	}})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(report.Summaries) != 3 {
		t.Fatalf("expected a summary per retriever, got %+v", report.Summaries)
	}
	for _, summary := range report.Summaries {
		if summary.Questions != 1 || summary.Recall != 1 {
			t.Fatalf("expected the I-90 page to be found by %s, got %+v", summary.Retriever, summary)
		}
	}
}

func TestNewRetrievalRejectsManifestFromAnotherModel(t *testing.T) {
	server := newModelServer(t)
	defer server.Close()

	cfg := testConfig(t, server.URL)
	if err := manifest.Write(cfg.ManifestPath, domain.IndexManifest{
		EmbedModel: "other-model",
		Dimension:  2,
		ChunkCount: 3,
		Backend:    "snapshot",
	}); err != nil {
		t.Fatalf("manifest.Write() error = %v", err)
	}

	_, err := NewRetrieval(context.Background(), cfg)
	if !domain.IsKind(err, domain.ErrRetrieval) {
		t.Fatalf("expected retrieval error, got %v", err)
	}
}

func TestNewRequiresGeminiKey(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.GeneratorProvider = "gemini"

	_, err := New(context.Background(), cfg)
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewFailsOnMissingCorpus(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.CorpusPath = filepath.Join(t.TempDir(), "missing.jsonl")

	_, err := NewRetrieval(context.Background(), cfg)
	if !domain.IsKind(err, domain.ErrLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
	if errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("corpus failure must not be reported as retrieval: %v", err)
	}
}

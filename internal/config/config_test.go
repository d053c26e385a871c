package config

import (
	"testing"
	"time"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

func validConfig() Config {
	cfg := Load()
	cfg.GeminiAPIKey = "test-key"
	return cfg
}

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("RAG_LEXICAL_TOP_K", "")
	t.Setenv("RAG_RERANK_CANDIDATES", "")
	t.Setenv("RAG_CONTEXT_TOP_N", "")
	t.Setenv("NLI_THRESHOLD", "")
	t.Setenv("GENERATION_TIMEOUT", "")

	cfg := Load()
	if cfg.RAGLexicalTopK != 10 || cfg.RAGDenseTopK != 10 {
		t.Fatalf("expected top-k defaults of 10, got %d/%d", cfg.RAGLexicalTopK, cfg.RAGDenseTopK)
	}
	if cfg.RAGRerankCandidates != 20 || cfg.RAGContextTopN != 5 {
		t.Fatalf("expected rerank 20 -> 5, got %d -> %d", cfg.RAGRerankCandidates, cfg.RAGContextTopN)
	}
	if cfg.RAGFusionLexicalWeight != 1 || cfg.RAGFusionDenseWeight != 1 {
		t.Fatalf("expected equal fusion weights")
	}
	if cfg.NLIThreshold != 0.8 || cfg.NLIEntailmentIndex != 1 {
		t.Fatalf("unexpected verification defaults: %v %d", cfg.NLIThreshold, cfg.NLIEntailmentIndex)
	}
	if cfg.GenerationTimeout != 60*time.Second {
		t.Fatalf("expected 60s generation timeout, got %v", cfg.GenerationTimeout)
	}
	if cfg.NATSSubject != "qa.ask" {
		t.Fatalf("expected default subject qa.ask, got %q", cfg.NATSSubject)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RAG_FUSION_DENSE_WEIGHT", "0.7")
	t.Setenv("ANSWER_APPEND_EXCERPTS", "true")
	t.Setenv("GENERATION_TIMEOUT", "45")
	t.Setenv("RETRY_MAX_BACKOFF", "2s")
	t.Setenv("RAG_CONTEXT_TOP_N", "not-a-number")

	cfg := Load()
	if cfg.RAGFusionDenseWeight != 0.7 {
		t.Fatalf("expected dense weight 0.7, got %v", cfg.RAGFusionDenseWeight)
	}
	if !cfg.AnswerAppendExcerpts {
		t.Fatalf("expected excerpts enabled")
	}
	if cfg.GenerationTimeout != 45*time.Second || cfg.RetryMaxBackoff != 2*time.Second {
		t.Fatalf("unexpected durations: %v %v", cfg.GenerationTimeout, cfg.RetryMaxBackoff)
	}
	if cfg.RAGContextTopN != 5 {
		t.Fatalf("invalid int must fall back to default, got %d", cfg.RAGContextTopN)
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRequiresGeminiKey(t *testing.T) {
	cfg := validConfig()
	cfg.GeminiAPIKey = ""
	if err := cfg.Validate(); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	cfg.GeneratorProvider = "ollama"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ollama generator needs no key, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]func(*Config){
		"threshold above one":  func(c *Config) { c.NLIThreshold = 1.5 },
		"unknown backend":      func(c *Config) { c.DenseBackend = "faiss" },
		"context above rerank": func(c *Config) { c.RAGContextTopN = 30 },
		"zero lexical top-k":   func(c *Config) { c.RAGLexicalTopK = 0 },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !domain.IsKind(err, domain.ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/groundedqa/internal/core/domain"
)

type Config struct {
	APIPort   string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	APIRateLimitRPS   float64 `validate:"gte=0"`
	APIRateLimitBurst int     `validate:"gte=0"`
	APIMaxInFlight    int     `validate:"gte=0"`
	APIMaxConnections int     `validate:"gte=0"`
	APIRequestTimeout time.Duration

	CorpusSource string `validate:"oneof=jsonl postgres"`
	CorpusPath   string `validate:"required_if=CorpusSource jsonl"`
	PostgresDSN  string `validate:"required_if=CorpusSource postgres"`

	DenseBackend     string `validate:"oneof=snapshot qdrant pgvector"`
	SnapshotPath     string `validate:"required_if=DenseBackend snapshot"`
	ManifestPath     string `validate:"required"`
	QdrantURL        string `validate:"required_if=DenseBackend qdrant"`
	QdrantCollection string `validate:"required_if=DenseBackend qdrant"`

	EmbedderProvider string `validate:"oneof=tei ollama"`
	EmbedModel       string `validate:"required"`
	NormalizeVectors bool

	InferenceURL     string `validate:"required"`
	InferenceTimeout time.Duration
	RerankerProvider string `validate:"oneof=tei overlap none"`

	GeneratorProvider string `validate:"oneof=gemini ollama"`
	GeminiAPIKey      string `validate:"required_if=GeneratorProvider gemini"`
	GeminiModel       string
	GeminiBaseURL     string

	OllamaURL      string
	OllamaGenModel string

	RedisAddr     string
	EmbedCacheTTL time.Duration

	NATSURL            string
	NATSSubject        string `validate:"required"`
	NATSRequestTimeout time.Duration

	RAGLexicalTopK         int     `validate:"gt=0"`
	RAGDenseTopK           int     `validate:"gt=0"`
	RAGRerankCandidates    int     `validate:"gt=0"`
	RAGContextTopN         int     `validate:"gt=0,ltefield=RAGRerankCandidates"`
	RAGFusionLexicalWeight float64 `validate:"gte=0"`
	RAGFusionDenseWeight   float64 `validate:"gte=0"`
	AnswerAppendExcerpts   bool

	NLIThreshold       float64 `validate:"gte=0,lte=1"`
	NLIEntailmentLabel string
	NLIEntailmentIndex int

	GenerationTimeout   time.Duration `validate:"gt=0"`
	RetryMaxAttempts    int           `validate:"gte=1"`
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool

	IndexBatchSize int `validate:"gt=0"`
	IndexWorkers   int `validate:"gt=0"`

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:   mustEnv("API_PORT", "8080"),
		LogLevel:  strings.ToLower(mustEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(mustEnv("LOG_FORMAT", "json")),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 32),
		APIMaxConnections: mustEnvInt("API_MAX_CONNECTIONS", 256),
		APIRequestTimeout: mustEnvDuration("API_REQUEST_TIMEOUT", 120*time.Second),

		CorpusSource: strings.ToLower(mustEnv("CORPUS_SOURCE", "jsonl")),
		CorpusPath:   mustEnv("CORPUS_PATH", "./data/chunks.jsonl"),
		PostgresDSN:  mustEnv("POSTGRES_DSN", ""),

		DenseBackend:     strings.ToLower(mustEnv("DENSE_BACKEND", "snapshot")),
		SnapshotPath:     mustEnv("SNAPSHOT_PATH", "./data/index/vectors"),
		ManifestPath:     mustEnv("MANIFEST_PATH", "./data/index/manifest.yaml"),
		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "immigration_chunks"),

		EmbedderProvider: strings.ToLower(mustEnv("EMBEDDER_PROVIDER", "tei")),
		EmbedModel:       mustEnv("EMBED_MODEL", "BAAI/bge-small-en-v1.5"),
		NormalizeVectors: mustEnvBool("NORMALIZE_VECTORS", true),

		InferenceURL:     mustEnv("INFERENCE_URL", "http://localhost:8081"),
		InferenceTimeout: mustEnvDuration("INFERENCE_TIMEOUT", 30*time.Second),
		RerankerProvider: strings.ToLower(mustEnv("RERANKER_PROVIDER", "tei")),

		GeneratorProvider: strings.ToLower(mustEnv("GENERATOR_PROVIDER", "gemini")),
		GeminiAPIKey:      mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:       mustEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:     mustEnv("GEMINI_BASE_URL", ""),

		OllamaURL:      mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel: mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),

		RedisAddr:     mustEnv("REDIS_ADDR", ""),
		EmbedCacheTTL: mustEnvDuration("EMBED_CACHE_TTL", 24*time.Hour),

		NATSURL:            mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:        mustEnv("NATS_SUBJECT", "qa.ask"),
		NATSRequestTimeout: mustEnvDuration("NATS_REQUEST_TIMEOUT", 90*time.Second),

		RAGLexicalTopK:         mustEnvInt("RAG_LEXICAL_TOP_K", 10),
		RAGDenseTopK:           mustEnvInt("RAG_DENSE_TOP_K", 10),
		RAGRerankCandidates:    mustEnvInt("RAG_RERANK_CANDIDATES", 20),
		RAGContextTopN:         mustEnvInt("RAG_CONTEXT_TOP_N", 5),
		RAGFusionLexicalWeight: mustEnvFloat("RAG_FUSION_LEXICAL_WEIGHT", 1.0),
		RAGFusionDenseWeight:   mustEnvFloat("RAG_FUSION_DENSE_WEIGHT", 1.0),
		AnswerAppendExcerpts:   mustEnvBool("ANSWER_APPEND_EXCERPTS", false),

		NLIThreshold:       mustEnvFloat("NLI_THRESHOLD", 0.8),
		NLIEntailmentLabel: mustEnv("NLI_ENTAILMENT_LABEL", "entailment"),
		NLIEntailmentIndex: mustEnvInt("NLI_ENTAILMENT_INDEX", 1),

		GenerationTimeout:   mustEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		RetryMaxAttempts:    mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: mustEnvDuration("RETRY_INITIAL_BACKOFF", 500*time.Millisecond),
		RetryMaxBackoff:     mustEnvDuration("RETRY_MAX_BACKOFF", 4*time.Second),
		BreakerEnabled:      mustEnvBool("BREAKER_ENABLED", true),

		IndexBatchSize: mustEnvInt("INDEX_BATCH_SIZE", 32),
		IndexWorkers:   mustEnvInt("INDEX_WORKERS", 4),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// Validate reports every invalid field at once as a configuration error.
func (c Config) Validate() error {
	return describeValidation(validator.New().Struct(c))
}

// ValidateOffline skips the generator credentials, which index builds and
// retriever evaluation never use.
func (c Config) ValidateOffline() error {
	return describeValidation(validator.New().StructExcept(c, "GeminiAPIKey"))
}

func describeValidation(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.WrapError(domain.ErrConfiguration, "validate config", err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return domain.WrapError(domain.ErrConfiguration, "validate config", errors.New(strings.Join(problems, "; ")))
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("90s") and bare seconds ("90").
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

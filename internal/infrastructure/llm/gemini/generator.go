package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/kirillkom/groundedqa/internal/core/domain"
	"github.com/kirillkom/groundedqa/internal/infrastructure/llm"
)

const DefaultModel = "gemini-2.0-flash"

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint; used by tests and proxies.
	BaseURL    string
	HTTPClient *http.Client
}

// Generator answers grounded prompts with a Gemini model at temperature 0.
type Generator struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "gemini client", errors.New("GEMINI_API_KEY is not set"))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "gemini client", err)
	}
	return &Generator{client: client, model: model}, nil
}

func (g *Generator) GenerateAnswer(ctx context.Context, question, contextText string) (string, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(llm.BuildGroundedPrompt(question, contextText)),
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)},
	)
	if err != nil {
		return "", classifyError(ctx, err)
	}

	var answer strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate == nil || candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part != nil && part.Text != "" {
					answer.WriteString(part.Text)
				}
			}
			if answer.Len() > 0 {
				break
			}
		}
	}
	text := strings.TrimSpace(answer.String())
	if text == "" {
		return "", domain.WrapError(domain.ErrGeneration, "gemini generate", errors.New("no text in response"))
	}
	return text, nil
}

// classifyError marks rate limits, server errors and network failures as
// temporary and credential problems as configuration errors.
func classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return domain.WrapError(domain.ErrConfiguration, "gemini generate", err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code == http.StatusRequestTimeout || apiErr.Code >= 500:
			return domain.WrapError(domain.ErrGeneration, "gemini generate", domain.WrapError(domain.ErrTemporary, "gemini api", err))
		default:
			return domain.WrapError(domain.ErrGeneration, "gemini generate", fmt.Errorf("status %d: %w", apiErr.Code, err))
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.WrapError(domain.ErrGeneration, "gemini generate", domain.WrapError(domain.ErrTemporary, "gemini transport", err))
	}
	return domain.WrapError(domain.ErrGeneration, "gemini generate", err)
}

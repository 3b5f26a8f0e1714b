package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// GroqProvider supports chat completions via Groq's OpenAI-compatible API.
type GroqProvider struct {
	keyName string
	apiKey  string
	model   string
	baseURL string
	limiter *rate.Limiter
	client  *http.Client
}

func NewGroqProvider(keyName string, rps float64) *GroqProvider {
	model := os.Getenv("NOTEBOOK_GROQ_MODEL")
	if strings.TrimSpace(model) == "" {
		model = "llama-3.1-8b-instant"
	}
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("NOTEBOOK_GROQ_BASE_URL")), "/")
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return &GroqProvider{
		keyName: keyName,
		apiKey:  resolveGroqKey(keyName),
		model:   model,
		baseURL: baseURL,
		limiter: newLimiter(rps),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *GroqProvider) CheckCredentials() error {
	if g.apiKey == "" {
		return fmt.Errorf("groq key missing for alias %q: %w", g.keyName, ErrMissingCredentials)
	}
	return nil
}

func (g *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "groq", Key: g.keyName, Model: g.model}
	if err := g.CheckCredentials(); err != nil {
		return GenerateResponse{}, info, err
	}
	if err := waitLimiter(ctx, g.limiter); err != nil {
		return GenerateResponse{}, info, err
	}
	text, err := chatCompletion(ctx, g.client, "groq", g.baseURL, g.apiKey, g.model, req, defaultAssistantSystem)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: text}, info, nil
}

func resolveGroqKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("NOTEBOOK_GROQ_KEY_" + envToken(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("GROQ_API_KEY")
}

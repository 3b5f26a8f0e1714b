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

const defaultAssistantSystem = "You are a helpful assistant. Answer using only the provided context."

type OpenAIOptions struct {
	KeyAlias   string
	APIKey     string
	BaseURL    string
	EmbedModel string
	ChatModel  string
	RPS        float64
	HTTPClient *http.Client
}

// OpenAIProvider talks to the OpenAI REST API, or any server speaking the
// same embeddings and chat-completions protocol.
type OpenAIProvider struct {
	keyName    string
	apiKey     string
	baseURL    string
	embedModel string
	chatModel  string
	limiter    *rate.Limiter
	client     *http.Client
}

func NewOpenAIProvider(opts OpenAIOptions) *OpenAIProvider {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = resolveOpenAIKey(opts.KeyAlias)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	embedModel := opts.EmbedModel
	if embedModel == "" {
		embedModel = "text-embedding-3-large"
	}
	chatModel := opts.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &OpenAIProvider{
		keyName:    opts.KeyAlias,
		apiKey:     apiKey,
		baseURL:    baseURL,
		embedModel: embedModel,
		chatModel:  chatModel,
		limiter:    newLimiter(opts.RPS),
		client:     client,
	}
}

func (o *OpenAIProvider) CheckCredentials() error {
	if o.apiKey == "" {
		if o.keyName != "" {
			return fmt.Errorf("openai key missing for alias %q: %w", o.keyName, ErrMissingCredentials)
		}
		return fmt.Errorf("OPENAI_API_KEY is not set: %w", ErrMissingCredentials)
	}
	return nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.embedModel, Key: o.keyName}
	if err := o.CheckCredentials(); err != nil {
		return nil, info, err
	}
	if len(req.Inputs) == 0 {
		return nil, info, nil
	}
	if err := waitLimiter(ctx, o.limiter); err != nil {
		return nil, info, err
	}
	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	payload := map[string]any{"model": o.embedModel, "input": req.Inputs}
	if err := postJSON(ctx, o.client, "openai", o.baseURL+"/embeddings", o.apiKey, payload, &parsed); err != nil {
		return nil, info, err
	}
	if len(parsed.Data) != len(req.Inputs) {
		return nil, info, fmt.Errorf("openai returned %d embeddings for %d inputs", len(parsed.Data), len(req.Inputs))
	}
	out := make([][]float32, len(req.Inputs))
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, info, nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.chatModel, Key: o.keyName}
	if err := o.CheckCredentials(); err != nil {
		return GenerateResponse{}, info, err
	}
	if err := waitLimiter(ctx, o.limiter); err != nil {
		return GenerateResponse{}, info, err
	}
	text, err := chatCompletion(ctx, o.client, "openai", o.baseURL, o.apiKey, o.chatModel, req, defaultAssistantSystem)
	if err != nil {
		return GenerateResponse{}, info, err
	}
	return GenerateResponse{Text: text}, info, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("NOTEBOOK_OPENAI_KEY_" + envToken(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}

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

// OllamaEmbeddingProvider supports local embeddings via Ollama.
// Example model: nomic-embed-text.
type OllamaEmbeddingProvider struct {
	alias   string
	baseURL string
	model   string
	limiter *rate.Limiter
	client  *http.Client
}

func NewOllamaEmbeddingProvider(alias string, rps float64) *OllamaEmbeddingProvider {
	baseURL := strings.TrimSpace(os.Getenv("NOTEBOOK_OLLAMA_BASE_URL"))
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaEmbeddingProvider{
		alias:   alias,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   resolveOllamaEmbedModel(alias),
		limiter: newLimiter(rps),
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// Embed sends every input in one /api/embed call; Ollama returns the
// vectors in input order.
func (o *OllamaEmbeddingProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "ollama", Model: o.model, Key: o.alias}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	if err := waitLimiter(ctx, o.limiter); err != nil {
		return nil, info, err
	}
	var parsed struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	payload := map[string]any{"model": o.model, "input": req.Inputs}
	if err := postJSON(ctx, o.client, "ollama", o.baseURL+"/api/embed", "", payload, &parsed); err != nil {
		return nil, info, err
	}
	if len(parsed.Embeddings) != len(req.Inputs) {
		return nil, info, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(req.Inputs))
	}
	out := make([][]float32, len(parsed.Embeddings))
	for i, v := range parsed.Embeddings {
		if len(v) == 0 {
			return nil, info, fmt.Errorf("ollama returned empty embedding at %d", i)
		}
		out[i] = matchDimension(v, req.Dimension)
	}
	return out, info, nil
}

var ollamaEmbedAliases = map[string]string{
	"nomic": "nomic-embed-text",
	"bge":   "bge-small-en-v1.5",
	"mxbai": "mxbai-embed-large",
}

// resolveOllamaEmbedModel checks, in order: a per-alias env override, the
// short alias table, a literal model name, the global env override.
func resolveOllamaEmbedModel(alias string) string {
	if alias = strings.TrimSpace(alias); alias != "" {
		if v := strings.TrimSpace(os.Getenv("NOTEBOOK_OLLAMA_EMBED_MODEL_" + envToken(alias))); v != "" {
			return v
		}
		if m, ok := ollamaEmbedAliases[strings.ToLower(alias)]; ok {
			return m
		}
		if strings.ContainsAny(alias, "-/.") {
			return alias
		}
	}
	if v := strings.TrimSpace(os.Getenv("NOTEBOOK_OLLAMA_EMBED_MODEL")); v != "" {
		return v
	}
	return "nomic-embed-text"
}

var envTokenReplacer = strings.NewReplacer("-", "_", ".", "_", "/", "_")

func envToken(s string) string {
	return envTokenReplacer.Replace(strings.ToUpper(s))
}

// matchDimension truncates or zero-pads v so every vector fits the
// collection's configured size.
func matchDimension(v []float32, target int) []float32 {
	if target <= 0 || len(v) == target {
		return v
	}
	if len(v) > target {
		return v[:target]
	}
	out := make([]float32, target)
	copy(out, v)
	return out
}

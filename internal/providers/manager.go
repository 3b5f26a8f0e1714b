package providers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"notebookllm/internal/config"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

// Manager holds the configured providers. Embeddings always come from the
// first embedding provider since vectors from different models cannot share
// a collection; generation fails over along the configured LLM list.
type Manager struct {
	embedRef       ProviderRef
	embedder       EmbeddingProvider
	llmProviders   []NamedLLMProvider
	embedDimension int
}

func NewManager(cfg config.Config) (*Manager, error) {
	embedRefs := ParseProviderList(cfg.EmbedProvider)
	llmRefs := ParseProviderList(cfg.LLMProvider)

	m := &Manager{embedDimension: cfg.EmbedDim}
	p, err := buildProvider(embedRefs[0], cfg)
	if err != nil {
		return nil, err
	}
	embed, ok := p.(EmbeddingProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support embeddings", embedRefs[0].Raw)
	}
	m.embedRef, m.embedder = embedRefs[0], embed

	for _, ref := range llmRefs {
		p, err := buildProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support llm", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	return m, nil
}

// NewStaticManager wraps already-built providers.
func NewStaticManager(embed EmbeddingProvider, dim int, llms ...LLMProvider) *Manager {
	m := &Manager{embedRef: ProviderRef{Raw: "static", Name: "static"}, embedder: embed, embedDimension: dim}
	for i, p := range llms {
		name := fmt.Sprintf("static-%d", i)
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ProviderRef{Raw: name, Name: name}, Provider: p})
	}
	return m
}

func (m *Manager) Embedder() EmbeddingProvider { return m.embedder }

func (m *Manager) EmbedDimension() int { return m.embedDimension }

func (m *Manager) EmbedRef() ProviderRef { return m.embedRef }

func (m *Manager) LLMCount() int { return len(m.llmProviders) }

// CheckCredentials verifies the embedder and at least one LLM have keys.
func (m *Manager) CheckCredentials(needLLM bool) error {
	if err := CheckCredentials(m.embedder); err != nil {
		return err
	}
	if !needLLM {
		return nil
	}
	var firstErr error
	for _, p := range m.llmProviders {
		err := CheckCredentials(p.Provider)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Generate tries the LLM providers in preference order, moving on only for
// rate, quota and transient failures.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if len(m.llmProviders) == 0 {
		return GenerateResponse{}, ProviderInfo{}, errors.New("no llm provider configured")
	}
	var lastErr error
	var lastInfo ProviderInfo
	for _, i := range m.preferredLLMOrder() {
		p := m.llmProviders[i]
		if err := CheckCredentials(p.Provider); err != nil {
			lastErr = err
			continue
		}
		resp, info, err := p.Provider.Generate(ctx, req)
		if err == nil {
			return resp, info, nil
		}
		lastErr, lastInfo = err, info
		kind := ClassifyError(err)
		if !Retryable(kind) {
			return GenerateResponse{}, info, err
		}
		log.Printf("llm provider failover provider=%q kind=%s err=%v", p.Ref.Raw, kind, err)
	}
	return GenerateResponse{}, lastInfo, lastErr
}

func (m *Manager) preferredLLMOrder() []int {
	return preferredOrder(len(m.llmProviders), func(i int) string { return strings.ToLower(m.llmProviders[i].Ref.Name) })
}

// preferredOrder puts mock providers last.
func preferredOrder(n int, nameAt func(i int) string) []int {
	if n <= 0 {
		return nil
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if nameAt(i) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func buildProvider(ref ProviderRef, cfg config.Config) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(cfg.EmbedDim), nil
	case "openai":
		opts := OpenAIOptions{
			KeyAlias:   ref.KeyAlias,
			BaseURL:    cfg.OpenAIBaseURL,
			EmbedModel: cfg.EmbedModel,
			ChatModel:  cfg.ChatModel,
			RPS:        cfg.ProviderRPS,
		}
		if ref.KeyAlias == "" {
			opts.APIKey = cfg.OpenAIAPIKey
		}
		return NewOpenAIProvider(opts), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias, cfg.ProviderRPS), nil
	case "groq":
		return NewGroqProvider(ref.KeyAlias, cfg.ProviderRPS), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}

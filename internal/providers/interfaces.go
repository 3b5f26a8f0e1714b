package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type GenerateRequest struct {
	Operation   string   `json:"operation"`
	System      string   `json:"system"`
	Prompt      string   `json:"prompt"`
	Context     []string `json:"context"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"maxTokens"`
}

type GenerateResponse struct {
	Text string `json:"text"`
}

type EmbedRequest struct {
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Dimension int      `json:"dimension"`
}

type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error)
}

// CredentialChecker is implemented by providers that need an API key. It
// never performs network I/O.
type CredentialChecker interface {
	CheckCredentials() error
}

// CheckCredentials reports a missing credential for p, or nil when p needs none.
func CheckCredentials(p any) error {
	if c, ok := p.(CredentialChecker); ok {
		return c.CheckCredentials()
	}
	return nil
}

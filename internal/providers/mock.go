package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode"
)

// MockProvider is a deterministic offline provider. Embeddings are hashed
// bags of words, so texts sharing terms land near each other; generation
// echoes the context it was given.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}
	ctxText := strings.TrimSpace(strings.Join(req.Context, "\n\n"))
	if ctxText == "" {
		if i := strings.Index(req.System, "Context:\n"); i >= 0 {
			ctxText = strings.TrimSpace(req.System[i+len("Context:\n"):])
		}
	}
	if ctxText == "" {
		return GenerateResponse{Text: "I don't have enough information in the provided context to answer that."}, info, nil
	}
	first := strings.SplitN(ctxText, "\n\n", 2)[0]
	runes := []rune(first)
	if len(runes) > 280 {
		first = string(runes[:280]) + "..."
	}
	return GenerateResponse{Text: "Based on the provided documents: " + first}, info, nil
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	terms := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(terms) == 0 {
		terms = []string{"empty"}
	}
	for _, term := range terms {
		h := sha256.Sum256([]byte(term))
		idx := binary.BigEndian.Uint32(h[:4]) % uint32(dim)
		sign := float32(1)
		if h[4]&1 == 1 {
			sign = -1
		}
		vec[idx] += sign
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

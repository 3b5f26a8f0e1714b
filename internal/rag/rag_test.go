package rag

import (
	"context"
	"fmt"
	"sync"

	"notebookllm/internal/models"
	"notebookllm/internal/providers"
	"notebookllm/internal/vectorstore"
	"notebookllm/internal/vectorstore/memory"
)

const testDim = 64

type countingIndexer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingIndexer) AddDocuments(ctx context.Context, chunks []models.Chunk) (vectorstore.AddResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return vectorstore.AddResult{}, c.err
	}
	return vectorstore.AddResult{Points: len(chunks)}, nil
}

type stubRetriever struct {
	res   models.RetrievalResult
	err   error
	calls int
}

func (s *stubRetriever) SimilaritySearch(ctx context.Context, query string, k int) (models.RetrievalResult, error) {
	s.calls++
	return s.res, s.err
}

type captureLLM struct {
	text  string
	err   error
	calls int
	last  providers.GenerateRequest
}

func (c *captureLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	c.calls++
	c.last = req
	if c.err != nil {
		return providers.GenerateResponse{}, providers.ProviderInfo{Name: "capture"}, c.err
	}
	return providers.GenerateResponse{Text: c.text}, providers.ProviderInfo{Name: "capture"}, nil
}

type staticCreds struct{ err error }

func (s staticCreds) CheckCredentials(needLLM bool) error { return s.err }

var missingKey = staticCreds{err: fmt.Errorf("OPENAI_API_KEY is not set: %w", providers.ErrMissingCredentials)}

func newMemoryGateway() (*vectorstore.Gateway, *memory.Storage) {
	store := memory.NewStorage()
	gw := vectorstore.NewGateway(store, providers.NewMockProvider(testDim), vectorstore.Options{
		Collection: "text",
		Dimension:  testDim,
		BatchSize:  2,
	})
	return gw, store
}

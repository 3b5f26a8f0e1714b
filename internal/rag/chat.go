package rag

import (
	"context"
	"log"
	"strings"

	"notebookllm/internal/models"
	"notebookllm/internal/providers"
	"notebookllm/internal/util"
)

// Retriever is the read side of the vector store gateway.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) (models.RetrievalResult, error)
}

type ChatOptions struct {
	TopK        int
	Temperature float64
	MaxTokens   int
}

type Chatter struct {
	retriever Retriever
	llm       providers.LLMProvider
	creds     CredentialChecker
	opts      ChatOptions
}

func NewChatter(retriever Retriever, llm providers.LLMProvider, creds CredentialChecker, opts ChatOptions) *Chatter {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	return &Chatter{retriever: retriever, llm: llm, creds: creds, opts: opts}
}

type Source struct {
	DocumentID string  `json:"documentId"`
	Source     string  `json:"source,omitempty"`
	Page       string  `json:"page,omitempty"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet"`
}

type ChatResult struct {
	Response       string   `json:"response"`
	DocumentsFound int      `json:"documentsFound"`
	Sources        []Source `json:"sources"`
}

func noInformation() ChatResult {
	return ChatResult{Response: NoInformationAnswer, DocumentsFound: 0, Sources: []Source{}}
}

// Answer retrieves the top-k chunks for query and asks the completion
// provider to answer from them.
func (c *Chatter) Answer(ctx context.Context, query string) (ChatResult, error) {
	const op = "chat"
	query = strings.TrimSpace(query)
	if query == "" {
		return ChatResult{}, validationError(op, "Message is required")
	}
	if c.creds != nil {
		if err := c.creds.CheckCredentials(true); err != nil {
			return ChatResult{}, Classify(op, err)
		}
	}

	res, err := c.retriever.SimilaritySearch(ctx, query, c.opts.TopK)
	if err != nil {
		perr := Classify(op, err)
		if KindOf(perr) == KindNoDocuments {
			log.Printf("chat without indexed documents")
			return noInformation(), nil
		}
		return ChatResult{}, perr
	}
	contextBlock := BuildContext(res)
	if res.Len() == 0 || contextBlock == "" {
		return noInformation(), nil
	}

	resp, info, err := c.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   "chat",
		System:      BuildSystemPrompt(contextBlock),
		Prompt:      query,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return ChatResult{}, Classify(op, err)
	}
	log.Printf("chat answered provider=%s model=%s documents_found=%d", info.Name, info.Model, res.Len())
	return ChatResult{
		Response:       resp.Text,
		DocumentsFound: res.Len(),
		Sources:        sources(res, query),
	}, nil
}

func sources(res models.RetrievalResult, query string) []Source {
	out := make([]Source, 0, res.Len())
	for _, rc := range res.Chunks {
		out = append(out, Source{
			DocumentID: rc.Chunk.DocumentID,
			Source:     rc.Chunk.Metadata["source"],
			Page:       rc.Chunk.Metadata["page"],
			Score:      rc.Score,
			Snippet:    util.EvidenceSnippet(rc.Chunk.Text, query, 240),
		})
	}
	return out
}

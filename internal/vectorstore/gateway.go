package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"notebookllm/internal/models"
	"notebookllm/internal/providers"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Collection  string
	Dimension   int
	BatchSize   int
	Parallelism int
}

// Gateway couples an embedding provider with a Store for one collection.
type Gateway struct {
	store       Store
	embedder    providers.EmbeddingProvider
	collection  string
	dimension   int
	batchSize   int
	parallelism int
}

type AddResult struct {
	Points            int
	CollectionCreated bool
}

func NewGateway(store Store, embedder providers.EmbeddingProvider, opts Options) *Gateway {
	if strings.TrimSpace(opts.Collection) == "" {
		opts.Collection = "text"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	return &Gateway{
		store:       store,
		embedder:    embedder,
		collection:  opts.Collection,
		dimension:   opts.Dimension,
		batchSize:   opts.BatchSize,
		parallelism: opts.Parallelism,
	}
}

func (g *Gateway) Collection() string { return g.collection }

// Embedder exposes the provider so callers can check credentials up front.
func (g *Gateway) Embedder() providers.EmbeddingProvider { return g.embedder }

// Embed embeds texts in sub-batches with bounded parallelism. The returned
// vectors are in input order.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelism)
	for start := 0; start < len(texts); start += g.batchSize {
		start := start
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		eg.Go(func() error {
			vecs, _, err := g.embedder.Embed(egCtx, providers.EmbedRequest{
				Operation: "embed_chunks",
				Inputs:    texts[start:end],
				Dimension: g.dimension,
			})
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d inputs", len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	return out, nil
}

// AddDocuments embeds chunks once and appends them to the collection,
// creating the collection only when the store reports it missing.
func (g *Gateway) AddDocuments(ctx context.Context, chunks []models.Chunk) (AddResult, error) {
	if len(chunks) == 0 {
		return AddResult{}, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := g.Embed(ctx, texts)
	if err != nil {
		return AddResult{}, err
	}
	points := make([]Point, len(chunks))
	for i, c := range chunks {
		points[i] = Point{ID: uuid.NewString(), Vector: vectors[i], Chunk: c}
	}

	err = g.store.Upsert(ctx, g.collection, points)
	if err == nil {
		return AddResult{Points: len(points)}, nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return AddResult{}, fmt.Errorf("upsert points: %w", err)
	}

	dim := len(vectors[0])
	log.Printf("collection missing, creating collection=%q dimension=%d", g.collection, dim)
	if err := g.store.CreateCollection(ctx, g.collection, dim); err != nil {
		return AddResult{}, fmt.Errorf("create collection %s: %w", g.collection, err)
	}
	if err := g.store.Upsert(ctx, g.collection, points); err != nil {
		return AddResult{}, fmt.Errorf("upsert points after create: %w", err)
	}
	return AddResult{Points: len(points), CollectionCreated: true}, nil
}

// SimilaritySearch embeds query and returns the k nearest chunks. A missing
// collection is reported before the query is embedded.
func (g *Gateway) SimilaritySearch(ctx context.Context, query string, k int) (models.RetrievalResult, error) {
	if k <= 0 {
		k = 3
	}
	ok, err := g.store.CollectionExists(ctx, g.collection)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("check collection %s: %w", g.collection, err)
	}
	if !ok {
		return models.RetrievalResult{}, fmt.Errorf("search collection %s: %w", g.collection, ErrCollectionNotFound)
	}
	vecs, _, err := g.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "embed_query",
		Inputs:    []string{query},
		Dimension: g.dimension,
	})
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return models.RetrievalResult{}, fmt.Errorf("embedder returned %d vectors for query", len(vecs))
	}
	matches, err := g.store.Search(ctx, g.collection, vecs[0], k)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("search collection %s: %w", g.collection, err)
	}
	out := models.RetrievalResult{Chunks: make([]models.RetrievedChunk, 0, len(matches))}
	for _, m := range matches {
		out.Chunks = append(out.Chunks, models.RetrievedChunk{Chunk: m.Chunk, Score: m.Score})
	}
	return out, nil
}

// DeleteDocument purges a document's points. A missing collection means
// there was nothing to delete.
func (g *Gateway) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	n, err := g.store.DeleteDocument(ctx, g.collection, documentID)
	if errors.Is(err, ErrCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return n, nil
}

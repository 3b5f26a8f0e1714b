// Package app assembles the process-wide clients shared by the API server,
// the worker and the local CLI.
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"notebookllm/internal/config"
	"notebookllm/internal/providers"
	"notebookllm/internal/rag"
	"notebookllm/internal/splitter"
	"notebookllm/internal/storage"
	"notebookllm/internal/vectorstore"
	"notebookllm/internal/vectorstore/memory"
	"notebookllm/internal/vectorstore/pgvector"
	"notebookllm/internal/vectorstore/qdrant"
)

type Components struct {
	Config    config.Config
	Providers *providers.Manager
	Store     vectorstore.Store
	Gateway   *vectorstore.Gateway
	Catalog   storage.Catalog
	Ingestor  *rag.Ingestor
	Chatter   *rag.Chatter

	db     *storage.DB
	sqlite *storage.SQLiteCatalog
}

// Build constructs every client once. Missing API keys are not an error
// here; the pipelines report them per request.
func Build(ctx context.Context, cfg config.Config) (*Components, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("build providers: %w", err)
	}
	c := &Components{Config: cfg, Providers: pm}

	if cfg.PostgresURL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		c.db, err = storage.NewDB(dbCtx, cfg.PostgresURL)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	store, err := c.buildStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	catalog, err := c.buildCatalog(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.wire(store, catalog)
	log.Printf("components ready vector_store=%s collection=%q embed_provider=%s llm_providers=%d catalog=%T",
		cfg.VectorStore, c.Gateway.Collection(), pm.EmbedRef().Raw, pm.LLMCount(), catalog)
	return c, nil
}

// New wires already-built dependencies, for tests and embedded use.
func New(cfg config.Config, pm *providers.Manager, store vectorstore.Store, catalog storage.Catalog) *Components {
	c := &Components{Config: cfg, Providers: pm}
	c.wire(store, catalog)
	return c
}

func (c *Components) wire(store vectorstore.Store, catalog storage.Catalog) {
	cfg := c.Config
	c.Store = store
	c.Catalog = catalog
	c.Gateway = vectorstore.NewGateway(store, c.Providers.Embedder(), vectorstore.Options{
		Collection:  cfg.Collection,
		Dimension:   c.Providers.EmbedDimension(),
		BatchSize:   cfg.EmbedBatch,
		Parallelism: cfg.EmbedParallelism,
	})
	c.Ingestor = rag.NewIngestor(c.Gateway, c.Providers, catalog, splitter.NewRecursive(cfg.ChunkSize, cfg.ChunkOverlap))
	c.Chatter = rag.NewChatter(c.Gateway, c.Providers, c.Providers, rag.ChatOptions{
		TopK:        cfg.TopK,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
}

func (c *Components) buildStore(ctx context.Context) (vectorstore.Store, error) {
	switch c.Config.VectorStore {
	case "", "qdrant":
		return qdrant.NewStorage(qdrant.Config{URL: c.Config.QdrantURL, APIKey: c.Config.QdrantAPIKey}), nil
	case "pgvector":
		if c.db == nil {
			return nil, fmt.Errorf("vector store pgvector requires NOTEBOOK_POSTGRES_URL")
		}
		s := pgvector.NewStorage(c.db.Pool)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unknown vector store %q", c.Config.VectorStore)
	}
}

// buildCatalog prefers Postgres, then a local SQLite file, then memory.
func (c *Components) buildCatalog(ctx context.Context) (storage.Catalog, error) {
	if c.db == nil {
		if c.Config.SQLitePath == "" {
			return storage.NewMemoryCatalog(), nil
		}
		cat, err := storage.NewSQLiteCatalog(c.Config.SQLitePath)
		if err != nil {
			return nil, err
		}
		c.sqlite = cat
		return cat, nil
	}
	repo := storage.NewDocumentRepo(c.db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (c *Components) Close() {
	if c.db != nil {
		c.db.Close()
	}
	if c.sqlite != nil {
		if err := c.sqlite.Close(); err != nil {
			log.Printf("close sqlite catalog path=%s err=%v", c.sqlite.Path(), err)
		}
	}
}

// Package vectorstore embeds chunks and stores them in a named collection of
// a vector database, and answers top-k similarity queries against it.
package vectorstore

import (
	"context"
	"errors"

	"notebookllm/internal/models"
)

var (
	// ErrCollectionNotFound is the only store error that triggers lazy
	// collection creation during ingestion.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrUnavailable marks a store that could not be reached at all.
	ErrUnavailable = errors.New("vector store unavailable")
	// ErrUnauthorized marks a store that rejected the configured credentials.
	ErrUnauthorized = errors.New("vector store rejected credentials")
)

type Point struct {
	ID     string
	Vector []float32
	Chunk  models.Chunk
}

type Match struct {
	Chunk models.Chunk
	Score float64
}

// Store is implemented by each vector database backend.
type Store interface {
	// CollectionExists reports whether collection has been created. It never
	// returns ErrCollectionNotFound.
	CollectionExists(ctx context.Context, collection string) (bool, error)
	// CreateCollection creates a cosine-distance collection. A collection
	// that already exists is not an error.
	CreateCollection(ctx context.Context, collection string, dimension int) error
	// Upsert writes points, returning ErrCollectionNotFound when the
	// collection does not exist.
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns up to k matches ordered by descending similarity.
	Search(ctx context.Context, collection string, vector []float32, k int) ([]Match, error)
	// DeleteDocument removes every point whose chunk belongs to documentID
	// and reports how many were removed.
	DeleteDocument(ctx context.Context, collection, documentID string) (int, error)
}

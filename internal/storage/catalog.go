package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"notebookllm/internal/models"
)

var ErrNotFound = errors.New("not found")

// Catalog records documents and their indexing status. Vectors live in the
// vector store; the catalog only tracks what was ingested.
type Catalog interface {
	CreateDocument(ctx context.Context, d models.Document) error
	UpdateStatus(ctx context.Context, update StatusUpdate) error
	GetDocument(ctx context.Context, id string) (models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	FindIndexedByHash(ctx context.Context, hash string) (models.Document, bool, error)
}

type StatusUpdate struct {
	DocumentID string
	Status     models.DocumentStatus
	Chunks     int
	Pages      int
	FailReason string
}

type MemoryCatalog struct {
	mu   sync.RWMutex
	docs map[string]models.Document
	now  func() time.Time
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{docs: map[string]models.Document{}, now: time.Now}
}

func (c *MemoryCatalog) CreateDocument(ctx context.Context, d models.Document) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[d.ID]; ok {
		return fmt.Errorf("create document %s: already exists", d.ID)
	}
	now := c.now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	c.docs[d.ID] = d
	return nil
}

func (c *MemoryCatalog) UpdateStatus(ctx context.Context, u StatusUpdate) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.docs[u.DocumentID]
	if !ok {
		return fmt.Errorf("update document status %s: %w", u.DocumentID, ErrNotFound)
	}
	d.Status = u.Status
	d.Chunks = u.Chunks
	if u.Pages > 0 {
		d.Pages = u.Pages
	}
	d.FailReason = u.FailReason
	d.UpdatedAt = c.now().UTC()
	c.docs[u.DocumentID] = d
	return nil
}

func (c *MemoryCatalog) GetDocument(ctx context.Context, id string) (models.Document, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.docs[id]
	if !ok {
		return models.Document{}, fmt.Errorf("get document %s: %w", id, ErrNotFound)
	}
	return d, nil
}

func (c *MemoryCatalog) ListDocuments(ctx context.Context) ([]models.Document, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Document, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (c *MemoryCatalog) DeleteDocument(ctx context.Context, id string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("delete document %s: %w", id, ErrNotFound)
	}
	delete(c.docs, id)
	return nil
}

func (c *MemoryCatalog) FindIndexedByHash(ctx context.Context, hash string) (models.Document, bool, error) {
	_ = ctx
	if hash == "" {
		return models.Document{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var found models.Document
	ok := false
	for _, d := range c.docs {
		if d.ContentHash != hash || d.Status != models.StatusIndexed {
			continue
		}
		if !ok || d.CreatedAt.Before(found.CreatedAt) {
			found, ok = d, true
		}
	}
	return found, ok, nil
}

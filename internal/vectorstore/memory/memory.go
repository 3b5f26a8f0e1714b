// Package memory is an in-process vector store using brute-force cosine
// similarity. It backs tests and single-process demos.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"notebookllm/internal/vectorstore"
)

type collection struct {
	dimension int
	points    []vectorstore.Point
}

type Storage struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewStorage() *Storage {
	return &Storage{collections: map[string]*collection{}}
}

func (s *Storage) CreateCollection(ctx context.Context, name string, dimension int) error {
	_ = ctx
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &collection{dimension: dimension}
	return nil
}

func (s *Storage) CollectionExists(ctx context.Context, name string) (bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Storage) Upsert(ctx context.Context, name string, points []vectorstore.Point) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("memory collection %q: %w", name, vectorstore.ErrCollectionNotFound)
	}
	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d want %d", len(p.Vector), c.dimension)
		}
	}
	for _, p := range points {
		replaced := false
		for i := range c.points {
			if c.points[i].ID == p.ID {
				c.points[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			c.points = append(c.points, p)
		}
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, name string, vector []float32, k int) ([]vectorstore.Match, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("memory collection %q: %w", name, vectorstore.ErrCollectionNotFound)
	}
	if k <= 0 {
		k = 3
	}
	matches := make([]vectorstore.Match, 0, len(c.points))
	for _, p := range c.points {
		matches = append(matches, vectorstore.Match{Chunk: p.Chunk, Score: cosine(p.Vector, vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

func (s *Storage) DeleteDocument(ctx context.Context, name, documentID string) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return 0, fmt.Errorf("memory collection %q: %w", name, vectorstore.ErrCollectionNotFound)
	}
	kept := c.points[:0]
	removed := 0
	for _, p := range c.points {
		if p.Chunk.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	c.points = kept
	return removed, nil
}

// Len reports the number of points in a collection, or -1 when it is missing.
func (s *Storage) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return -1
	}
	return len(c.points)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

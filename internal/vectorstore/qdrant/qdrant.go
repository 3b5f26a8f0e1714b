// Package qdrant is a minimal REST client for Qdrant collections.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"notebookllm/internal/models"
	"notebookllm/internal/vectorstore"
)

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type Storage struct {
	url    string
	apiKey string
	client *http.Client
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx Qdrant response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return vectorstore.ErrCollectionNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return vectorstore.ErrUnauthorized
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return vectorstore.ErrUnavailable
	}
	return nil
}

func (s *Storage) CreateCollection(ctx context.Context, collection string, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err := s.do(ctx, http.MethodPut, collectionPath(collection), body, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusConflict || strings.Contains(strings.ToLower(apiErr.Message), "already exists")) {
		return nil
	}
	return err
}

type payload struct {
	DocumentID string            `json:"document_id"`
	ChunkIndex int               `json:"chunk_index"`
	Start      int               `json:"start"`
	End        int               `json:"end"`
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (p payload) chunk() models.Chunk {
	return models.Chunk{
		DocumentID: p.DocumentID,
		Index:      p.ChunkIndex,
		Start:      p.Start,
		End:        p.End,
		Text:       p.Text,
		Metadata:   p.Metadata,
	}
}

func (s *Storage) CollectionExists(ctx context.Context, collection string) (bool, error) {
	err := s.do(ctx, http.MethodGet, collectionPath(collection), nil, nil)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Storage) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	type point struct {
		ID      string    `json:"id"`
		Vector  []float32 `json:"vector"`
		Payload payload   `json:"payload"`
	}
	out := make([]point, len(points))
	for i, p := range points {
		out[i] = point{
			ID:     p.ID,
			Vector: p.Vector,
			Payload: payload{
				DocumentID: p.Chunk.DocumentID,
				ChunkIndex: p.Chunk.Index,
				Start:      p.Chunk.Start,
				End:        p.Chunk.End,
				Text:       p.Chunk.Text,
				Metadata:   p.Chunk.Metadata,
			},
		}
	}
	return s.do(ctx, http.MethodPut, collectionPath(collection)+"/points?wait=true", map[string]any{"points": out}, nil)
}

func (s *Storage) Search(ctx context.Context, collection string, vector []float32, k int) ([]vectorstore.Match, error) {
	if k <= 0 {
		k = 3
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	out := make([]vectorstore.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, vectorstore.Match{Chunk: r.Payload.chunk(), Score: r.Score})
	}
	return out, nil
}

func documentFilter(documentID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{"key": "document_id", "match": map[string]any{"value": documentID}},
		},
	}
}

func (s *Storage) DeleteDocument(ctx context.Context, collection, documentID string) (int, error) {
	var count struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	filter := documentFilter(documentID)
	if err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/count", map[string]any{"filter": filter, "exact": true}, &count); err != nil {
		return 0, err
	}
	if count.Result.Count == 0 {
		return 0, nil
	}
	if err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/delete?wait=true", map[string]any{"filter": filter}, nil); err != nil {
		return 0, err
	}
	return count.Result.Count, nil
}

func collectionPath(collection string) string {
	return "/collections/" + url.PathEscape(collection)
}

func (s *Storage) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("build qdrant request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("qdrant %s %s: %v: %w", method, path, err, vectorstore.ErrUnavailable)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return nil
}

func errorMessage(raw []byte, status int) string {
	var parsed struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Status.Error != "" {
		return parsed.Status.Error
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return strconv.Itoa(status) + " " + http.StatusText(status)
}

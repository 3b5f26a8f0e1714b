package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"notebookllm/internal/models"
	"notebookllm/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	APIKey string
	Body   map[string]any
}

type fakeQdrant struct {
	mu       sync.Mutex
	requests []recorded
	handle   func(w http.ResponseWriter, r recorded)
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{Method: r.Method, Path: r.URL.RequestURI(), APIKey: r.Header.Get("api-key")}
	_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	f.handle(w, rec)
}

func newFake(t *testing.T, handle func(w http.ResponseWriter, r recorded)) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{handle: handle}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL + "/", APIKey: "secret"}), fake
}

func TestCreateCollectionSendsCosineConfig(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	})
	require.NoError(t, s.CreateCollection(context.Background(), "text", 1536))
	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/collections/text", req.Path)
	assert.Equal(t, "secret", req.APIKey)
	vectors := req.Body["vectors"].(map[string]any)
	assert.Equal(t, float64(1536), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestCreateCollectionAlreadyExists(t *testing.T) {
	s, _ := newFake(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":{"error":"Wrong input: Collection ` + "`text`" + ` already exists!"}}`))
	})
	require.NoError(t, s.CreateCollection(context.Background(), "text", 8))
}

func TestUpsertPayload(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
	})
	err := s.Upsert(context.Background(), "text", []vectorstore.Point{{
		ID:     "7d444840-9dc0-11d1-b245-5ffdce74fad2",
		Vector: []float32{0.5, 0.5},
		Chunk: models.Chunk{
			DocumentID: "doc-1",
			Index:      2,
			Start:      10,
			End:        20,
			Text:       "hello",
			Metadata:   map[string]string{"source": "user_input"},
		},
	}})
	require.NoError(t, err)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "/collections/text/points?wait=true", fake.requests[0].Path)
	points := fake.requests[0].Body["points"].([]any)
	require.Len(t, points, 1)
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	assert.Equal(t, "doc-1", payload["document_id"])
	assert.Equal(t, float64(2), payload["chunk_index"])
	assert.Equal(t, "hello", payload["text"])
	assert.Equal(t, "user_input", payload["metadata"].(map[string]any)["source"])
}

func TestUpsertMissingCollection(t *testing.T) {
	s, _ := newFake(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":{"error":"Not found: Collection ` + "`text`" + ` doesn't exist!"}}`))
	})
	err := s.Upsert(context.Background(), "text", []vectorstore.Point{{ID: "a", Vector: []float32{1}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, vectorstore.ErrCollectionNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "doesn't exist")
}

func TestSearchDecodesMatches(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		_, _ = w.Write([]byte(`{"result":[
			{"id":"a","score":0.91,"payload":{"document_id":"doc-1","chunk_index":0,"start":0,"end":5,"text":"first","metadata":{"page":"1"}}},
			{"id":"b","score":0.42,"payload":{"document_id":"doc-2","chunk_index":3,"start":7,"end":12,"text":"second"}}
		],"status":"ok"}`))
	})
	got, err := s.Search(context.Background(), "text", []float32{1, 0}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Chunk.Text)
	assert.Equal(t, "1", got[0].Chunk.Metadata["page"])
	assert.InDelta(t, 0.91, got[0].Score, 1e-9)
	assert.Equal(t, 3, got[1].Chunk.Index)

	req := fake.requests[0]
	assert.Equal(t, "/collections/text/points/search", req.Path)
	assert.Equal(t, float64(3), req.Body["limit"])
	assert.Equal(t, true, req.Body["with_payload"])
}

func TestDeleteDocumentCountsThenDeletes(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		if r.Path == "/collections/text/points/count" {
			_, _ = w.Write([]byte(`{"result":{"count":4},"status":"ok"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
	})
	n, err := s.DeleteDocument(context.Background(), "text", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.Len(t, fake.requests, 2)
	assert.Equal(t, "/collections/text/points/delete?wait=true", fake.requests[1].Path)
	must := fake.requests[1].Body["filter"].(map[string]any)["must"].([]any)
	assert.Equal(t, "document_id", must[0].(map[string]any)["key"])
}

func TestDeleteDocumentSkipsDeleteWhenEmpty(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		_, _ = w.Write([]byte(`{"result":{"count":0},"status":"ok"}`))
	})
	n, err := s.DeleteDocument(context.Background(), "text", "doc-1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, fake.requests, 1)
}

func TestUnavailable(t *testing.T) {
	s, _ := newFake(t, func(w http.ResponseWriter, r recorded) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := s.Search(context.Background(), "text", []float32{1}, 3)
	require.ErrorIs(t, err, vectorstore.ErrUnavailable)

	down := NewStorage(Config{URL: "http://127.0.0.1:1"})
	_, err = down.Search(context.Background(), "text", []float32{1}, 3)
	require.ErrorIs(t, err, vectorstore.ErrUnavailable)
}

func TestCollectionExists(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		if r.Path == "/collections/text" {
			_, _ = w.Write([]byte(`{"result":{"status":"green"},"status":"ok"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":{"error":"Not found"}}`))
	})
	ok, err := s.CollectionExists(context.Background(), "text")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CollectionExists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, fake.requests, 2)
	assert.Equal(t, http.MethodGet, fake.requests[0].Method)
	assert.Equal(t, "secret", fake.requests[0].APIKey)
}

func TestRejectedAPIKey(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		s, _ := newFake(t, func(w http.ResponseWriter, r recorded) {
			w.WriteHeader(status)
		})
		_, err := s.CollectionExists(context.Background(), "text")
		require.ErrorIs(t, err, vectorstore.ErrUnauthorized, "status %d", status)
		assert.NotErrorIs(t, err, vectorstore.ErrCollectionNotFound)
	}
}

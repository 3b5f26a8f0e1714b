package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestTextPostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/indexing", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Paris is the capital of France.", body["text"])
		assert.Equal(t, "notes", body["name"])
		_, _ = w.Write([]byte(`{"message":"Text indexed successfully","chunks":1,"textLength":31,"documentId":"d1"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL+"/").IngestText(context.Background(), "notes", "Paris is the capital of France.")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, 31, res.TextLength)
	assert.Equal(t, "d1", res.DocumentID)
}

func TestUploadPDFSendsMultipartField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload-pdf", r.URL.Path)
		f, fh, err := r.FormFile("pdf")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "paper.pdf", fh.Filename)
		assert.Equal(t, "%PDF-1.4", string(data))
		_, _ = w.Write([]byte(`{"message":"ok","pages":2,"chunks":3,"filename":"paper.pdf","documentId":"d2"}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL).UploadPDF(context.Background(), "paper.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, "d2", res.DocumentID)
}

func TestChatDecodesSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"Paris.","documentsFound":1,"sources":[{"documentId":"d1","score":0.9,"snippet":"Paris is"}]}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL).Chat(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", res.Response)
	assert.Equal(t, 1, res.DocumentsFound)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "d1", res.Sources[0].DocumentID)
}

func TestErrorBodyBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Message is required","code":"ValidationError"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), " ")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "ValidationError", apiErr.Code)
	assert.Equal(t, "Message is required", apiErr.Message)
}

func TestErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ListDocuments(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "", apiErr.Code)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestDocumentsListAndDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/documents":
			_, _ = w.Write([]byte(`{"documents":[{"id":"d1","name":"Pasted Text 1","kind":"text","size":31,"status":"indexed","chunks":1}]}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/documents/d1":
			_, _ = w.Write([]byte(`{"deleted":"d1","vectorsRemoved":1}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/documents/d1/progress":
			_, _ = w.Write([]byte(`{"documentId":"d1","currentStep":"done","status":"indexed","chunks":1,"steps":{}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	docs, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Pasted Text 1", docs[0].Name)

	del, err := c.DeleteDocument(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, del.VectorsRemoved)

	prog, err := c.Progress(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "indexed", prog.Status)
}

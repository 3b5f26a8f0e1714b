package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notebookllm/internal/app"
	"notebookllm/internal/config"
	"notebookllm/internal/loader/loadertest"
	"notebookllm/internal/metrics"
	"notebookllm/internal/models"
	"notebookllm/internal/providers"
	"notebookllm/internal/rag"
	"notebookllm/internal/storage"
	"notebookllm/internal/vectorstore/memory"
	"notebookllm/internal/workflows"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 64

type fakeWorkflows struct {
	started  []workflows.DocumentIngestInput
	startErr error
	progress map[string]workflows.IngestProgress
}

func (f *fakeWorkflows) StartIngest(ctx context.Context, in workflows.DocumentIngestInput) (string, string, error) {
	if f.startErr != nil {
		return "", "", f.startErr
	}
	f.started = append(f.started, in)
	return workflows.WorkflowID(in.DocumentID), "run-1", nil
}

func (f *fakeWorkflows) Progress(ctx context.Context, documentID string) (workflows.IngestProgress, error) {
	p, ok := f.progress[documentID]
	if !ok {
		return workflows.IngestProgress{}, errors.New("workflow not found")
	}
	return p, nil
}

type testServer struct {
	handler http.Handler
	comp    *app.Components
	store   *memory.Storage
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, wf IngestWorkflows) testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.VectorStore = "memory"
	mock := providers.NewMockProvider(testDim)
	store := memory.NewStorage()
	comp := app.New(cfg, providers.NewStaticManager(mock, testDim, mock), store, storage.NewMemoryCatalog())
	m := metrics.New("notebookllm_test")
	return testServer{handler: NewServer(comp, m, wf).Routes(), comp: comp, store: store, metrics: m}
}

func (ts testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts testServer) upload(t *testing.T, field, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "nothing attached"))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/upload-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestIndexThenChat(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/indexing", map[string]string{"text": "Paris is the capital of France."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Text indexed successfully", body["message"])
	assert.Equal(t, float64(1), body["chunks"])
	assert.Equal(t, float64(31), body["textLength"])
	assert.NotEmpty(t, body["documentId"])

	rec = ts.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "What is the capital of France?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Contains(t, body["response"], "Paris")
	assert.GreaterOrEqual(t, body["documentsFound"].(float64), float64(1))
	sources := body["sources"].([]any)
	require.NotEmpty(t, sources)
	assert.Equal(t, rag.SourceUserInput, sources[0].(map[string]any)["source"])
}

func TestIndexingDuplicateIsFlagged(t *testing.T) {
	ts := newTestServer(t, nil)
	first := decode(t, ts.do(t, http.MethodPost, "/api/indexing", map[string]string{"text": "same text"}))
	rec := ts.do(t, http.MethodPost, "/api/indexing", map[string]string{"text": "same text"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first["documentId"], decode(t, rec)["duplicateOf"])
	assert.Equal(t, 2, ts.store.Len("text"))
}

func TestIndexingValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/indexing", map[string]string{"text": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Text is required", body["error"])
	assert.Equal(t, "ValidationError", body["code"])

	req := httptest.NewRequest(http.MethodPost, "/api/indexing", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Malformed JSON request body.", decode(t, rec)["error"])

	rec = ts.do(t, http.MethodGet, "/api/indexing", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestIndexingMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.Defaults()
	openai := providers.NewOpenAIProvider(providers.OpenAIOptions{})
	comp := app.New(cfg, providers.NewStaticManager(openai, testDim, openai), memory.NewStorage(), storage.NewMemoryCatalog())
	ts := testServer{handler: NewServer(comp, nil, nil).Routes()}

	rec := ts.do(t, http.MethodPost, "/api/indexing", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Server configuration error: Missing OpenAI API key", body["error"])
	assert.Equal(t, "ConfigurationError", body["code"])
}

func TestChatFreshSystemReturnsCannedAnswer(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "anything there?"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, rag.NoInformationAnswer, body["response"])
	assert.Equal(t, float64(0), body["documentsFound"])
}

func TestChatBlankMessage(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/chat", map[string]string{"message": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", decode(t, rec)["code"])
}

func TestUploadPDF(t *testing.T) {
	ts := newTestServer(t, nil)
	data := loadertest.BuildPDF([]string{"Paris is the capital of France", "Berlin is the capital of Germany"})

	rec := ts.upload(t, "pdf", "capitals.pdf", data)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "PDF uploaded and indexed successfully", body["message"])
	assert.Equal(t, float64(2), body["pages"])
	assert.Equal(t, float64(2), body["chunks"])
	assert.Equal(t, "capitals.pdf", body["filename"])
}

func TestUploadPDFRejections(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.upload(t, "", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode(t, rec)["error"])

	rec = ts.upload(t, "pdf", "empty.pdf", []byte{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode(t, rec)["error"])
	assert.Equal(t, -1, ts.store.Len("text"))

	rec = ts.upload(t, "pdf", "notes.txt", []byte("just some notes"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", decode(t, rec)["code"])
}

func TestDocumentsListGetDelete(t *testing.T) {
	ts := newTestServer(t, nil)
	id := decode(t, ts.do(t, http.MethodPost, "/api/indexing", map[string]string{"text": "alpha beta gamma", "name": "Pasted Text 1"}))["documentId"].(string)
	ts.do(t, http.MethodPost, "/api/indexing", map[string]string{"text": "delta epsilon"})

	rec := ts.do(t, http.MethodGet, "/api/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["documents"].([]any), 2)

	rec = ts.do(t, http.MethodGet, "/api/documents/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode(t, rec)
	assert.Equal(t, "Pasted Text 1", doc["name"])
	assert.Equal(t, string(models.StatusIndexed), doc["status"])

	rec = ts.do(t, http.MethodDelete, "/api/documents/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, id, body["deleted"])
	assert.Equal(t, float64(1), body["vectorsRemoved"])
	assert.Equal(t, 1, ts.store.Len("text"))

	rec = ts.do(t, http.MethodGet, "/api/documents/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/documents/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFoundError", decode(t, rec)["code"])
}

func TestAsyncIndexingDisabled(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/indexing/async", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "WorkflowUnavailableError", decode(t, rec)["code"])
}

func TestAsyncIndexingStartsWorkflow(t *testing.T) {
	wf := &fakeWorkflows{progress: map[string]workflows.IngestProgress{}}
	ts := newTestServer(t, wf)

	rec := ts.do(t, http.MethodPost, "/api/indexing/async", map[string]string{"text": "async text", "name": "Notes"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	id := body["documentId"].(string)
	assert.Equal(t, workflows.WorkflowID(id), body["workflowId"])
	assert.Equal(t, "run-1", body["runId"])
	require.Len(t, wf.started, 1)
	assert.Equal(t, rag.SourceUserInput, wf.started[0].Source)
	assert.Equal(t, "async text", wf.started[0].Text)

	// No running workflow answers: progress comes from the catalog.
	rec = ts.do(t, http.MethodGet, "/api/documents/"+id+"/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.StatusPending), decode(t, rec)["status"])

	wf.progress[id] = workflows.IngestProgress{DocumentID: id, CurrentStep: "index_chunks", Status: "processing", Chunks: 1}
	rec = ts.do(t, http.MethodGet, "/api/documents/"+id+"/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prog := decode(t, rec)
	assert.Equal(t, "index_chunks", prog["currentStep"])

	rec = ts.do(t, http.MethodGet, "/api/documents/missing/progress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/indexing/async", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsyncIndexingStartFailureMarksDocumentFailed(t *testing.T) {
	wf := &fakeWorkflows{startErr: errors.New("temporal down")}
	ts := newTestServer(t, wf)

	rec := ts.do(t, http.MethodPost, "/api/indexing/async", map[string]string{"text": "async text"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	docs, err := ts.comp.Catalog.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, models.StatusFailed, docs[0].Status)
}

func TestHealthzMetricsAndCORS(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = ts.do(t, http.MethodOptions, "/api/chat", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")

	ts.do(t, http.MethodPost, "/api/indexing", map[string]string{"text": "metrics text"})
	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, "notebookllm_test_http_requests_total")
	assert.Contains(t, out, `route="indexing"`)
}

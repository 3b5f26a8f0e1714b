package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"notebookllm/internal/app"
	"notebookllm/internal/config"
	"notebookllm/internal/metrics"
	"notebookllm/internal/models"
	"notebookllm/internal/rag"
	"notebookllm/internal/storage"
	"notebookllm/internal/workflows"
)

// asyncTextLimit bounds text sent through the workflow engine, whose
// payloads are size-limited.
const asyncTextLimit = 512 << 10

// IngestWorkflows starts and inspects asynchronous ingestion.
type IngestWorkflows interface {
	StartIngest(ctx context.Context, in workflows.DocumentIngestInput) (workflowID, runID string, err error)
	Progress(ctx context.Context, documentID string) (workflows.IngestProgress, error)
}

// VectorDeleter purges a document's vectors from the collection.
type VectorDeleter interface {
	DeleteDocument(ctx context.Context, documentID string) (int, error)
}

type Server struct {
	cfg       config.Config
	ingestor  *rag.Ingestor
	chatter   *rag.Chatter
	catalog   storage.Catalog
	vectors   VectorDeleter
	metrics   *metrics.Metrics
	workflows IngestWorkflows
}

// NewServer builds the HTTP surface. m and wf may be nil; a nil wf disables
// the async endpoints.
func NewServer(c *app.Components, m *metrics.Metrics, wf IngestWorkflows) *Server {
	return &Server{
		cfg:       c.Config,
		ingestor:  c.Ingestor,
		chatter:   c.Chatter,
		catalog:   c.Catalog,
		vectors:   c.Gateway,
		metrics:   m,
		workflows: wf,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", s.route("healthz", s.handleHealthz))
	mux.Handle("/api/indexing", s.route("indexing", s.handleIndexing))
	mux.Handle("/api/indexing/async", s.route("indexing_async", s.handleIndexingAsync))
	mux.Handle("/api/upload-pdf", s.route("upload_pdf", s.handleUploadPDF))
	mux.Handle("/api/chat", s.route("chat", s.handleChat))
	mux.Handle("/api/documents", s.route("documents", s.handleDocuments))
	mux.Handle("/api/documents/", s.route("document", s.handleDocumentScoped))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return withCORS(mux)
}

func (s *Server) route(name string, h http.HandlerFunc) http.Handler {
	return s.metrics.Middleware(name, h)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type indexRequest struct {
	Text string `json:"text"`
	Name string `json:"name"`
}

func (s *Server) handleIndexing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	res, err := s.ingestor.IngestText(r.Context(), rag.IngestRequest{Text: req.Text, Name: req.Name})
	if err != nil {
		s.metrics.ObserveIngest(string(models.KindText), resultLabel(err), 0)
		writePipelineErr(w, err)
		return
	}
	s.metrics.ObserveIngest(string(models.KindText), "ok", res.Chunks)
	body := map[string]any{
		"message":    "Text indexed successfully",
		"chunks":     res.Chunks,
		"textLength": res.TextLength,
		"documentId": res.Document.ID,
	}
	if res.DuplicateOf != "" {
		body["duplicateOf"] = res.DuplicateOf
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleIndexingAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.workflows == nil {
		writeErr(w, http.StatusServiceUnavailable, errAsyncDisabled)
		return
	}
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if len(req.Text) > asyncTextLimit {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("text too large for async indexing"))
		return
	}
	doc, err := s.ingestor.Register(r.Context(), rag.IngestRequest{Text: req.Text, Name: req.Name})
	if err != nil {
		writePipelineErr(w, err)
		return
	}
	wfID, runID, err := s.workflows.StartIngest(r.Context(), workflows.DocumentIngestInput{
		DocumentID: doc.ID,
		Name:       doc.Name,
		Source:     rag.SourceUserInput,
		Text:       req.Text,
		UploadedAt: doc.CreatedAt,
	})
	if err != nil {
		log.Printf("start ingest workflow failed document_id=%s err=%v", doc.ID, err)
		_ = s.catalog.UpdateStatus(r.Context(), storage.StatusUpdate{DocumentID: doc.ID, Status: models.StatusFailed, FailReason: "workflow start failed"})
		writeErr(w, http.StatusServiceUnavailable, errAsyncDisabled)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"documentId": doc.ID, "workflowId": wfID, "runId": runID})
}

func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	limit := s.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload too large"))
			return
		}
		writeErr(w, http.StatusBadRequest, errNoFile)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()
	f, fh, err := r.FormFile("pdf")
	if err != nil {
		writeErr(w, http.StatusBadRequest, errNoFile)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := s.ingestor.IngestPDF(r.Context(), rag.PDFUpload{Filename: fh.Filename, Data: data})
	if err != nil {
		s.metrics.ObserveIngest(string(models.KindPDF), resultLabel(err), 0)
		writePipelineErr(w, err)
		return
	}
	s.metrics.ObserveIngest(string(models.KindPDF), "ok", res.Chunks)
	body := map[string]any{
		"message":    "PDF uploaded and indexed successfully",
		"pages":      res.Pages,
		"chunks":     res.Chunks,
		"filename":   res.Filename,
		"documentId": res.Document.ID,
	}
	if res.DuplicateOf != "" {
		body["duplicateOf"] = res.DuplicateOf
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	res, err := s.chatter.Answer(r.Context(), req.Message)
	if err != nil {
		s.metrics.ObserveChat(resultLabel(err), 0)
		writePipelineErr(w, err)
		return
	}
	result := "ok"
	if res.DocumentsFound == 0 {
		result = "no_documents"
	}
	s.metrics.ObserveChat(result, res.DocumentsFound)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	docs, err := s.catalog.ListDocuments(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleDocumentScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/documents/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	documentID := parts[0]

	if len(parts) == 2 && parts[1] == "progress" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleProgress(w, r, documentID)
		return
	}
	if len(parts) != 1 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := s.catalog.GetDocument(r.Context(), documentID)
		if err != nil {
			writeCatalogErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if _, err := s.catalog.GetDocument(r.Context(), documentID); err != nil {
			writeCatalogErr(w, err)
			return
		}
		removed, err := s.vectors.DeleteDocument(r.Context(), documentID)
		if err != nil {
			writePipelineErr(w, rag.Classify("delete document", err))
			return
		}
		if err := s.catalog.DeleteDocument(r.Context(), documentID); err != nil {
			writeCatalogErr(w, err)
			return
		}
		log.Printf("document deleted document_id=%s vectors_removed=%d", documentID, removed)
		writeJSON(w, http.StatusOK, map[string]any{"deleted": documentID, "vectorsRemoved": removed})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, documentID string) {
	if s.workflows != nil {
		prog, err := s.workflows.Progress(r.Context(), documentID)
		if err == nil {
			writeJSON(w, http.StatusOK, prog)
			return
		}
	}
	// Fallback to the catalog when no workflow can answer the query.
	doc, err := s.catalog.GetDocument(r.Context(), documentID)
	if err != nil {
		writeCatalogErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workflows.IngestProgress{
		DocumentID:  doc.ID,
		CurrentStep: "done",
		Status:      string(doc.Status),
		Chunks:      doc.Chunks,
		FailReason:  doc.FailReason,
		Steps:       map[string]string{},
	})
}

var (
	errAsyncDisabled = errors.New("async indexing unavailable")
	errNoFile        = errors.New("No file uploaded")
)

func resultLabel(err error) string {
	if k := rag.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": apiErr.Message,
		"code":  apiErr.Code,
	})
}

// writePipelineErr answers with the status and message carried by a
// pipeline error.
func writePipelineErr(w http.ResponseWriter, err error) {
	var perr *rag.Error
	if errors.As(err, &perr) {
		if perr.Kind != rag.KindValidation {
			log.Printf("request failed op=%q kind=%s err=%v", perr.Op, perr.Kind, perr.Err)
		}
		writeErr(w, perr.HTTPStatus(), err)
		return
	}
	log.Printf("request failed err=%v", err)
	writeErr(w, http.StatusInternalServerError, err)
}

func writeCatalogErr(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeErr(w, http.StatusInternalServerError, err)
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	var perr *rag.Error
	if errors.As(err, &perr) {
		return apiError{Code: string(perr.Kind), Message: perr.Msg}
	}

	switch {
	case status == http.StatusServiceUnavailable && errors.Is(err, errAsyncDisabled):
		return apiError{Code: "WorkflowUnavailableError", Message: "Async indexing is not available. Check the workflow engine configuration."}
	case status >= 500:
		return apiError{Code: "InternalError", Message: "Internal server error. Please retry or check service logs."}
	case status == http.StatusNotFound:
		return apiError{Code: "NotFoundError", Message: "Requested resource was not found."}
	case status == http.StatusMethodNotAllowed:
		return apiError{Code: "MethodNotAllowedError", Message: "This endpoint does not support the requested method."}
	case status == http.StatusRequestEntityTooLarge:
		return apiError{Code: string(rag.KindValidation), Message: "Uploaded file is too large."}
	}

	// For 4xx, keep user-safe validation context only.
	msg := "Invalid request. Check inputs and retry."
	if err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case errors.Is(err, errNoFile):
			msg = errNoFile.Error()
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(low, "too large"):
			msg = "Text is too large for async indexing. Use /api/indexing instead."
		}
	}
	return apiError{Code: string(rag.KindValidation), Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

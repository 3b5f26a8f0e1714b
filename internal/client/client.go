// Package client talks to the notebookllm HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notebookllm/internal/models"
	"notebookllm/internal/rag"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

type IndexResult struct {
	Message     string `json:"message"`
	Chunks      int    `json:"chunks"`
	TextLength  int    `json:"textLength"`
	DocumentID  string `json:"documentId"`
	DuplicateOf string `json:"duplicateOf,omitempty"`
}

type UploadResult struct {
	Message     string `json:"message"`
	Pages       int    `json:"pages"`
	Chunks      int    `json:"chunks"`
	Filename    string `json:"filename"`
	DocumentID  string `json:"documentId"`
	DuplicateOf string `json:"duplicateOf,omitempty"`
}

type AsyncResult struct {
	DocumentID string `json:"documentId"`
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

type DeleteResult struct {
	Deleted        string `json:"deleted"`
	VectorsRemoved int    `json:"vectorsRemoved"`
}

type Progress struct {
	DocumentID  string            `json:"documentId"`
	CurrentStep string            `json:"currentStep"`
	Status      string            `json:"status"`
	Chunks      int               `json:"chunks"`
	FailReason  string            `json:"failReason,omitempty"`
	Steps       map[string]string `json:"steps"`
}

func (c *Client) IngestText(ctx context.Context, name, text string) (IndexResult, error) {
	var out IndexResult
	err := c.doJSON(ctx, http.MethodPost, "/api/indexing", map[string]string{"text": text, "name": name}, &out)
	return out, err
}

func (c *Client) IngestTextAsync(ctx context.Context, name, text string) (AsyncResult, error) {
	var out AsyncResult
	err := c.doJSON(ctx, http.MethodPost, "/api/indexing/async", map[string]string{"text": text, "name": name}, &out)
	return out, err
}

// UploadPDF sends data as the multipart field "pdf".
func (c *Client) UploadPDF(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	var out UploadResult
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("pdf", filename)
	if err != nil {
		return out, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return out, fmt.Errorf("write upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return out, fmt.Errorf("close upload form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-pdf", &buf)
	if err != nil {
		return out, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return out, c.send(req, &out)
}

func (c *Client) Chat(ctx context.Context, message string) (rag.ChatResult, error) {
	var out rag.ChatResult
	err := c.doJSON(ctx, http.MethodPost, "/api/chat", map[string]string{"message": message}, &out)
	return out, err
}

func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var out struct {
		Documents []models.Document `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *Client) GetDocument(ctx context.Context, id string) (models.Document, error) {
	var out models.Document
	err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id), nil, &out)
	return out, err
}

// DeleteDocument removes the document from the catalog and purges its
// vectors on the server.
func (c *Client) DeleteDocument(ctx context.Context, id string) (DeleteResult, error) {
	var out DeleteResult
	err := c.doJSON(ctx, http.MethodDelete, "/api/documents/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Progress(ctx context.Context, id string) (Progress, error) {
	var out Progress
	err := c.doJSON(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(id)+"/progress", nil, &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var parsed struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != "" {
		return &APIError{StatusCode: status, Code: parsed.Code, Message: parsed.Error}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

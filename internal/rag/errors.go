package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"notebookllm/internal/providers"
	"notebookllm/internal/vectorstore"
)

type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindConfiguration      Kind = "ConfigurationError"
	KindStorageUnavailable Kind = "StorageUnavailableError"
	KindAuth               Kind = "AuthError"
	KindRateLimit          Kind = "RateLimitError"
	KindNoDocuments        Kind = "NoDocumentsIndexedError"
	KindExternalService    Kind = "ExternalServiceError"
)

// Error is the user-facing failure of a pipeline operation. Msg is safe to
// show to end users; Err keeps the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to the status the API answers with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindNoDocuments:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func validationError(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// KindOf returns the kind of err, or "" when err is not a pipeline error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Classify turns a provider or store failure into a pipeline error. The
// structured causes are consulted first; message matching is the fallback.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *Error
	if errors.As(err, &already) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindExternalService, Op: op, Msg: "request cancelled or timed out", Err: err}
	case errors.Is(err, vectorstore.ErrUnavailable):
		return &Error{Kind: KindStorageUnavailable, Op: op, Msg: "Unable to connect to vector database. Please check configuration.", Err: err}
	case errors.Is(err, vectorstore.ErrUnauthorized):
		return &Error{Kind: KindConfiguration, Op: op, Msg: "Vector database rejected the API key. Please check QDRANT_API_KEY.", Err: err}
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		return &Error{Kind: KindNoDocuments, Op: op, Msg: "no documents have been indexed yet", Err: err}
	}

	switch providers.ClassifyError(err) {
	case providers.ErrorConfig:
		return &Error{Kind: KindConfiguration, Op: op, Msg: "Server configuration error: Missing OpenAI API key", Err: err}
	case providers.ErrorAuth:
		return &Error{Kind: KindAuth, Op: op, Msg: "OpenAI API error. Please check your API key.", Err: err}
	case providers.ErrorRate, providers.ErrorQuota:
		return &Error{Kind: KindRateLimit, Op: op, Msg: "The AI provider is rate limiting requests. Please retry shortly.", Err: err}
	}
	return &Error{Kind: KindExternalService, Op: op, Msg: "Upstream service error: " + upstreamMessage(err), Err: err}
}

func upstreamMessage(err error) string {
	var se *providers.StatusError
	if errors.As(err, &se) {
		return se.Message()
	}
	return err.Error()
}

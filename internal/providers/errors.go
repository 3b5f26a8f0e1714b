package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrMissingCredentials = errors.New("provider credentials missing")

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Provider, e.StatusCode, strings.TrimSpace(e.Body))
}

// Message extracts the upstream error message from an OpenAI-style body,
// falling back to the raw body.
func (e *StatusError) Message() string {
	if msg := upstreamMessage(e.Body); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Body)
}

type ErrorType string

const (
	ErrorAuth      ErrorType = "auth"
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
	ErrorConfig    ErrorType = "config"
)

// ClassifyError uses the HTTP status when the error carries one and falls
// back to matching the message text.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingCredentials) {
		return ErrorConfig
	}
	var se *StatusError
	if errors.As(err, &se) {
		low := strings.ToLower(se.Body)
		switch {
		case se.StatusCode == http.StatusUnauthorized, se.StatusCode == http.StatusForbidden:
			return ErrorAuth
		case se.StatusCode == http.StatusTooManyRequests && strings.Contains(low, "insufficient_quota"):
			return ErrorQuota
		case se.StatusCode == http.StatusTooManyRequests:
			return ErrorRate
		case se.StatusCode >= 500:
			return ErrorTransient
		case strings.Contains(low, "context_length"), strings.Contains(low, "too long"):
			return ErrorContext
		default:
			return ErrorPermanent
		}
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "invalid api key"), strings.Contains(e, "unauthorized"), strings.Contains(e, "incorrect api key"):
		return ErrorAuth
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"), strings.Contains(e, "too many requests"), strings.Contains(e, "429"):
		return ErrorRate
	case strings.Contains(e, "context"), strings.Contains(e, "too long"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// Retryable reports whether another provider in a chain should be tried.
func Retryable(t ErrorType) bool {
	return t == ErrorRate || t == ErrorQuota || t == ErrorTransient
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Request Errors.

	// ErrCacheHit indicates the server answered 304 Not Modified.
	// Callers that tolerate stale data treat it as success.
	ErrCacheHit = errors.New("not modified")

	// ErrMissingPayload indicates a body-carrying request has no payload.
	ErrMissingPayload = errors.New("request payload missing")

	// ErrMissingFormType indicates a payload has no body encoding declared.
	ErrMissingFormType = errors.New("request body encoding missing")

	// ErrEmptyResponse indicates a response carried no body bytes.
	ErrEmptyResponse = errors.New("empty response body")

	// Authentication Errors.

	// ErrNotAuthenticated indicates no usable grant is available.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrExchangeInProgress indicates a grant exchange is already running.
	ErrExchangeInProgress = errors.New("grant exchange already in progress")

	// ErrNoRefreshToken indicates the stored grant cannot be refreshed.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// EncodingError indicates a request body could not be serialised.
// It is always returned before any network I/O.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// TransportError indicates a connection-level failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ClientError represents an HTTP 4xx response.
type ClientError struct {
	StatusCode int
	Body       []byte
}

func (e *ClientError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("client error %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("client error %d", e.StatusCode)
}

// Message extracts the server's {"error": "..."} message, if any.
func (e *ClientError) Message() string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Error)
}

// DecodeError indicates response bytes did not match the declared shape.
type DecodeError struct {
	Shape string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Shape, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// CorrelationError indicates a background completion could not be
// attributed to a record.
type CorrelationError struct {
	Path string
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("cannot correlate upload from path %q", e.Path)
}

// ClassifyStatus maps an HTTP status onto the error taxonomy.
// 304 is a cache hit, 4xx a client error, anything else passes to decoding.
func ClassifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusNotModified:
		return ErrCacheHit
	case status >= 400 && status <= 499:
		return &ClientError{StatusCode: status, Body: body}
	default:
		return nil
	}
}

// IsCacheHit reports whether err is a 304 cache hit.
func IsCacheHit(err error) bool {
	return errors.Is(err, ErrCacheHit)
}

// IsUnauthorized reports whether err is a 401 client error.
func IsUnauthorized(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// genericFailure is shown when no server message is available.
const genericFailure = "request failed"

// UserMessage renders err for display.
// Cache hits are a caching decision and render empty.
func UserMessage(err error) string {
	if err == nil || IsCacheHit(err) {
		return ""
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		if msg := clientErr.Message(); msg != "" {
			return msg
		}
	}
	return genericFailure
}

package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrCacheHit", ErrCacheHit},
		{"ErrMissingPayload", ErrMissingPayload},
		{"ErrMissingFormType", ErrMissingFormType},
		{"ErrEmptyResponse", ErrEmptyResponse},
		{"ErrNotAuthenticated", ErrNotAuthenticated},
		{"ErrExchangeInProgress", ErrExchangeInProgress},
		{"ErrNoRefreshToken", ErrNoRefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestClassifyStatus_NotFoundIsClientError tests 404 carries the server message
func TestClassifyStatus_NotFoundIsClientError(t *testing.T) {
	err := ClassifyStatus(http.StatusNotFound, []byte(`{"error":"not found"}`))

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, 404, clientErr.StatusCode)
	assert.Contains(t, clientErr.Message(), "not found")
	assert.Contains(t, err.Error(), "not found")
}

// TestClassifyStatus_NotModifiedIsCacheHit tests 304 is never a client error
func TestClassifyStatus_NotModifiedIsCacheHit(t *testing.T) {
	err := ClassifyStatus(http.StatusNotModified, nil)

	assert.True(t, IsCacheHit(err))
	var clientErr *ClientError
	assert.False(t, errors.As(err, &clientErr))
}

func TestClassifyStatus_PassThrough(t *testing.T) {
	for _, status := range []int{200, 201, 204, 302, 500, 503} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			assert.NoError(t, ClassifyStatus(status, nil))
		})
	}
}

func TestClassifyStatus_Boundaries(t *testing.T) {
	assert.Error(t, ClassifyStatus(400, nil))
	assert.Error(t, ClassifyStatus(499, nil))
	assert.NoError(t, ClassifyStatus(399, nil))
}

// TestClientError_MessageBestEffort tests bodies that are not the error shape
func TestClientError_MessageBestEffort(t *testing.T) {
	assert.Equal(t, "", (&ClientError{StatusCode: 422, Body: []byte("<html>")}).Message())
	assert.Equal(t, "", (&ClientError{StatusCode: 422}).Message())
	assert.Equal(t, "client error 422", (&ClientError{StatusCode: 422}).Error())
}

func TestIsUnauthorized(t *testing.T) {
	assert.True(t, IsUnauthorized(fmt.Errorf("wrapped: %w", &ClientError{StatusCode: 401})))
	assert.False(t, IsUnauthorized(&ClientError{StatusCode: 403}))
	assert.False(t, IsUnauthorized(errors.New("other")))
}

func TestWrappedErrors_Unwrap(t *testing.T) {
	cause := errors.New("cause")

	assert.ErrorIs(t, &EncodingError{Op: "form", Err: cause}, cause)
	assert.ErrorIs(t, &TransportError{Op: "GET", Err: cause}, cause)
	assert.ErrorIs(t, &DecodeError{Shape: "bike", Err: cause}, cause)
}

// TestUserMessage tests what a user sees for each error kind
func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"cache hit", ErrCacheHit, ""},
		{"server message", &ClientError{StatusCode: 422, Body: []byte(`{"error":"Serial can't be blank"}`)}, "Serial can't be blank"},
		{"no server message", &ClientError{StatusCode: 500}, "request failed"},
		{"decode", &DecodeError{Shape: "bike", Err: errors.New("eof")}, "request failed"},
		{"transport", &TransportError{Op: "GET", Err: errors.New("dns")}, "request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestCorrelationError(t *testing.T) {
	err := &CorrelationError{Path: "/api/v3/users"}

	assert.Contains(t, err.Error(), "/api/v3/users")
}

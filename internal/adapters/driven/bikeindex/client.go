package bikeindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

const (
	// accessTokenParam carries the bearer token on signed requests.
	accessTokenParam = "access_token"

	// correlationHeader tags every request for tracing.
	correlationHeader = "X-Correlation-ID"

	defaultTimeout = 30 * time.Second
)

// TokenSource supplies the bearer token at send time.
type TokenSource interface {
	// BearerToken returns the current valid token, or "".
	BearerToken() string
}

// Client sends endpoint descriptors to the configured host.
// It holds one long-lived HTTP client and never caches responses.
type Client struct {
	cfg        domain.SessionConfig
	httpClient *http.Client
	tokens     TokenSource
	clock      driven.Clock
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock sets the clock used to stamp grants that lack created_at.
func WithClock(clock driven.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for cfg. tokens may be nil for a client that
// only calls public endpoints.
func NewClient(cfg domain.SessionConfig, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		tokens:     tokens,
		clock:      systemClock{},
		userAgent:  "bikeindex-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the session configuration.
func (c *Client) Config() domain.SessionConfig {
	return c.cfg
}

// AuthenticatedGet sends e as a GET and decodes the response.
func AuthenticatedGet[R any](ctx context.Context, c *Client, e Endpoint[R]) (*R, error) {
	body, err := c.send(ctx, http.MethodGet, e.Descriptor, nil)
	if err != nil {
		return nil, err
	}
	return decode[R](body)
}

// AuthenticatedPost sends e with its encoded payload and decodes the
// response. The descriptor's verb is used when it carries a body (PUT,
// PATCH); otherwise POST.
func AuthenticatedPost[R any](ctx context.Context, c *Client, e Endpoint[R]) (*R, error) {
	enc, err := encodeBody(e.Descriptor)
	if err != nil {
		return nil, err
	}

	method := e.Method
	if method != http.MethodPut && method != http.MethodPatch {
		method = http.MethodPost
	}

	body, err := c.send(ctx, method, e.Descriptor, enc)
	if err != nil {
		return nil, err
	}
	return decode[R](body)
}

// signedURL resolves d and attaches the bearer token if d requires auth
// and a valid token exists. A missing token is not an error; the server
// rejects the request instead.
func (c *Client) signedURL(d Descriptor) *url.URL {
	u := d.Resolve(c.cfg.Host)
	if !d.RequiresAuth || c.tokens == nil {
		return u
	}
	token := c.tokens.BearerToken()
	if token == "" {
		return u
	}
	q := u.Query()
	q.Set(accessTokenParam, token)
	u.RawQuery = q.Encode()
	return u
}

// newRequest builds the HTTP request for d. Only the correlation id is
// generated when empty.
func (c *Client) newRequest(ctx context.Context, method string, d Descriptor, enc *encodedBody, correlationID string) (*http.Request, error) {
	var body io.Reader
	if enc != nil {
		body = bytes.NewReader(enc.data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.signedURL(d).String(), body)
	if err != nil {
		return nil, &domain.EncodingError{Op: d.Op, Err: err}
	}
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(correlationHeader, correlationID)
	if enc != nil {
		req.Header.Set("Content-Type", enc.contentType)
	}
	return req, nil
}

// send executes one round trip and classifies the status.
func (c *Client) send(ctx context.Context, method string, d Descriptor, enc *encodedBody) ([]byte, error) {
	req, err := c.newRequest(ctx, method, d, enc, "")
	if err != nil {
		return nil, err
	}

	log := logger.With("client").With().
		Str("op", d.Op).
		Str("method", method).
		Str("path", req.URL.Path).
		Str("correlationId", req.Header.Get(correlationHeader)).
		Logger()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Dur("duration", time.Since(start)).Msg("request failed")
		return nil, &domain.TransportError{Op: method + " " + strings.Join(d.Path, "/"), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: "read " + d.Op, Err: err}
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	if err := domain.ClassifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// decode unmarshals body into R. NoContent skips decoding.
func decode[R any](body []byte) (*R, error) {
	var out R
	if _, ok := any(&out).(*NoContent); ok {
		return &out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.DecodeError{Shape: fmt.Sprintf("%T", out), Err: err}
	}
	return &out, nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

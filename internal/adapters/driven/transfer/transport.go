// Package transfer runs file-backed uploads detached from their submitter.
//
// Each task streams its body from disk, reports progress and response bytes
// to the delegate as they happen, and ends with exactly one completion
// event. Task starts are paced by a token-bucket limiter.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// Ensure Transport implements the interface.
var _ driven.BackgroundTransport = (*Transport)(nil)

const (
	// DefaultRate is the sustained number of task starts per second.
	DefaultRate = 2
	// DefaultBurst is how many tasks may start at once.
	DefaultBurst = 4

	chunkSize      = 32 * 1024
	defaultTimeout = 10 * time.Minute
)

// ErrNoDelegate indicates Submit was called before SetDelegate.
var ErrNoDelegate = errors.New("transport has no delegate")

// Transport is a goroutine-per-task background transport.
type Transport struct {
	client  *http.Client
	limiter *rate.Limiter

	mu       sync.RWMutex
	delegate driven.TransportDelegate

	wg sync.WaitGroup
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithRate sets how fast tasks may start.
func WithRate(r rate.Limit, burst int) Option {
	return func(t *Transport) { t.limiter = rate.NewLimiter(r, burst) }
}

// New creates a transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		client:  &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(DefaultRate, DefaultBurst),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetDelegate installs the receiver of task events.
func (t *Transport) SetDelegate(d driven.TransportDelegate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delegate = d
}

// Submit starts the task in the background.
// The submitter cannot cancel it.
func (t *Transport) Submit(task driven.UploadTask) error {
	t.mu.RLock()
	d := t.delegate
	t.mu.RUnlock()
	if d == nil {
		return ErrNoDelegate
	}
	if task.Request == nil {
		return fmt.Errorf("task %s has no request", task.ID)
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(d, task)
	}()
	return nil
}

// Wait blocks until every submitted task has completed.
func (t *Transport) Wait() {
	t.wg.Wait()
}

func (t *Transport) run(d driven.TransportDelegate, task driven.UploadTask) {
	if err := t.limiter.Wait(context.Background()); err != nil {
		d.DidComplete(task, nil, err)
		return
	}
	// The payload and response are closed before DidComplete so the
	// delegate may remove the file.
	head, err := t.exchange(d, task)
	d.DidComplete(task, head, err)
}

// exchange streams the payload and forwards the response body.
func (t *Transport) exchange(d driven.TransportDelegate, task driven.UploadTask) (*driven.TaskResponse, error) {
	log := logger.With("transfer").With().Str("taskId", task.ID).Logger()
	ctx := context.Background()

	f, err := os.Open(task.BodyPath)
	if err != nil {
		return nil, fmt.Errorf("opening payload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat payload: %w", err)
	}

	req := task.Request.Clone(ctx)
	req.Body = &progressReader{r: f, total: info.Size(), report: func(sent, total int64) {
		d.DidSendBodyData(task, sent, total)
	}}
	req.ContentLength = info.Size()
	req.GetBody = nil

	log.Debug().Int64("bytes", info.Size()).Str("path", req.URL.Path).Msg("upload started")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	head := &driven.TaskResponse{StatusCode: resp.StatusCode, Header: resp.Header.Clone()}
	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			d.DidReceiveData(task, chunk)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return head, readErr
		}
	}

	log.Debug().Int("status", resp.StatusCode).Msg("upload finished")
	return head, nil
}

// progressReader reports cumulative bytes read.
type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.report(p.sent, p.total)
	}
	return n, err
}

func (p *progressReader) Close() error {
	return nil
}

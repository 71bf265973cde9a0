package bikeindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/bikeindex-cli/internal/core/domain"
	"github.com/custodia-labs/bikeindex-cli/internal/core/ports/driven"
	"github.com/custodia-labs/bikeindex-cli/internal/logger"
)

// Ensure BackgroundUploader implements the interface.
var _ driven.TransportDelegate = (*BackgroundUploader)(nil)

// UploadResult is the terminal outcome of a background upload.
type UploadResult struct {
	TaskID string
	BikeID int64
	Image  *domain.Image
	Err    error
}

// UploadProgress reports bytes written for a task.
type UploadProgress struct {
	TaskID string
	Sent   int64
	Total  int64
}

// BackgroundUploader hands file-backed uploads to a background transport and
// applies completed results to the local bike store.
//
// Response bytes are buffered per task. Completion is attributed through the
// pending-upload record keyed by task id; the request path is a cross-check
// and the fallback when no record exists.
type BackgroundUploader struct {
	client    *Client
	transport driven.BackgroundTransport
	uploads   driven.UploadStore
	bikes     driven.BikeStore
	tempDir   string
	progress  func(UploadProgress)

	mu          sync.Mutex
	buffers     map[string]*bytes.Buffer
	completions map[string]func(UploadResult)

	storeMu sync.Mutex // serialises read-modify-write of bike records
}

// UploaderOption configures a BackgroundUploader.
type UploaderOption func(*BackgroundUploader)

// WithTempDir sets where encoded payloads are written. Defaults to os.TempDir.
func WithTempDir(dir string) UploaderOption {
	return func(u *BackgroundUploader) { u.tempDir = dir }
}

// WithProgress installs a progress callback. It is called from transport
// goroutines.
func WithProgress(fn func(UploadProgress)) UploaderOption {
	return func(u *BackgroundUploader) { u.progress = fn }
}

// NewBackgroundUploader creates an uploader and installs it as the
// transport's delegate.
func NewBackgroundUploader(
	client *Client,
	transport driven.BackgroundTransport,
	uploads driven.UploadStore,
	bikes driven.BikeStore,
	opts ...UploaderOption,
) *BackgroundUploader {
	u := &BackgroundUploader{
		client:      client,
		transport:   transport,
		uploads:     uploads,
		bikes:       bikes,
		tempDir:     os.TempDir(),
		buffers:     make(map[string]*bytes.Buffer),
		completions: make(map[string]func(UploadResult)),
	}
	for _, opt := range opts {
		opt(u)
	}
	transport.SetDelegate(u)
	return u
}

// BackgroundPost encodes e's payload to a temporary file and submits it.
// It returns the task id without waiting for the upload. completion, if
// non-nil, is called once with the terminal result, from a transport goroutine.
func (u *BackgroundUploader) BackgroundPost(
	ctx context.Context,
	e Endpoint[ImageResponse],
	completion func(UploadResult),
) (string, error) {
	enc, err := encodeBody(e.Descriptor)
	if err != nil {
		return "", err
	}

	taskID := uuid.New().String()
	req, err := u.client.newRequest(context.Background(), http.MethodPost, e.Descriptor, nil, taskID)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", enc.contentType)

	path, err := u.writePayload(enc.data)
	if err != nil {
		return "", err
	}

	pending := domain.PendingUpload{
		TaskID:      taskID,
		BikeID:      e.BikeID,
		PayloadPath: path,
		RequestPath: req.URL.Path,
		ContentType: enc.contentType,
		StartedAt:   u.client.clock.Now(),
	}
	if err := u.uploads.Save(ctx, pending); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("saving pending upload: %w", err)
	}

	if err := u.submit(driven.UploadTask{ID: taskID, Request: req, BodyPath: path}, completion); err != nil {
		u.discard(ctx, pending)
		return "", err
	}

	logger.With("uploader").Debug().
		Str("taskId", taskID).
		Int64("bikeId", e.BikeID).
		Int("bytes", len(enc.data)).
		Msg("upload submitted")
	return taskID, nil
}

// Resume resubmits uploads that were pending when the process last exited.
// Records whose payload file is gone are discarded. Returns the number resubmitted.
func (u *BackgroundUploader) Resume(ctx context.Context) (int, error) {
	pending, err := u.uploads.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing pending uploads: %w", err)
	}

	log := logger.With("uploader")
	resumed := 0
	for _, p := range pending {
		if _, err := os.Stat(p.PayloadPath); err != nil {
			log.Warn().Str("taskId", p.TaskID).Err(err).Msg("discarding pending upload without payload")
			u.discard(ctx, p)
			continue
		}

		d := Descriptor{
			Op:           "resume upload",
			Method:       http.MethodPost,
			RequiresAuth: true,
			BikeID:       p.BikeID,
		}
		req, err := u.client.newRequest(context.Background(), http.MethodPost, d, nil, p.TaskID)
		if err != nil {
			return resumed, err
		}
		// The stored path already includes the API prefix.
		req.URL.Path = p.RequestPath
		req.Header.Set("Content-Type", p.ContentType)

		if err := u.submit(driven.UploadTask{ID: p.TaskID, Request: req, BodyPath: p.PayloadPath}, nil); err != nil {
			return resumed, err
		}
		resumed++
	}
	return resumed, nil
}

func (u *BackgroundUploader) submit(task driven.UploadTask, completion func(UploadResult)) error {
	u.mu.Lock()
	u.buffers[task.ID] = &bytes.Buffer{}
	if completion != nil {
		u.completions[task.ID] = completion
	}
	u.mu.Unlock()

	if err := u.transport.Submit(task); err != nil {
		u.mu.Lock()
		delete(u.buffers, task.ID)
		delete(u.completions, task.ID)
		u.mu.Unlock()
		return &domain.TransportError{Op: "submit upload", Err: err}
	}
	return nil
}

func (u *BackgroundUploader) writePayload(data []byte) (string, error) {
	f, err := os.CreateTemp(u.tempDir, "bikeindex-upload-*.body")
	if err != nil {
		return "", fmt.Errorf("creating payload file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing payload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing payload file: %w", err)
	}
	return f.Name(), nil
}

// ==================== TransportDelegate ====================

// DidSendBodyData implements driven.TransportDelegate.
func (u *BackgroundUploader) DidSendBodyData(task driven.UploadTask, sent, total int64) {
	if u.progress != nil {
		u.progress(UploadProgress{TaskID: task.ID, Sent: sent, Total: total})
	}
}

// DidReceiveData implements driven.TransportDelegate.
func (u *BackgroundUploader) DidReceiveData(task driven.UploadTask, chunk []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	buf, ok := u.buffers[task.ID]
	if !ok {
		// Completions from a previous process arrive without a registered buffer.
		buf = &bytes.Buffer{}
		u.buffers[task.ID] = buf
	}
	buf.Write(chunk)
}

// DidComplete implements driven.TransportDelegate.
func (u *BackgroundUploader) DidComplete(task driven.UploadTask, resp *driven.TaskResponse, transportErr error) {
	u.mu.Lock()
	buf := u.buffers[task.ID]
	completion := u.completions[task.ID]
	delete(u.buffers, task.ID)
	delete(u.completions, task.ID)
	u.mu.Unlock()

	var body []byte
	if buf != nil {
		body = buf.Bytes()
	}

	result := u.settle(task, resp, body, transportErr)

	log := logger.With("uploader")
	var corrErr *domain.CorrelationError
	switch {
	case errors.As(result.Err, &corrErr):
		log.Error().Err(result.Err).Str("taskId", task.ID).Msg("dropping upload result")
	case result.Err != nil:
		log.Warn().Err(result.Err).Str("taskId", task.ID).Msg("upload failed")
	default:
		log.Info().Str("taskId", task.ID).Int64("bikeId", result.BikeID).Msg("upload applied")
	}

	if completion != nil {
		completion(result)
	}
}

// settle validates, correlates and applies one completion. The pending
// record and payload file are removed whatever the outcome.
func (u *BackgroundUploader) settle(task driven.UploadTask, resp *driven.TaskResponse, body []byte, transportErr error) UploadResult {
	ctx := context.Background()
	result := UploadResult{TaskID: task.ID}

	pending, err := u.uploads.Get(ctx, task.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.With("uploader").Warn().Err(err).Str("taskId", task.ID).Msg("reading pending upload")
	}
	defer u.cleanup(ctx, task, pending)

	if transportErr != nil {
		result.Err = &domain.TransportError{Op: "upload", Err: transportErr}
		return result
	}
	if len(body) == 0 || resp == nil {
		result.Err = domain.ErrEmptyResponse
		return result
	}
	if err := domain.ClassifyStatus(resp.StatusCode, body); err != nil {
		result.Err = err
		return result
	}

	bikeID, err := correlate(task, pending)
	if err != nil {
		result.Err = err
		return result
	}
	result.BikeID = bikeID

	var decoded ImageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		result.Err = &domain.DecodeError{Shape: "ImageResponse", Err: err}
		return result
	}

	if err := u.applyImage(ctx, bikeID, decoded.Image); err != nil {
		result.Err = err
		return result
	}
	img := decoded.Image
	result.Image = &img
	return result
}

// correlate resolves the bike a completion belongs to.
func correlate(task driven.UploadTask, pending *domain.PendingUpload) (int64, error) {
	path := ""
	if task.Request != nil && task.Request.URL != nil {
		path = task.Request.URL.Path
	}
	fromPath, pathErr := domain.BikeIDFromPath(path)

	if pending != nil && pending.BikeID > 0 {
		if pathErr == nil && fromPath != pending.BikeID {
			logger.With("uploader").Warn().
				Int64("recorded", pending.BikeID).
				Int64("fromPath", fromPath).
				Msg("upload path disagrees with pending record")
		}
		return pending.BikeID, nil
	}
	if pathErr != nil {
		return 0, pathErr
	}
	return fromPath, nil
}

func (u *BackgroundUploader) applyImage(ctx context.Context, bikeID int64, img domain.Image) error {
	u.storeMu.Lock()
	defer u.storeMu.Unlock()

	bike, err := u.bikes.Get(ctx, bikeID)
	if errors.Is(err, domain.ErrNotFound) {
		bike = &domain.Bike{ID: bikeID}
	} else if err != nil {
		return fmt.Errorf("loading bike %d: %w", bikeID, err)
	}

	bike.AddImage(img)
	if err := u.bikes.Save(ctx, *bike); err != nil {
		return fmt.Errorf("saving bike %d: %w", bikeID, err)
	}
	return nil
}

func (u *BackgroundUploader) cleanup(ctx context.Context, task driven.UploadTask, pending *domain.PendingUpload) {
	if pending != nil {
		u.discard(ctx, *pending)
		return
	}
	if task.BodyPath != "" {
		os.Remove(task.BodyPath)
	}
}

func (u *BackgroundUploader) discard(ctx context.Context, p domain.PendingUpload) {
	if err := u.uploads.Delete(ctx, p.TaskID); err != nil {
		logger.With("uploader").Warn().Err(err).Str("taskId", p.TaskID).Msg("deleting pending upload")
	}
	if p.PayloadPath != "" {
		if err := os.Remove(p.PayloadPath); err != nil && !os.IsNotExist(err) {
			logger.With("uploader").Warn().Err(err).Str("path", p.PayloadPath).Msg("removing payload file")
		}
	}
}

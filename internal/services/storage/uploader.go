package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"distill/internal/logging"
	"distill/internal/services/providers"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	documentsPath      = "documents"
)

// Uploader publishes rendered documents to remote storage backends. The
// fallback router supplies candidate ordering, retry, and failure
// aggregation; this client performs one HTTP upload per attempt.
type Uploader struct {
	router     *providers.Router
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the uploader.
type Option func(*Uploader)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) {
		if client != nil {
			u.httpClient = client
		}
	}
}

// NewUploader constructs an uploader over the configured storage backends.
func NewUploader(router *providers.Router, logger *slog.Logger, opts ...Option) *Uploader {
	uploader := &Uploader{
		router:     router,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logging.NewComponentLogger(logger, "storage"),
	}
	for _, opt := range opts {
		opt(uploader)
	}
	return uploader
}

// Upload publishes the named document body to the first backend that accepts
// it. The returned location is the backend-reported document URL when the
// response provides one.
func (u *Uploader) Upload(ctx context.Context, filename string, body []byte) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", errors.New("storage upload: filename required")
	}
	if len(body) == 0 {
		return "", errors.New("storage upload: empty document")
	}

	var location string
	err := u.router.Do(ctx, "storage-upload", "", func(ctx context.Context, ep providers.Endpoint) error {
		loc, err := u.uploadOnce(ctx, ep, filename, body)
		if err != nil {
			return err
		}
		location = loc
		return nil
	})
	if err != nil {
		return "", err
	}
	u.logger.Info("document published",
		logging.String("filename", filepath.Base(filename)),
		logging.String("location", location),
	)
	return location, nil
}

func (u *Uploader) uploadOnce(ctx context.Context, ep providers.Endpoint, filename string, body []byte) (string, error) {
	endpoint, err := url.JoinPath(ep.BaseURL, documentsPath)
	if err != nil {
		return "", fmt.Errorf("storage upload: build url: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("storage upload: build form: %w", err)
	}
	if _, err := part.Write(body); err != nil {
		return "", fmt.Errorf("storage upload: write form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("storage upload: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("storage upload: new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if ep.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}

	httpClient := u.httpClient
	if ep.Timeout > 0 && ep.Timeout != httpClient.Timeout {
		scoped := *httpClient
		scoped.Timeout = ep.Timeout
		httpClient = &scoped
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage upload: http error (timeout=%s): %w", httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("storage upload: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("storage upload: http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if loc := strings.TrimSpace(resp.Header.Get("Location")); loc != "" {
		return loc, nil
	}
	return endpoint + "/" + filepath.Base(filename), nil
}

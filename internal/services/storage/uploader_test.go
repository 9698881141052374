package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"distill/internal/logging"
	"distill/internal/services"
	"distill/internal/services/providers"
	"distill/internal/services/retry"
)

func testUploader(t *testing.T, endpoints []providers.Endpoint) *Uploader {
	t.Helper()
	exec := retry.New(logging.NewNop(),
		retry.WithMaxAttempts(1),
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
	router := providers.NewRouter(endpoints, exec, logging.NewNop())
	return NewUploader(router, logging.NewNop())
}

func TestUploadSendsMultipart(t *testing.T) {
	var gotAuth, gotFilename string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		gotFilename = header.Filename
		buf := make([]byte, header.Size)
		_, _ = file.Read(buf)
		gotBody = buf
		w.Header().Set("Location", "https://store.example/docs/abc123")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	uploader := testUploader(t, []providers.Endpoint{
		{Name: "primary", BaseURL: server.URL, APIKey: "store-key"},
	})
	location, err := uploader.Upload(context.Background(), "/tmp/work/result.md", []byte("# digest"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if location != "https://store.example/docs/abc123" {
		t.Fatalf("unexpected location: %q", location)
	}
	if gotAuth != "Bearer store-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotFilename != "result.md" {
		t.Fatalf("unexpected filename: %q", gotFilename)
	}
	if string(gotBody) != "# digest" {
		t.Fatalf("unexpected body: %q", gotBody)
	}
}

func TestUploadFallsBack(t *testing.T) {
	var primaryHits atomic.Int32
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		primaryHits.Add(1)
		http.Error(w, "disk full", http.StatusInsufficientStorage)
	}))
	defer failing.Close()
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer healthy.Close()

	uploader := testUploader(t, []providers.Endpoint{
		{Name: "primary", BaseURL: failing.URL},
		{Name: "secondary", BaseURL: healthy.URL},
	})
	location, err := uploader.Upload(context.Background(), "result.md", []byte("body"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if primaryHits.Load() != 1 {
		t.Fatalf("expected one attempt against primary, got %d", primaryHits.Load())
	}
	if location == "" {
		t.Fatal("expected synthesized location from secondary")
	}
}

func TestUploadHonorsEndpointTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	uploader := testUploader(t, []providers.Endpoint{
		{Name: "slow", BaseURL: server.URL, Timeout: 50 * time.Millisecond},
	})
	start := time.Now()
	_, err := uploader.Upload(context.Background(), "result.md", []byte("body"))
	elapsed := time.Since(start)
	if err == nil {
		t.Fatal("expected timeout error from slow backend")
	}
	if elapsed >= 250*time.Millisecond {
		t.Fatalf("upload waited %s, endpoint timeout not applied", elapsed)
	}
}

func TestUploadAllBackendsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	uploader := testUploader(t, []providers.Endpoint{
		{Name: "only", BaseURL: server.URL},
	})
	_, err := uploader.Upload(context.Background(), "result.md", []byte("body"))
	if err == nil {
		t.Fatal("expected failure")
	}
	if !errors.Is(err, services.ErrAllProviders) {
		t.Fatalf("expected all_providers_failed, got %v", err)
	}
}

func TestUploadValidatesInput(t *testing.T) {
	uploader := testUploader(t, []providers.Endpoint{{Name: "only", BaseURL: "http://unused"}})
	if _, err := uploader.Upload(context.Background(), "", []byte("body")); err == nil {
		t.Fatal("expected error for empty filename")
	}
	if _, err := uploader.Upload(context.Background(), "result.md", nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

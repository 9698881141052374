package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"distill/internal/api"
)

// apiClient talks to the daemon HTTP API.
type apiClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *apiClient) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.get(ctx, "/health", &out)
	return out, err
}

func (c *apiClient) Config(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.get(ctx, "/api/config", &out)
	return out, err
}

func (c *apiClient) Task(ctx context.Context, id string) (api.TaskView, error) {
	var out api.TaskView
	err := c.get(ctx, "/api/tasks/"+url.PathEscape(id), &out)
	return out, err
}

func (c *apiClient) Tasks(ctx context.Context, limit int) ([]api.TaskView, error) {
	path := "/api/tasks"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out api.TaskListResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// SubmitLocal queues a path that the daemon can read directly.
func (c *apiClient) SubmitLocal(ctx context.Context, path string, fields map[string]string) (api.TaskView, error) {
	values := url.Values{"path": {path}}
	for key, value := range fields {
		if value != "" {
			values.Set(key, value)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/process/local",
		strings.NewReader(values.Encode()))
	if err != nil {
		return api.TaskView{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out api.SubmitResponse
	if err := c.do(req, &out); err != nil {
		return api.TaskView{}, err
	}
	return out.Task, nil
}

// SubmitUpload streams a local file to the daemon as a multipart form.
func (c *apiClient) SubmitUpload(ctx context.Context, path string, fields map[string]string) (api.TaskView, error) {
	file, err := os.Open(path)
	if err != nil {
		return api.TaskView{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return api.TaskView{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return api.TaskView{}, fmt.Errorf("read %s: %w", path, err)
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return api.TaskView{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return api.TaskView{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/process", &body)
	if err != nil {
		return api.TaskView{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out api.SubmitResponse
	if err := c.do(req, &out); err != nil {
		return api.TaskView{}, err
	}
	return out.Task, nil
}

func (c *apiClient) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, target)
}

func (c *apiClient) do(req *http.Request, target any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload api.ErrorResponse
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		if payload.Kind != "" {
			return fmt.Errorf("%s (%s)", payload.Error, payload.Kind)
		}
		return fmt.Errorf("%s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

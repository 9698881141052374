package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"distill/internal/config"
)

const userAgent = "Distill/0.1.0"

// Service defines the notification surface exposed to the workflow runner.
type Service interface {
	NotifyTaskQueued(ctx context.Context, taskID, filename string) error
	NotifyTaskCompleted(ctx context.Context, taskID, filename, outputPath string) error
	NotifyTaskFailed(ctx context.Context, taskID, filename, errorKind, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		onCompletion: cfg.Notifications.Completion,
		onError:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	onCompletion bool
	onError      bool
}

func (n *ntfyService) NotifyTaskQueued(ctx context.Context, taskID, filename string) error {
	if !n.onCompletion {
		return nil
	}
	data := payload{
		title:   "Distill - Task Queued",
		message: fmt.Sprintf("Queued %s (task %s)", strings.TrimSpace(filename), taskID),
		tags:    []string{"distill", "task", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskCompleted(ctx context.Context, taskID, filename, outputPath string) error {
	if !n.onCompletion {
		return nil
	}
	message := fmt.Sprintf("Distilled %s (task %s)", strings.TrimSpace(filename), taskID)
	if outputPath = strings.TrimSpace(outputPath); outputPath != "" {
		message = fmt.Sprintf("%s\nOutput: %s", message, outputPath)
	}
	data := payload{
		title:    "Distill - Complete",
		message:  message,
		tags:     []string{"distill", "task", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskFailed(ctx context.Context, taskID, filename, errorKind, message string) error {
	if !n.onError {
		return nil
	}
	var builder strings.Builder
	fmt.Fprintf(&builder, "Failed %s (task %s)", strings.TrimSpace(filename), taskID)
	if errorKind = strings.TrimSpace(errorKind); errorKind != "" {
		builder.WriteString("\nKind: ")
		builder.WriteString(errorKind)
	}
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteString("\n")
		builder.WriteString(message)
	}
	data := payload{
		title:    "Distill - Task Failed",
		message:  builder.String(),
		tags:     []string{"distill", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Distill - Test",
		message:  "Notification system test",
		tags:     []string{"distill", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTaskQueued(context.Context, string, string) error              { return nil }
func (noopService) NotifyTaskCompleted(context.Context, string, string, string) error   { return nil }
func (noopService) NotifyTaskFailed(context.Context, string, string, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }

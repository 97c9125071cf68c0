package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"filebutler/internal/config"
)

const userAgent = "Filebutler/0.1.0"

// Service defines the notification surface exposed to the watcher.
type Service interface {
	NotifyWatchStarted(ctx context.Context, folders int) error
	NotifyWatchStopped(ctx context.Context) error
	NotifyBatchOrganized(ctx context.Context, folder string, moved, folders int) error
	NotifyIndexLimitReached(ctx context.Context, limit int) error
	NotifyError(ctx context.Context, err error, context string) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyWatchStarted(ctx context.Context, folders int) error {
	data := payload{
		title:   "Filebutler - Watching",
		message: fmt.Sprintf("Auto-organize started for %d folder(s)", folders),
		tags:    []string{"filebutler", "watch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWatchStopped(ctx context.Context) error {
	data := payload{
		title:   "Filebutler - Stopped",
		message: "Auto-organize stopped",
		tags:    []string{"filebutler", "watch", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchOrganized(ctx context.Context, folder string, moved, folders int) error {
	folder = strings.TrimSpace(folder)
	data := payload{
		title:   "Filebutler - Organized",
		message: fmt.Sprintf("Organized %d file(s) into %d folder(s) in %s", moved, folders, folder),
		tags:    []string{"filebutler", "organize", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyIndexLimitReached(ctx context.Context, limit int) error {
	data := payload{
		title:    "Filebutler - Index Full",
		message:  fmt.Sprintf("File index reached its limit of %d files; new files are not being indexed", limit),
		tags:     []string{"filebutler", "index", "limit"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Filebutler - Error",
		message:  builder.String(),
		tags:     []string{"filebutler", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Filebutler - Test",
		message:  "Notification system test",
		tags:     []string{"filebutler", "test"},
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

func (noopService) NotifyWatchStarted(context.Context, int) error                { return nil }
func (noopService) NotifyWatchStopped(context.Context) error                     { return nil }
func (noopService) NotifyBatchOrganized(context.Context, string, int, int) error { return nil }
func (noopService) NotifyIndexLimitReached(context.Context, int) error           { return nil }
func (noopService) NotifyError(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }

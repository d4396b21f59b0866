package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"airdate/internal/config"
)

const userAgent = "Airdate-Go/0.1.0"

// Service defines the notification surface exposed to scheduler components.
type Service interface {
	NotifyScheduled(ctx context.Context, title string, runAt time.Time) error
	NotifyUploaded(ctx context.Context, title, videoID string) error
	NotifyFailed(ctx context.Context, title, reason string) error
	NotifyCredentialProblem(ctx context.Context, detail string) error
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
		uploads:  cfg.Notifications.Uploads,
		errors:   cfg.Notifications.Errors,
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
	uploads  bool
	errors   bool
}

func (n *ntfyService) NotifyScheduled(ctx context.Context, title string, runAt time.Time) error {
	if !n.uploads {
		return nil
	}
	data := payload{
		title:   "Airdate - Scheduled",
		message: fmt.Sprintf("Scheduled %s for %s", strings.TrimSpace(title), runAt.Local().Format(time.RFC1123)),
		tags:    []string{"airdate", "schedule"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploaded(ctx context.Context, title, videoID string) error {
	if !n.uploads {
		return nil
	}
	message := fmt.Sprintf("Published: %s", strings.TrimSpace(title))
	if videoID = strings.TrimSpace(videoID); videoID != "" {
		message = fmt.Sprintf("%s\nhttps://youtu.be/%s", message, videoID)
	}
	data := payload{
		title:    "Airdate - Published",
		message:  message,
		tags:     []string{"airdate", "upload", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFailed(ctx context.Context, title, reason string) error {
	if !n.errors {
		return nil
	}
	data := payload{
		title:    "Airdate - Upload Failed",
		message:  fmt.Sprintf("Failed: %s\n%s", strings.TrimSpace(title), strings.TrimSpace(reason)),
		tags:     []string{"airdate", "upload", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCredentialProblem(ctx context.Context, detail string) error {
	if !n.errors {
		return nil
	}
	data := payload{
		title:    "Airdate - Credentials",
		message:  fmt.Sprintf("Upload credentials need attention: %s", strings.TrimSpace(detail)),
		tags:     []string{"airdate", "credentials", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Airdate - Test",
		message:  "Notification system test",
		tags:     []string{"airdate", "test"},
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

func (noopService) NotifyScheduled(context.Context, string, time.Time) error { return nil }
func (noopService) NotifyUploaded(context.Context, string, string) error     { return nil }
func (noopService) NotifyFailed(context.Context, string, string) error       { return nil }
func (noopService) NotifyCredentialProblem(context.Context, string) error    { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }

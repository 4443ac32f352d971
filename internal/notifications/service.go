package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwidera/plenum/internal/config"
)

const userAgent = "Plenum-Go/0.1.0"

// Service defines the notification surface exposed to the workflow.
type Service interface {
	NotifyRunStarted(ctx context.Context, count int) error
	NotifyRunCompleted(ctx context.Context, completed, failed int, duration time.Duration) error
	NotifySessionCompleted(ctx context.Context, title, artifactPath string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
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

// NewNtfyService constructs an ntfy-backed service directly (for testing).
func NewNtfyService(endpoint string, client *http.Client) Service {
	return &ntfyService{endpoint: endpoint, client: client}
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

func (n *ntfyService) NotifyRunStarted(ctx context.Context, count int) error {
	data := payload{
		title:   "Plenum - Run Started",
		message: fmt.Sprintf("Started processing %d sessions", count),
		tags:    []string{"plenum", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, completed, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Plenum - Run Complete"
		message = fmt.Sprintf("Run complete: %d sessions transcribed in %s", completed, durationText)
	} else {
		title = "Plenum - Run Complete (with errors)"
		message = fmt.Sprintf("Run complete: %d transcribed, %d failed in %s", completed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"plenum", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionCompleted(ctx context.Context, title, artifactPath string) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Transcript ready: %s", title)
	if artifactPath = strings.TrimSpace(artifactPath); artifactPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, artifactPath)
	}
	data := payload{
		title:   "Plenum - Transcript Ready",
		message: message,
		tags:    []string{"plenum", "session", "completed"},
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
		title:    "Plenum - Error",
		message:  builder.String(),
		tags:     []string{"plenum", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Plenum - Test",
		message:  "Notification system test",
		tags:     []string{"plenum", "test"},
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

func (noopService) NotifyRunStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifySessionCompleted(context.Context, string, string) error      { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }

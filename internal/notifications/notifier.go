package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"curator/internal/config"
)

const userAgent = "Curator/0.1.0"

// Notifier is the push surface exposed to the daemon and CLI.
type Notifier interface {
	NotifyBatchCompleted(ctx context.Context, batchID string, completed int) error
	NotifyBatchFailed(ctx context.Context, batchID string, completed, failed int) error
	NotifyReviewBacklog(ctx context.Context, queued int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewNotifier builds a notifier backed by ntfy when a topic is
// configured, and a noop otherwise.
func NewNotifier(cfg *config.Config) Notifier {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopNotifier{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyNotifier{
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

type ntfyNotifier struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyNotifier) NotifyBatchCompleted(ctx context.Context, batchID string, completed int) error {
	data := payload{
		title:   "Curator - Batch Complete",
		message: fmt.Sprintf("✅ Batch %s complete: %d operations applied", shortID(batchID), completed),
		tags:    []string{"curator", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) NotifyBatchFailed(ctx context.Context, batchID string, completed, failed int) error {
	data := payload{
		title:    "Curator - Batch Failed",
		message:  fmt.Sprintf("❌ Batch %s failed: %d applied, %d failed", shortID(batchID), completed, failed),
		tags:     []string{"curator", "batch", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) NotifyReviewBacklog(ctx context.Context, queued int) error {
	noun := "suggestions"
	if queued == 1 {
		noun = "suggestion"
	}
	data := payload{
		title:   "Curator - Review Needed",
		message: fmt.Sprintf("📋 %d %s waiting for manual review", queued, noun),
		tags:    []string{"curator", "review", "pending"},
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "Curator - Error",
		message:  builder.String(),
		tags:     []string{"curator", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Curator - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"curator", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyNotifier) send(ctx context.Context, data payload) error {
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

// shortID keeps pushes readable; UUIDs carry no value past their first
// group on a phone screen.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type noopNotifier struct{}

func (noopNotifier) NotifyBatchCompleted(context.Context, string, int) error   { return nil }
func (noopNotifier) NotifyBatchFailed(context.Context, string, int, int) error { return nil }
func (noopNotifier) NotifyReviewBacklog(context.Context, int) error            { return nil }
func (noopNotifier) NotifyError(context.Context, error, string) error          { return nil }
func (noopNotifier) TestNotification(context.Context) error                    { return nil }

package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"versereel/internal/config"
)

const userAgent = "versereel/0.1"

// Event identifies a notification kind.
type Event string

const (
	EventBatchCompleted  Event = "batch_completed"
	EventUploadCompleted Event = "upload_completed"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event fields. Missing keys render as empty values.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy publisher, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	n := cfg.Notifications
	topic := strings.TrimSpace(n.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(n.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventBatchCompleted:  n.OnBatch,
			EventUploadCompleted: n.OnUpload,
			EventError:           n.OnError,
			EventTest:            true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchCompleted:
		successful, _ := payload["successful"].(int)
		failed, _ := payload["failed"].(int)
		body := fmt.Sprintf("Generated %d video(s)", successful)
		if failed > 0 {
			body += fmt.Sprintf(", %d failed", failed)
		}
		if exhausted, _ := payload["exhausted"].(bool); exhausted {
			body += "\nSelection exhausted: no unused passages remain"
		}
		msg := message{
			title: "Versereel - Batch Complete",
			body:  body,
			tags:  []string{"versereel", "batch", "completed"},
		}
		if failed > 0 && successful == 0 {
			msg.priority = "high"
		}
		return msg, true
	case EventUploadCompleted:
		body := fmt.Sprintf("Uploaded: %s", text(payload, "reference"))
		if url := text(payload, "url"); url != "" {
			body += "\n" + url
		}
		return message{
			title: "Versereel - Uploaded",
			body:  body,
			tags:  []string{"versereel", "upload", "completed"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := text(payload, "context"); label != "" {
			b.WriteString(" in ")
			b.WriteString(label)
		}
		if detail := text(payload, "error"); detail != "" {
			b.WriteString(": ")
			b.WriteString(detail)
		}
		return message{
			title:    "Versereel - Error",
			body:     b.String(),
			tags:     []string{"versereel", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Versereel - Test",
			body:     "Notification system test",
			tags:     []string{"versereel", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func text(payload Payload, key string) string {
	switch v := payload[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

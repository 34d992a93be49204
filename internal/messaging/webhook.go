package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Webhook 通过 HTTP POST 把消息回传给宿主机器人。
type Webhook struct {
	url        string
	httpClient *http.Client
}

// NewWebhook 返回 Webhook 投递通道。
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Send 投递一条消息，非 2xx 响应视为失败。
func (w *Webhook) Send(ctx context.Context, target, message string) error {
	body, err := json.Marshal(envelope{Target: target, Message: message})
	if err != nil {
		return fmt.Errorf("encode message envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

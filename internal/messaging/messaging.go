// Package messaging 负责把提醒消息回传给宿主机器人运行时。
// 支持两种通道：HTTP Webhook 回调，或到宿主的长连 WebSocket。
package messaging

import (
	"context"
	"fmt"

	"kcbxt/internal/config"
)

// Sender 把一条文本消息投递到宿主侧的会话目标。
// 实际送达由宿主运行时负责，这里只保证把消息交到宿主手上。
type Sender interface {
	Send(ctx context.Context, target, message string) error
}

// envelope 是回传宿主的消息载荷，两种通道共用。
type envelope struct {
	Target  string `json:"target"`
	Message string `json:"message"`
}

// NewSender 按配置构造投递通道。
func NewSender(cfg config.MessagingConfig) (Sender, error) {
	switch cfg.Mode {
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("messaging webhook url is required")
		}
		return NewWebhook(cfg.WebhookURL), nil
	case "websocket":
		if cfg.WebsocketURL == "" {
			return nil, fmt.Errorf("messaging websocket url is required")
		}
		return NewWebsocket(cfg.WebsocketURL), nil
	default:
		return nil, fmt.Errorf("unknown messaging mode %q", cfg.Mode)
	}
}

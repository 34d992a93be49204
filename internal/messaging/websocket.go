package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Websocket 通过到宿主机器人的长连 WebSocket 回传消息。
// 连接懒建立；写失败时丢弃连接，下一次投递重新拨号。
type Websocket struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebsocket 返回 WebSocket 投递通道。
func NewWebsocket(url string) *Websocket {
	return &Websocket{url: url}
}

// Send 投递一条消息。单条消息失败后会换新连接重试一次。
func (w *Websocket) Send(ctx context.Context, target, message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	env := envelope{Target: target, Message: message}
	if w.conn != nil {
		if err := w.conn.WriteJSON(env); err == nil {
			return nil
		}
		w.conn.Close()
		w.conn = nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("dial host websocket: %w", err)
	}
	if err := conn.WriteJSON(env); err != nil {
		conn.Close()
		return fmt.Errorf("write host websocket: %w", err)
	}
	w.conn = conn
	return nil
}

// Close 关闭当前连接（若有）。
func (w *Websocket) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}

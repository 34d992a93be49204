package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"kcbxt/internal/messaging"
	"kcbxt/internal/tasks"
)

// NotifyTaskHandler 负责消费上课提醒投递任务。
type NotifyTaskHandler struct {
	sender messaging.Sender
	logger *slog.Logger
}

// NewNotifyTaskHandler 创建任务处理器。
func NewNotifyTaskHandler(sender messaging.Sender, logger *slog.Logger) *NotifyTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyTaskHandler{sender: sender, logger: logger}
}

// ProcessTask 实现 asynq.Handler。投递失败返回错误，交给 asynq 按策略重试。
func (h *NotifyTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ReminderNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// 载荷损坏重试也不会成功，标记跳过。
		return fmt.Errorf("decode notify payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("target", payload.Target),
	)

	if err := h.sender.Send(ctx, payload.Target, payload.Message); err != nil {
		log.Error("deliver reminder to host failed", slog.String("error", err.Error()))
		return err
	}

	log.Info("reminder delivered to host")
	return nil
}

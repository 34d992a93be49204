package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"kcbxt/internal/metrics"
	"kcbxt/internal/tasks"
)

// QueueNotifier 把提醒消息写入 asynq 队列，由消费侧完成到宿主的投递。
// 提醒扫描因此不会被单个目标的网络抖动拖住。
type QueueNotifier struct {
	client *asynq.Client
}

// NewQueueNotifier 创建入队器。
func NewQueueNotifier(client *asynq.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

// Notify 实现 reminder.Notifier。
func (q *QueueNotifier) Notify(ctx context.Context, target, message string) error {
	task, err := tasks.NewReminderNotifyTask(target, message, uuid.NewString())
	if err != nil {
		return fmt.Errorf("build notify task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		metrics.ReminderEnqueued("error")
		return fmt.Errorf("enqueue notify task: %w", err)
	}
	metrics.ReminderEnqueued("ok")
	return nil
}

package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeReminderNotify = "reminder:notify"
)

// ReminderNotifyPayload 描述一条待投递的上课提醒。
type ReminderNotifyPayload struct {
	Target        string `json:"target"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
}

// NewReminderNotifyTask 构造一个提醒投递任务。
func NewReminderNotifyTask(target, message, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReminderNotifyPayload{
		Target:        target,
		Message:       message,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReminderNotify, payload), nil
}

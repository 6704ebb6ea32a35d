package jobs

import (
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueScan finds overdue loans and queues reminders.
	TaskOverdueScan = "loans:overdue-scan"
	// TaskNotificationDeliver delivers one stored notification.
	TaskNotificationDeliver = "notification:deliver"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// OverdueScanPayload configures one scan run. A zero Ref means the time the
// task is processed.
type OverdueScanPayload struct {
	Ref string `json:"ref,omitempty"`
}

// NotificationDeliverPayload identifies the notification to deliver.
type NotificationDeliverPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// NewOverdueScanTask builds the cron task for the overdue scan.
func NewOverdueScanTask() (*asynq.Task, error) {
	body, err := json.Marshal(OverdueScanPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, body, asynq.Queue(QueueDefault)), nil
}

// NewNotificationDeliverTask builds a delivery task.
func NewNotificationDeliverTask(id uuid.UUID) (*asynq.Task, error) {
	body, err := json.Marshal(NotificationDeliverPayload{NotificationID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDeliver, body, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewIdempotencyCleanupTask builds the cron task for key retention.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/libris/libris/internal/jobs"
	"github.com/libris/libris/internal/notifications"
	"github.com/libris/libris/internal/shared"
)

// Deliverer hands a stored notification to its channel.
type Deliverer interface {
	Deliver(ctx context.Context, id uuid.UUID) (*notifications.Notification, error)
}

// NotificationDeliverJob processes TaskNotificationDeliver tasks.
type NotificationDeliverJob struct {
	deliverer Deliverer
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewNotificationDeliverJob initialises the delivery handler.
func NewNotificationDeliverJob(deliverer Deliverer, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationDeliverJob {
	return &NotificationDeliverJob{deliverer: deliverer, logger: logger, metrics: metrics}
}

// Handle delivers the notification named by the task payload.
func (j *NotificationDeliverJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	tracker := j.metrics.Track(TaskNotificationDeliver)
	defer func() {
		err = tracker.End(err)
	}()
	var payload NotificationDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.NotificationID == uuid.Nil {
		return fmt.Errorf("notification deliver: bad payload: %w", asynq.SkipRetry)
	}
	if _, err := j.deliverer.Deliver(ctx, payload.NotificationID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			j.logger.Warn("notification vanished before delivery", slog.String("notification_id", payload.NotificationID.String()))
			return fmt.Errorf("notification deliver: %v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}
